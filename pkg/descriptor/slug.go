package descriptor

import (
	"crypto/sha256"
	"strings"

	"github.com/google/uuid"
)

const slugLen = 8

const slugAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// VersionSlug derives a stable, collision-resistant cache subpath key from a
// package UUID and a content tree hash. The same (uuid, hash) pair always
// yields the same slug, so independent invocations sharing a cache root land
// on the same directory.
func VersionSlug(id uuid.UUID, treeHash string) string {
	h := sha256.New()
	h.Write(id[:])
	h.Write([]byte(strings.ToLower(treeHash)))
	sum := h.Sum(nil)

	var b strings.Builder
	b.Grow(slugLen)
	// Consume the digest 4 bytes at a time as base-62 digits.
	for i := 0; i < slugLen; i++ {
		chunk := uint32(sum[i*4])<<24 | uint32(sum[i*4+1])<<16 | uint32(sum[i*4+2])<<8 | uint32(sum[i*4+3])
		b.WriteByte(slugAlphabet[chunk%uint32(len(slugAlphabet))])
	}
	return b.String()
}

// CacheRelPath returns the cache-relative tail path for a pinned package,
// shared by the destination cache and any install depots: name/slug.
func CacheRelPath(name string, id uuid.UUID, treeHash string) string {
	return name + "/" + VersionSlug(id, treeHash)
}
