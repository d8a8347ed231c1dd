package acquire

import (
	"archive/tar"
	"bytes"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipTar(t *testing.T, write func(*tar.Writer)) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	write(tw)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	return &buf
}

func TestExtractTarGzRejectsTraversal(t *testing.T) {
	buf := gzipTar(t, func(tw *tar.Writer) {
		data := []byte("evil")
		_ = tw.WriteHeader(&tar.Header{Name: "pkg-abc/../../escape.txt", Typeflag: tar.TypeReg, Mode: 0o644, Size: int64(len(data))})
		_, _ = tw.Write(data)
	})

	err := extractTarGz(buf, t.TempDir())
	assert.Error(t, err)
}

func TestExtractTarGzRejectsCorruptStream(t *testing.T) {
	err := extractTarGz(bytes.NewReader([]byte("definitely not gzip")), t.TempDir())
	assert.Error(t, err)
}

func TestStripWrapper(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{"owner-repo-abc1234/README.md", "README.md", true},
		{"owner-repo-abc1234/src/file.go", "src/file.go", true},
		{"owner-repo-abc1234/", "", false},
		{"pax_global_header", "", false},
		{"./owner-repo-abc1234/x", "x", true},
	}
	for _, c := range cases {
		got, ok := stripWrapper(c.in)
		assert.Equalf(t, c.ok, ok, "stripWrapper(%q)", c.in)
		if c.ok {
			assert.Equal(t, c.want, got)
		}
	}
}
