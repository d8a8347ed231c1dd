// Package analyze runs the full resolve → acquire → inspect pipeline over
// batches of descriptors, fanning work out to a bounded pool and assembling
// one report per input in input order.
package analyze

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/fulmenhq/pkgscout/pkg/acquire"
	"github.com/fulmenhq/pkgscout/pkg/contrib"
	"github.com/fulmenhq/pkgscout/pkg/descriptor"
	"github.com/fulmenhq/pkgscout/pkg/license"
	"github.com/fulmenhq/pkgscout/pkg/loc"
	"github.com/fulmenhq/pkgscout/pkg/logger"
)

// Report is the final analysis record for one descriptor.
type Report struct {
	Name      string    `json:"name"`
	UUID      uuid.UUID `json:"uuid,omitempty"`
	Version   string    `json:"version,omitempty"`
	TreeHash  string    `json:"tree_hash,omitempty"`
	RepoURL   string    `json:"repo_url,omitempty"`
	Reachable bool      `json:"reachable"`

	Health       Health                `json:"health"`
	Licenses     []license.Finding     `json:"licenses,omitempty"`
	Lines        []loc.Row             `json:"lines,omitempty"`
	Contributors []contrib.Contributor `json:"contributors,omitempty"`

	Duration time.Duration `json:"duration"`
}

// LineCounter produces the lines-of-code table for a directory.
type LineCounter interface {
	Count(ctx context.Context, dir string) ([]loc.Row, error)
}

// LicenseScanner produces license findings for a directory.
type LicenseScanner interface {
	Scan(dir string) ([]license.Finding, error)
}

// ContributorClient produces contributor statistics for a repository slug.
type ContributorClient interface {
	Contributors(ctx context.Context, slug string) ([]contrib.Contributor, error)
}

// Analyzer wires the resolver and the inspection collaborators together.
type Analyzer struct {
	Resolver *acquire.Resolver
	Counter  LineCounter
	Licenses LicenseScanner
	Contribs ContributorClient

	// Workers bounds the pool; zero means one worker per descriptor up to
	// the default pool size chosen by the caller.
	Workers int
}

// AnalyzeAll analyzes every descriptor, returning exactly one report per
// input in input order regardless of completion order. A single item's
// unreachability or internal failure never aborts its siblings.
func (a *Analyzer) AnalyzeAll(ctx context.Context, descs []descriptor.Descriptor) []Report {
	reports := make([]Report, len(descs))
	if len(descs) == 0 {
		return reports
	}

	workers := a.Workers
	if workers <= 0 || workers > len(descs) {
		workers = len(descs)
	}

	type job struct {
		index int
		desc  descriptor.Descriptor
	}
	jobs := make(chan job, len(descs))
	for i, d := range descs {
		jobs <- job{index: i, desc: d}
	}
	close(jobs)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				// Each worker owns a distinct index; no locking needed.
				reports[j.index] = a.analyzeOne(ctx, j.desc)
			}
		}()
	}
	wg.Wait()

	return reports
}

// Analyze runs the pipeline for a single descriptor.
func (a *Analyzer) Analyze(ctx context.Context, desc descriptor.Descriptor) Report {
	return a.analyzeOne(ctx, desc)
}

// analyzeOne is the per-item pipeline. Panics and resolver errors degrade
// to an unreachable report so batch siblings are isolated from each other.
func (a *Analyzer) analyzeOne(ctx context.Context, desc descriptor.Descriptor) (report Report) {
	start := time.Now()
	report = skeletonReport(desc)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("analysis panicked",
				logger.String("pkg", desc.DisplayName()),
				logger.String("panic", fmt.Sprint(r)))
			report.Reachable = false
		}
		report.Duration = time.Since(start)
	}()

	res, err := a.Resolver.Resolve(ctx, desc)
	if err != nil {
		logger.Error("resolution failed",
			logger.String("pkg", desc.DisplayName()), logger.Err(err))
		return report
	}
	report.Reachable = res.Reachable
	if res.Version != "" {
		report.Version = res.Version
	}
	if !res.Reachable {
		return report
	}

	dir := res.Path
	if res.Subdir != "" {
		dir = filepath.Join(dir, filepath.FromSlash(res.Subdir))
	}

	report.Health = DetectHealth(dir)

	// Collaborators are independent; run them concurrently per item. Each
	// degrades on its own failure instead of aborting the others.
	g, gctx := errgroup.WithContext(ctx)

	if a.Counter != nil {
		g.Go(func() error {
			rows, err := a.Counter.Count(gctx, dir)
			if err != nil {
				logger.Warn("line count failed", logger.String("pkg", report.Name), logger.Err(err))
				return nil
			}
			report.Lines = rows
			return nil
		})
	}

	if a.Licenses != nil {
		g.Go(func() error {
			findings, err := a.Licenses.Scan(dir)
			if err != nil {
				logger.Warn("license scan failed", logger.String("pkg", report.Name), logger.Err(err))
				return nil
			}
			report.Licenses = findings
			return nil
		})
	}

	if a.Contribs != nil && report.RepoURL != "" {
		if slug, ok := contrib.SlugFromURL(report.RepoURL); ok {
			g.Go(func() error {
				contributors, err := a.Contribs.Contributors(gctx, slug)
				if err != nil {
					logger.Warn("contributor fetch failed", logger.String("pkg", report.Name), logger.Err(err))
					return nil
				}
				report.Contributors = contributors
				return nil
			})
		}
	}

	_ = g.Wait()
	return report
}

// skeletonReport seeds a report with the identity fields a descriptor
// carries, so even unreachable items are attributable in the output.
func skeletonReport(desc descriptor.Descriptor) Report {
	switch d := desc.(type) {
	case descriptor.Release:
		return Report{Name: d.Name, UUID: d.UUID, Version: d.Version, TreeHash: d.TreeHash, RepoURL: d.RepoURL}
	case descriptor.Added:
		return Report{Name: d.Name, UUID: d.UUID, TreeHash: d.TreeHash, RepoURL: d.RepoURL}
	case descriptor.Dev:
		return Report{Name: d.Name, UUID: d.UUID, Version: "dev"}
	case descriptor.Trunk:
		return Report{Name: d.DisplayName(), RepoURL: d.RepoURL, Version: "dev"}
	default:
		return Report{Name: desc.DisplayName()}
	}
}
