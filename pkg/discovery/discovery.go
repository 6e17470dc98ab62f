// Package discovery scans one or more workflow roots — project, user,
// and builtin, in descending precedence — and produces a stable,
// sorted DiscoveryResult. A name already claimed by a higher-precedence
// source is never overwritten; the lower-precedence file is recorded
// as an override instead. A file that fails to parse is skipped, never
// aborts the scan.
package discovery

import (
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/windlass-dev/windlass/pkg/workflow"
)

// Source pairs a DiscoverySource with the filesystem root to scan. Root
// may be empty, meaning the source is disabled.
type Source struct {
	Kind workflow.DiscoverySource
	Root string
}

// Parser parses workflow YAML bytes into a WorkflowDocument. Supplied
// by the caller so discovery does not import the schema package
// directly, avoiding a cycle with validation-time discovery lookups.
type Parser func(path string, data []byte) (*workflow.WorkflowDocument, error)

// FS is the minimal filesystem surface discovery needs, satisfied by
// an *os-backed implementation in production and an in-memory fake in
// tests.
type FS interface {
	Glob(pattern string) ([]string, error)
	ReadFile(path string) ([]byte, error)
}

// Run scans sources in the order given (callers must pass project,
// user, builtin in that order to get the intended precedence) and
// returns the merged, stable-sorted result.
func Run(fsys FS, sources []Source, parse Parser) (*workflow.DiscoveryResult, error) {
	start := time.Now()

	workflows := make(map[string]*workflow.DiscoveryRecord)
	fragments := make(map[string]*workflow.DiscoveryRecord)
	var skipped []workflow.SkippedRecord
	var locations []string

	for _, src := range sources {
		if src.Root == "" {
			continue
		}
		locations = append(locations, src.Root)

		if err := scanInto(fsys, src, src.Root, parse, workflows, &skipped); err != nil {
			return nil, err
		}
		fragmentsRoot := filepath.Join(src.Root, "fragments")
		locations = append(locations, fragmentsRoot)
		if err := scanInto(fsys, src, fragmentsRoot, parse, fragments, &skipped); err != nil {
			return nil, err
		}
	}

	result := &workflow.DiscoveryResult{
		Workflows:        sortedRecords(workflows),
		Fragments:        sortedRecords(fragments),
		Skipped:          skipped,
		LocationsScanned: locations,
		DiscoveryTimeMs:  int64(time.Since(start) / time.Millisecond),
	}
	return result, nil
}

func scanInto(fsys FS, src Source, root string, parse Parser, into map[string]*workflow.DiscoveryRecord, skipped *[]workflow.SkippedRecord) error {
	var matches []string
	for _, ext := range []string{"*.yaml", "*.yml"} {
		pattern := filepath.ToSlash(filepath.Join(root, ext))
		found, err := fsys.Glob(pattern)
		if err != nil {
			return fmt.Errorf("discovery: globbing %s: %w", pattern, err)
		}
		matches = append(matches, found...)
	}
	sort.Strings(matches)

	for _, path := range matches {
		data, err := fsys.ReadFile(path)
		if err != nil {
			*skipped = append(*skipped, workflow.SkippedRecord{
				FilePath:     path,
				ErrorType:    "read-error",
				ErrorMessage: err.Error(),
			})
			continue
		}

		doc, err := parse(path, data)
		if err != nil {
			*skipped = append(*skipped, workflow.SkippedRecord{
				FilePath:     path,
				ErrorType:    "workflow-parse",
				ErrorMessage: err.Error(),
			})
			continue
		}

		existing, claimed := into[doc.Name]
		if claimed {
			existing.Overrides = append(existing.Overrides, path)
			continue
		}
		into[doc.Name] = &workflow.DiscoveryRecord{
			Source:   src.Kind,
			FilePath: path,
			Workflow: doc,
		}
	}
	return nil
}

func sortedRecords(m map[string]*workflow.DiscoveryRecord) []workflow.DiscoveryRecord {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]workflow.DiscoveryRecord, 0, len(names))
	for _, name := range names {
		rec := *m[name]
		sort.Strings(rec.Overrides)
		out = append(out, rec)
	}
	return out
}

// matchesFragmentTree supports the fragments/**/*.yaml nesting note:
// doublestar-style matching against a recursive pattern, used by
// filesystem FS implementations that need to pre-filter a directory
// walk rather than relying on Glob alone.
func matchesFragmentTree(root, path string) bool {
	pattern := filepath.ToSlash(filepath.Join(root, "**", "*.y*ml"))
	matched, _ := doublestar.Match(pattern, filepath.ToSlash(path))
	return matched
}
