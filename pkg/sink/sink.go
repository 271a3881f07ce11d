// Package sink delivers exported files to their destination.
//
// Each file is written independently: there is no ordering between files and
// no rollback, so a batch may be partially delivered. Deliver reports the
// outcome of every file.
package sink

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/menta2k/roi-annotator/internal/utils"
	"github.com/menta2k/roi-annotator/pkg/export"
	"github.com/menta2k/roi-annotator/pkg/types"
)

// DefaultConcurrency bounds the number of writes in flight.
const DefaultConcurrency = 4

// Sink stores one named file.
type Sink interface {
	Write(ctx context.Context, name string, data []byte) error
}

// Result is the outcome of delivering one file.
type Result struct {
	Name  string
	Bytes int
	Err   error
}

// DirSink writes files into a directory, creating it on first use.
type DirSink struct {
	Dir string
}

// NewDirSink creates a sink for dir
func NewDirSink(dir string) *DirSink {
	return &DirSink{Dir: dir}
}

// Write stores data as dir/name.
func (d *DirSink) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := utils.EnsureDir(d.Dir); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(d.Dir, utils.SanitizeFilename(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// MemorySink keeps files in memory. It is safe for concurrent use.
type MemorySink struct {
	mu    sync.Mutex
	files map[string][]byte
}

// NewMemorySink creates an empty in-memory sink
func NewMemorySink() *MemorySink {
	return &MemorySink{files: make(map[string][]byte)}
}

// Write stores a copy of data under name.
func (m *MemorySink) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = buf
	return nil
}

// File returns the content stored under name.
func (m *MemorySink) File(name string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[name]
	return data, ok
}

// Names returns the sorted names of stored files.
func (m *MemorySink) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Deliver writes every file to s with at most concurrency writes in flight.
// Failures are wrapped with types.ErrExportSink, logged, and reported in the
// matching Result; they never stop the remaining writes.
func Deliver(ctx context.Context, s Sink, files []export.File, concurrency int, logger *slog.Logger) []Result {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	results := make([]Result, len(files))
	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, f := range files {
		g.Go(func() error {
			res := Result{Name: f.Name, Bytes: len(f.Data)}
			if err := s.Write(ctx, f.Name, f.Data); err != nil {
				res.Err = fmt.Errorf("%w: %s: %v", types.ErrExportSink, f.Name, err)
				logger.Error("Export write failed", "file", f.Name, "error", err)
			} else {
				logger.Debug("Wrote export file", "file", f.Name, "size", utils.FormatFileSize(int64(len(f.Data))))
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Failed returns the results that carry an error.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}
