package dispatch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/specialistvlad/campaigngrid/internal/tree"
)

// Recorder appends commands that were prepared but not run to a file, so
// they can be replayed by hand.
type Recorder struct {
	path string

	mu sync.Mutex
	n  int
}

// NewRecorder appends to path. The file is created on first use.
func NewRecorder(path string) *Recorder {
	return &Recorder{path: path}
}

// Path returns the record file.
func (r *Recorder) Path() string { return r.path }

// Count returns how many commands were recorded.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.n
}

// Record appends one command with the leaf name as a comment line.
func (r *Recorder) Record(leaf *tree.Node, c Cmd) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("failed to create record directory: %w", err)
	}
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open record file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "# %s\n%s\n", leaf.Name, c); err != nil {
		f.Close()
		return fmt.Errorf("failed to record command: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to record command: %w", err)
	}
	r.n++
	return nil
}
