package app

import (
	"bytes"
	"os"
	"sync"
	"testing"

	"github.com/specialistvlad/campaigngrid/internal/config"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// SetupAppTest loads a campaign for system testing. Set CAMPAIGNGRID_TEST_LOGS
// to see the captured output of each test.
func SetupAppTest(t *testing.T, cfg *Config, loader config.Loader) (*App, *SafeBuffer, error) {
	t.Helper()

	out := &SafeBuffer{}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	a, err := New(out, cfg, loader)

	t.Cleanup(func() {
		if os.Getenv("CAMPAIGNGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Output for %s ---\n%s", t.Name(), out.String())
		}
	})
	return a, out, err
}
