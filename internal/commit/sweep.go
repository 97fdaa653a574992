package commit

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

var sweepOnce sync.Once

// SweepStaleTemp removes ".tmp" files directly under root older than
// maxAge: the garbage-collection spec.md §5 requires for temp files left
// behind by a write cancelled while suspended at step (2) or (3) of
// §4.E. Idempotent per process — later calls are no-ops — mirroring the
// once.Do-guarded setup in pkg/logger.Get, generalized from "initialize
// the logger once" to "clean up once at startup".
func SweepStaleTemp(root string, maxAge time.Duration, lgr logr.Logger) {
	sweepOnce.Do(func() {
		sweepStaleTemp(root, maxAge, lgr)
	})
}

func sweepStaleTemp(root string, maxAge time.Duration, lgr logr.Logger) {
	entries, err := os.ReadDir(root)
	if err != nil {
		lgr.V(1).Info("stale temp sweep skipped", "root", root, "error", err.Error())
		return
	}
	cutoff := time.Now().Add(-maxAge)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".tmp") {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		p := filepath.Join(root, e.Name())
		if err := os.Remove(p); err != nil {
			lgr.V(1).Info("failed to remove stale temp file", "path", p, "error", err.Error())
			continue
		}
		lgr.V(1).Info("removed stale temp file", "path", p)
	}
}
