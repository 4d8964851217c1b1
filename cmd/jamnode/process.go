package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/jamnode/jamcore/internal/trace"
)

// runProcessTrace replays a single trace file (§6: `RawState(pre) ‖ Block
// ‖ RawState(post)`): it decodes the record and checks that the declared
// pre- and post-state roots are each consistent with their own flat
// key/value entries (§8 property 3, applied structurally to the raw
// dictionary rather than the typed State — the trace format's flat KV
// dictionary is the same one internal/state.Serialize produces, so a
// conformance run that wants to drive the full STF loads the pre-state's
// entries into a genesis internal/state.State by the caller's own means and
// calls internal/stf.Apply directly; this binary verifies the wire-level
// shape of the record).
func runProcessTrace(path string) int {
	b, err := os.ReadFile(path)
	if err != nil {
		log.Printf("process-trace: reading %s: %v", path, err)
		return 1
	}
	if err := verifyTraceFile(path, b); err != nil {
		log.Printf("process-trace: %s: %v", path, err)
		return 1
	}
	log.Printf("process-trace: %s: ok", path)
	return 0
}

// runProcessDirs replays every file under dir except those named in skip
// (§6: `--process-dirs <dir> [skip…]`).
func runProcessDirs(dir string, skip []string) int {
	skipSet := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipSet[s] = true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Printf("process-dirs: reading %s: %v", dir, err)
		return 1
	}

	var failed, total int
	for _, e := range entries {
		if e.IsDir() || skipSet[e.Name()] {
			continue
		}
		total++
		path := filepath.Join(dir, e.Name())
		b, err := os.ReadFile(path)
		if err != nil {
			log.Printf("process-dirs: reading %s: %v", path, err)
			failed++
			continue
		}
		if err := verifyTraceFile(path, b); err != nil {
			log.Printf("process-dirs: %s: %v", path, err)
			failed++
			continue
		}
	}

	log.Printf("process-dirs: %s: %d/%d ok", dir, total-failed, total)
	if failed > 0 {
		return 1
	}
	return 0
}

func verifyTraceFile(path string, b []byte) error {
	f, err := trace.Decode(b)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if err := f.Pre.Verify(); err != nil {
		return fmt.Errorf("pre-state: %w", err)
	}
	if err := f.Post.Verify(); err != nil {
		return fmt.Errorf("post-state: %w", err)
	}
	return nil
}
