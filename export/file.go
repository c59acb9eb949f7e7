package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileWriter persists encoded data to the local filesystem, the simplest
// implementation of spec §4.10's write_output.
type FileWriter struct{}

func (FileWriter) Write(ctx context.Context, loadTestName string, opts Options, data []byte) error {
	path := opts.Path
	if path == "" {
		path = loadTestName + ".out"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write export file %s: %w", path, err)
	}
	return nil
}
