package restyutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FilesystemOutput writes every dumped message into its own file.
type FilesystemOutput struct {
	directory string
}

// NewFilesystemOutput creates a fresh run-* directory under dir. Nothing
// already in dir is touched.
func NewFilesystemOutput(dir string) (FilesystemOutput, error) {
	err := os.MkdirAll(dir, 0700)
	if err != nil {
		return FilesystemOutput{}, fmt.Errorf("create dump dir: %w", err)
	}
	runDir, err := os.MkdirTemp(dir, "run-*")
	if err != nil {
		return FilesystemOutput{}, fmt.Errorf("create dump run dir: %w", err)
	}
	return FilesystemOutput{directory: runDir}, nil
}

func (o FilesystemOutput) Directory() string {
	return o.directory
}

func (o FilesystemOutput) Write(id string, contents string) {
	err := os.WriteFile(filepath.Join(o.directory, id), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write message info file", "id", id, "err", err)
	}
}
