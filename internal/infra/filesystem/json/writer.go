package json

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	dirMode  = 0o755
	fileMode = 0o644
)

// Writer writes report files, creating parent directories as needed.
type Writer struct{}

// NewWriter returns a writer for files on local disk.
func NewWriter() *Writer {
	return &Writer{}
}

// WriteJSON writes data as indented JSON followed by a newline.
func (w *Writer) WriteJSON(path string, data any) error {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON for %s: %w", path, err)
	}

	return w.WriteBytes(path, append(content, '\n'))
}

// WriteBytes writes data to path, creating parent directories.
func (w *Writer) WriteBytes(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), dirMode); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	if err := os.WriteFile(path, data, fileMode); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	return nil
}
