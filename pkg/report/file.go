package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aretw0/cider/pkg/domain"
)

// DefaultFileName is the name of the log written after every pass.
const DefaultFileName = "cider_output.txt"

// FileWriter stores each report as text in the pass's output directory,
// replacing the previous pass's file.
type FileWriter struct {
	name string
}

// NewFileWriter creates a FileWriter using DefaultFileName.
func NewFileWriter() *FileWriter {
	return &FileWriter{name: DefaultFileName}
}

// Path returns the file a report will be written to.
func (f *FileWriter) Path(r *domain.Report) string {
	return filepath.Join(r.OutputDirectory, f.name)
}

// Publish implements ports.ReportSink.
func (f *FileWriter) Publish(_ context.Context, r *domain.Report) error {
	if r.OutputDirectory == "" {
		return fmt.Errorf("report %s has no output directory", r.RunID)
	}
	if err := os.MkdirAll(r.OutputDirectory, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	var buf bytes.Buffer
	if err := WriteText(&buf, r); err != nil {
		return err
	}

	// The previous log is replaced atomically.
	tmp, err := os.CreateTemp(r.OutputDirectory, "."+f.name+".*")
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write report: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.Path(r)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}
