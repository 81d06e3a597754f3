package plugin

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// writeOutput creates the parent directory of path and writes the payload
// produced by write into a newly created file.
func writeOutput(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.Wrapf(ErrRenderTargetUnwritable, "failed to create output directory %s: %v", dir, err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(ErrRenderTargetUnwritable, "failed to create output file %s: %v", path, err)
	}

	if err := write(file); err != nil {
		file.Close()
		return errors.Wrapf(ErrRenderTargetUnwritable, "failed to write output file %s: %v", path, err)
	}
	if err := file.Close(); err != nil {
		return errors.Wrapf(ErrRenderTargetUnwritable, "failed to close output file %s: %v", path, err)
	}
	return nil
}

func writeBytes(path string, data []byte) error {
	return writeOutput(path, func(w io.Writer) error {
		_, err := io.Copy(w, bytes.NewReader(data))
		return err
	})
}

// defaultOutputPath derives an output file name from the report file name,
// e.g. results.xml and "_output.json" give results_output.json.
func defaultOutputPath(reportPath, suffix string) string {
	base := filepath.Base(reportPath)
	return strings.TrimSuffix(base, filepath.Ext(base)) + suffix
}
