// Copyright 2020 the Drone Authors. All rights reserved.
// Use of this source code is governed by the Blue Oak Model License
// that can be found in the LICENSE file.

package plugin

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteBytesCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "nested", "out.json")

	require.NoError(t, writeBytes(path, []byte(`{}`)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(data))
}

func TestWriteBytesUnwritable(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	tests := []struct {
		name string
		path string
	}{
		{name: "parentIsAFile", path: filepath.Join(blocker, "out.json")},
		{name: "targetIsADirectory", path: dir},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := writeBytes(tc.path, []byte(`{}`))
			assert.True(t, errors.Is(err, ErrRenderTargetUnwritable), "got %v", err)
		})
	}
}

func TestWriteOutputPropagatesWriterError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")

	err := writeOutput(path, func(io.Writer) error {
		return errors.New("encoder failed")
	})
	assert.True(t, errors.Is(err, ErrRenderTargetUnwritable), "got %v", err)
}

func TestDefaultOutputPath(t *testing.T) {
	assert.Equal(t, "results_output.json", defaultOutputPath("build/test/results.xml", "_output.json"))
	assert.Equal(t, "results_discord_output.json", defaultOutputPath("results.xml", "_discord_output.json"))
	assert.Equal(t, "report_output.json", defaultOutputPath("report", "_output.json"))
}
