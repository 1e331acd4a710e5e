//go:build unix

package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"ai-docguard-be/internal/pkg/logger"
	"ai-docguard-be/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunnerTimeoutKillsDescendants(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{name: "foreground child", script: `sleep 1; echo late > "$1.late"`},
		{name: "background helper", script: `(sleep 1; echo late > "$1.late") & wait`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := filepath.Join(t.TempDir(), "doc.pdf")
			require.NoError(t, os.WriteFile(doc, []byte("%PDF"), 0o644))

			runner := NewExecRunner(ExecConfig{
				Command: "/bin/sh",
				Args:    []string{"-c", tt.script, "scanner"},
				Timeout: 100 * time.Millisecond,
			}, logger.NewNopLogger())

			start := time.Now()
			_, err := runner.Run(context.Background(), doc, testID)
			assert.Equal(t, apperror.KindScannerProcessFailure, apperror.KindOf(err))
			assert.Less(t, time.Since(start), 2*time.Second, "no wait for pipes held by descendants")

			time.Sleep(1500 * time.Millisecond)
			_, statErr := os.Stat(doc + ".late")
			assert.True(t, os.IsNotExist(statErr), "descendant outlived the timeout")
		})
	}
}
