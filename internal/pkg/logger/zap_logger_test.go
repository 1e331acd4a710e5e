package logger

import (
	"bufio"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsolatedLoggerWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.log")
	l := NewIsolatedLogger(path)

	l.Info("Pipeline", "session scanned", map[string]interface{}{"session_id": "abc", "risk_level": 1})
	l.Error("Pipeline", "scan failed", map[string]interface{}{"error": errors.New("exit status 2")})
	l.Debug("Pipeline", "below file level", nil)
	require.NoError(t, l.Sync())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		lines = append(lines, entry)
	}

	require.Len(t, lines, 2)
	assert.Equal(t, "INFO", lines[0]["level"])
	assert.Equal(t, "Pipeline", lines[0]["module"])
	assert.Equal(t, "session scanned", lines[0]["message"])
	assert.Equal(t, "ERROR", lines[1]["level"])
	assert.Equal(t, "exit status 2", lines[1]["error"])
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Warn("Test", "nothing happens", nil)
	assert.NoError(t, l.Sync())
}
