package scanner

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"ai-docguard-be/internal/pkg/logger"
	"ai-docguard-be/pkg/apperror"
	"ai-docguard-be/pkg/session"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testID = "3f1c2a9e-5b7d-4e8a-9c10-2d3e4f5a6b7c"

type fakeRunner struct {
	fs     afero.Fs
	report string
	err    error
	calls  int
}

func (f *fakeRunner) Run(_ context.Context, filePath, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	out := ReportPathFor(filePath)
	if f.report != "" {
		if err := afero.WriteFile(f.fs, out, []byte(f.report), 0o644); err != nil {
			return "", err
		}
	}
	return out, nil
}

func newGate(t *testing.T, runner *fakeRunner) (*Gate, *session.Store, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	runner.fs = fs
	store := session.NewStore(fs, "/data/sessions", "/uploads", logger.NewNopLogger())
	require.NoError(t, afero.WriteFile(fs, "/uploads/doc.pdf", []byte("%PDF"), 0o644))
	return NewGate(store, runner, nil, logger.NewNopLogger()), store, fs
}

func TestGateScanRelocatesReport(t *testing.T) {
	runner := &fakeRunner{report: `{"risk_level":1,"risk_label":"LOW","security_decision":"ALLOW","file_hash":"abc"}`}
	gate, store, fs := newGate(t, runner)

	report, err := gate.Scan(context.Background(), testID, "/uploads/doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, 1, report.RiskLevel)
	assert.Equal(t, "LOW", report.RiskLabel)
	assert.Equal(t, "ALLOW", report.SecurityDecision)
	assert.False(t, Rejects(report))

	paths, _ := store.Paths(testID)
	moved, _ := afero.Exists(fs, paths.Report)
	assert.True(t, moved)
	left, _ := afero.Exists(fs, "/uploads/doc.pdf"+ReportSuffix)
	assert.False(t, left, "report is renamed, not copied")

	loaded, err := gate.Load(testID)
	require.NoError(t, err)
	assert.Equal(t, report.RiskLevel, loaded.RiskLevel)
}

func TestGateRiskPolicy(t *testing.T) {
	tests := []struct {
		name     string
		report   string
		rejected bool
	}{
		{"level 0", `{"risk_level":0}`, false},
		{"level 1", `{"risk_level":1}`, false},
		{"level 2", `{"riskLevel":2}`, false},
		{"level 3", `{"risk_level":3,"risk_label":"CRITICAL"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate, _, _ := newGate(t, &fakeRunner{report: tt.report})
			report, err := gate.Scan(context.Background(), testID, "/uploads/doc.pdf")
			require.NoError(t, err)
			assert.Equal(t, tt.rejected, Rejects(report))
		})
	}
}

func TestGateFailures(t *testing.T) {
	t.Run("process failure", func(t *testing.T) {
		gate, _, _ := newGate(t, &fakeRunner{err: errors.New("exec: python3: not found")})
		_, err := gate.Scan(context.Background(), testID, "/uploads/doc.pdf")
		assert.Equal(t, apperror.KindScannerProcessFailure, apperror.KindOf(err))
	})

	t.Run("clean exit without report", func(t *testing.T) {
		gate, store, fs := newGate(t, &fakeRunner{})
		_, err := gate.Scan(context.Background(), testID, "/uploads/doc.pdf")
		assert.Equal(t, apperror.KindScannerReportMissing, apperror.KindOf(err))
		assert.NotContains(t, err.Error(), "/uploads", "no server paths in client-facing errors")

		paths, _ := store.Paths(testID)
		exists, _ := afero.Exists(fs, paths.Report)
		assert.False(t, exists)
	})

	t.Run("stale report from an earlier run", func(t *testing.T) {
		gate, _, fs := newGate(t, &fakeRunner{})
		require.NoError(t, afero.WriteFile(fs, "/uploads/doc.pdf"+ReportSuffix, []byte(`{"risk_level":0}`), 0o644))

		_, err := gate.Scan(context.Background(), testID, "/uploads/doc.pdf")
		assert.Equal(t, apperror.KindScannerReportMissing, apperror.KindOf(err))
	})

	t.Run("out of range level", func(t *testing.T) {
		gate, _, _ := newGate(t, &fakeRunner{report: `{"risk_level":7}`})
		_, err := gate.Scan(context.Background(), testID, "/uploads/doc.pdf")
		assert.Equal(t, apperror.KindScannerReportInvalid, apperror.KindOf(err))
	})

	t.Run("report already present", func(t *testing.T) {
		runner := &fakeRunner{report: `{"risk_level":1}`}
		gate, _, _ := newGate(t, runner)
		_, err := gate.Scan(context.Background(), testID, "/uploads/doc.pdf")
		require.NoError(t, err)

		_, err = gate.Scan(context.Background(), testID, "/uploads/doc.pdf")
		assert.Equal(t, apperror.KindSessionConflict, apperror.KindOf(err))
		assert.Equal(t, 1, runner.calls)
	})

	t.Run("invalid session id", func(t *testing.T) {
		runner := &fakeRunner{report: `{"risk_level":1}`}
		gate, _, _ := newGate(t, runner)
		_, err := gate.Scan(context.Background(), "../../etc", "/uploads/doc.pdf")
		assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
		assert.Zero(t, runner.calls)
	})
}

func TestParseReportKeepsFindings(t *testing.T) {
	raw := `{"risk_level":2,"triggers":["/JS"],"flags":{"encrypted":false},"explanation":"script found"}`
	report, err := ParseReport([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "script found", report.Explanation)
	assert.JSONEq(t, raw, string(report.Findings))

	_, err = ParseReport([]byte(`{"risk_level":"high"}`))
	assert.Equal(t, apperror.KindScannerReportInvalid, apperror.KindOf(err))

	_, err = ParseReport([]byte(`not json`))
	assert.Equal(t, apperror.KindScannerReportInvalid, apperror.KindOf(err))
}

func TestGateWithExecRunner(t *testing.T) {
	dir := t.TempDir()
	upload := filepath.Join(dir, "doc.pdf")
	require.NoError(t, afero.WriteFile(afero.NewOsFs(), upload, []byte("%PDF"), 0o644))

	store := session.NewStore(afero.NewOsFs(), filepath.Join(dir, "sessions"), dir, logger.NewNopLogger())
	runner := NewExecRunner(ExecConfig{
		Command: "/bin/sh",
		Args:    []string{"-c", `printf '{"risk_level":2,"session":"%s"}' "$2" > "$1.report.json"`, "scanner"},
	}, logger.NewNopLogger())

	report, err := NewGate(store, runner, nil, logger.NewNopLogger()).Scan(context.Background(), testID, upload)
	require.NoError(t, err)
	assert.Equal(t, 2, report.RiskLevel)
	assert.Contains(t, string(report.Findings), testID)
}
