package scanner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"ai-docguard-be/internal/entity"
	"ai-docguard-be/internal/pkg/logger"
	"ai-docguard-be/pkg/apperror"
	"ai-docguard-be/pkg/metrics"
	"ai-docguard-be/pkg/session"
)

// Rejects is the binary risk policy: only the maximal level rejects.
func Rejects(report *entity.ScanReport) bool {
	return report.Rejected()
}

// Gate runs a scan and moves the resulting report into the session root.
type Gate struct {
	store   *session.Store
	runner  Runner
	metrics *metrics.Metrics
	logger  logger.ILogger
}

func NewGate(store *session.Store, runner Runner, m *metrics.Metrics, log logger.ILogger) *Gate {
	return &Gate{store: store, runner: runner, metrics: m, logger: log}
}

func (g *Gate) Scan(ctx context.Context, sessionID, filePath string) (*entity.ScanReport, error) {
	if _, err := g.store.Ensure(sessionID); err != nil {
		return nil, err
	}
	paths, err := g.store.Paths(sessionID)
	if err != nil {
		return nil, err
	}

	exists, err := g.store.FileExists(paths.Report)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("stat report: %w", err))
	}
	if exists {
		return nil, apperror.SessionConflict(sessionID, "session already has a scan report")
	}

	start := time.Now()
	report, err := g.scan(ctx, sessionID, filePath, paths.Report)
	g.metrics.ObserveScan(scanOutcome(report, err), time.Since(start))
	if err != nil {
		return nil, err
	}

	g.logger.Info("ScanGate", "Scan completed", map[string]interface{}{
		"session_id": sessionID,
		"risk_level": report.RiskLevel,
		"risk_label": report.RiskLabel,
		"decision":   report.SecurityDecision,
	})
	return report, nil
}

func (g *Gate) scan(ctx context.Context, sessionID, filePath, dst string) (*entity.ScanReport, error) {
	// A report left next to the upload by an earlier run must not pass for this one.
	if err := g.removeStaleReport(filePath); err != nil {
		return nil, apperror.Internal(fmt.Errorf("remove stale report: %w", err))
	}

	produced, err := g.runner.Run(ctx, filePath, sessionID)
	if err != nil {
		if _, ok := apperror.As(err); ok {
			return nil, err
		}
		return nil, apperror.ScannerProcessFailure(err)
	}

	found, err := g.store.FileExists(produced)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("stat produced report: %w", err))
	}
	if !found {
		g.logger.Error("ScanGate", "Scanner exited cleanly without a report", map[string]interface{}{
			"session_id":  sessionID,
			"report_path": produced,
		})
		return nil, apperror.ScannerReportMissing()
	}

	raw, err := g.store.ReadFile(produced)
	if err != nil {
		return nil, apperror.Internal(fmt.Errorf("read produced report: %w", err))
	}
	report, err := ParseReport(raw)
	if err != nil {
		return nil, err
	}

	// Rename, never copy: the session root only ever holds a complete report.
	if err := g.store.Rename(produced, dst); err != nil {
		return nil, apperror.Internal(fmt.Errorf("relocate report: %w", err))
	}
	return report, nil
}

// Load reads a report that was previously relocated into a session root.
func (g *Gate) Load(sessionID string) (*entity.ScanReport, error) {
	paths, err := g.store.Paths(sessionID)
	if err != nil {
		return nil, err
	}
	raw, err := g.store.ReadFile(paths.Report)
	if err != nil {
		return nil, err
	}
	return ParseReport(raw)
}

// ParseReport accepts the scanner's snake_case keys as well as camelCase ones.
func ParseReport(raw []byte) (*entity.ScanReport, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, apperror.ScannerReportInvalid(err)
	}

	levelRaw, ok := pick(fields, "risk_level", "riskLevel")
	if !ok {
		return nil, apperror.ScannerReportInvalid(errors.New("report has no risk level"))
	}
	var level int
	if err := json.Unmarshal(levelRaw, &level); err != nil {
		return nil, apperror.ScannerReportInvalid(fmt.Errorf("risk level is not an integer: %w", err))
	}
	if level < 0 || level > entity.MaxRiskLevel {
		return nil, apperror.ScannerReportInvalid(fmt.Errorf("risk level %d out of range", level))
	}

	report := &entity.ScanReport{
		RiskLevel:        level,
		RiskLabel:        pickString(fields, "risk_label", "riskLabel"),
		SecurityDecision: pickString(fields, "security_decision", "securityDecision"),
		Profile:          pickString(fields, "profile"),
		Explanation:      pickString(fields, "explanation"),
		FileHash:         pickString(fields, "file_hash", "fileHash"),
		Findings:         json.RawMessage(append([]byte(nil), raw...)),
	}
	return report, nil
}

func pick(fields map[string]json.RawMessage, keys ...string) (json.RawMessage, bool) {
	for _, k := range keys {
		if v, ok := fields[k]; ok && string(v) != "null" {
			return v, true
		}
	}
	return nil, false
}

func pickString(fields map[string]json.RawMessage, keys ...string) string {
	v, ok := pick(fields, keys...)
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return ""
	}
	return s
}

func scanOutcome(report *entity.ScanReport, err error) string {
	switch {
	case err != nil:
		return string(apperror.KindOf(err))
	case Rejects(report):
		return "rejected"
	default:
		return "accepted"
	}
}

func (g *Gate) removeStaleReport(filePath string) error {
	if abs, err := filepath.Abs(filePath); err == nil {
		filePath = abs
	}
	err := g.store.Remove(ReportPathFor(filePath))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
