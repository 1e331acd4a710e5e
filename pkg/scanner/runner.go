package scanner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"ai-docguard-be/internal/pkg/logger"
	"ai-docguard-be/pkg/apperror"
)

const (
	// ReportSuffix is appended to the scanned file's absolute path by the scanner.
	ReportSuffix = ".report.json"

	defaultTimeout = 2 * time.Minute
	outputTailLen  = 4096
	killGrace      = 5 * time.Second
)

// Runner runs the external scanning process and returns where it left its report.
type Runner interface {
	Run(ctx context.Context, filePath, sessionID string) (reportPath string, err error)
}

// ReportPathFor is the deterministic report location for a scanned file.
func ReportPathFor(absFilePath string) string {
	return absFilePath + ReportSuffix
}

type ExecConfig struct {
	Command string
	Args    []string
	Timeout time.Duration
}

// ExecRunner launches `Command Args... <absFilePath> <sessionID>`.
type ExecRunner struct {
	config ExecConfig
	logger logger.ILogger
}

func NewExecRunner(cfg ExecConfig, log logger.ILogger) *ExecRunner {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &ExecRunner{config: cfg, logger: log}
}

func (r *ExecRunner) Run(ctx context.Context, filePath, sessionID string) (string, error) {
	if r.config.Command == "" {
		return "", apperror.ScannerProcessFailure(errors.New("scanner command is not configured"))
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", apperror.ScannerProcessFailure(fmt.Errorf("resolve file path: %w", err))
	}

	ctx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	args := make([]string, 0, len(r.config.Args)+2)
	args = append(args, r.config.Args...)
	args = append(args, absPath, sessionID)

	output := &tailBuffer{limit: outputTailLen}
	cmd := exec.CommandContext(ctx, r.config.Command, args...)
	cmd.Stdout = output
	cmd.Stderr = output
	cmd.WaitDelay = killGrace
	setProcessGroup(cmd)

	start := time.Now()
	err = cmd.Run()
	elapsed := time.Since(start)

	details := map[string]interface{}{
		"session_id":  sessionID,
		"command":     r.config.Command,
		"duration_ms": elapsed.Milliseconds(),
		"output_tail": output.String(),
	}

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			details["error"] = err
			r.logger.Error("ScanGate", "Scanner timed out, process killed", details)
			return "", apperror.ScannerProcessFailure(fmt.Errorf("scanner exceeded %s: %w", r.config.Timeout, err))
		}
		details["error"] = err
		r.logger.Error("ScanGate", "Scanner process failed", details)

		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", apperror.ScannerProcessFailure(fmt.Errorf("scanner exited with code %d: %s", exitErr.ExitCode(), lastLine(output.String())))
		}
		return "", apperror.ScannerProcessFailure(fmt.Errorf("launch scanner: %w", err))
	}

	r.logger.Debug("ScanGate", "Scanner finished", details)
	return ReportPathFor(absPath), nil
}

// tailBuffer keeps only the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.buf = append(b.buf, p...)
	if over := len(b.buf) - b.limit; over > 0 {
		b.buf = b.buf[over:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
