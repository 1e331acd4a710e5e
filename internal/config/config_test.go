package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SCANNER_ARGS", "")
	t.Setenv("AI_SERVICE_URL", "http://ai:8000/")

	cfg := Load()

	assert.Equal(t, "3000", cfg.App.Port)
	assert.Equal(t, "http://ai:8000", cfg.Ai.ServiceURL)
	assert.Equal(t, 10*time.Minute, cfg.Ai.Timeout)
	assert.Equal(t, 2*time.Minute, cfg.Scanner.Timeout)
	assert.Empty(t, cfg.Scanner.Args)
	assert.False(t, cfg.IsProduction())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GO_ENV", "production")
	t.Setenv("SCANNER_ARGS", "/opt/scanner/gate.py --strict")
	t.Setenv("SCANNER_TIMEOUT", "45")
	t.Setenv("AI_TIMEOUT", "90s")
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("AI_MAX_IDLE_CONNS", "not-a-number")

	cfg := Load()

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"/opt/scanner/gate.py", "--strict"}, cfg.Scanner.Args)
	assert.Equal(t, 45*time.Second, cfg.Scanner.Timeout)
	assert.Equal(t, 90*time.Second, cfg.Ai.Timeout)
	assert.True(t, cfg.Infra.OtelEnabled)
	assert.Equal(t, 32, cfg.Ai.MaxIdleConns)
}
