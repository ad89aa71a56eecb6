package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contactkeval/implied-vol/internal/ivol"
	"github.com/contactkeval/implied-vol/internal/pricing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, ivol.DefaultConfig(), cfg.Solver)
	assert.Equal(t, 1, cfg.Log.Verbosity)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "synthetic", cfg.Quotes.Provider)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ivol.yaml")
	body := `
solver:
  lower_bound: 0.05
  upper_bound: 2.5
  tolerance: 0.000001
quotes:
  provider: csv
  dir: /var/quotes
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	t.Setenv("IVOL_SOLVER_MAX_ITERATIONS", "50")
	t.Setenv("IVOL_SERVER_ADDR", ":9090")

	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, ivol.Config{LowerBound: 0.05, UpperBound: 2.5, Tolerance: 1e-6, MaxIterations: 50}, cfg.Solver)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "csv", cfg.Quotes.Provider)
	assert.Equal(t, "/var/quotes", cfg.Quotes.Dir)
}

func TestLoadRejectsBadSolver(t *testing.T) {
	t.Setenv("IVOL_SOLVER_UPPER_BOUND", "0.001")

	_, err := Load(New(), "")
	assert.ErrorIs(t, err, pricing.ErrInvalidParameter)
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("IVOL_QUOTES_PROVIDER", "bloomberg")

	_, err := Load(New(), "")
	assert.ErrorContains(t, err, "unknown provider")
}

func TestLoadRejectsUnusedFallback(t *testing.T) {
	cases := map[string][2]string{
		"synthetic primary": {"synthetic", "csv"},
		"self fallback":     {"massive", "massive"},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("IVOL_QUOTES_PROVIDER", c[0])
			t.Setenv("IVOL_QUOTES_FALLBACK", c[1])

			_, err := Load(New(), "")
			assert.ErrorContains(t, err, "quotes:")
		})
	}

	t.Setenv("IVOL_QUOTES_PROVIDER", "csv")
	t.Setenv("IVOL_QUOTES_FALLBACK", "synthetic")
	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, "synthetic", cfg.Quotes.Fallback)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
