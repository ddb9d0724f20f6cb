//nolint:thelper,funlen // ok for tests
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCoachingConfig_Defaults(t *testing.T) {
	cfg, err := LoadCoachingConfig("")
	require.NoError(t, err)
	if diff := cmp.Diff(DefaultCoachingConfig(), cfg); diff != "" {
		t.Errorf("defaults not correct: %s", diff)
	}
}

func TestLoadCoachingConfig_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coaching.yml")
	content := `
arbiter:
  queueSize: 4
  priorityCooldowns:
    critical: 1s
deviation:
  timingThreshold: 0.1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadCoachingConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Arbiter.QueueSize)
	assert.Equal(t, time.Second, cfg.Arbiter.PriorityCooldowns["critical"].Std())
	// untouched keys keep their defaults
	assert.Equal(t, 5*time.Second, cfg.Arbiter.PriorityCooldowns["high"].Std())
	assert.InDelta(t, 0.1, cfg.Deviation.TimingThreshold, 1e-9)
	assert.Equal(t, 3, cfg.Mistakes.PersistenceThreshold)
}

func TestLoadCoachingConfig_Errors(t *testing.T) {
	_, err := LoadCoachingConfig(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yml")
	require.NoError(t, os.WriteFile(path,
		[]byte("arbiter:\n  categoryCooldown: soon\n"), 0o600))
	_, err = LoadCoachingConfig(path)
	assert.Error(t, err)
}
