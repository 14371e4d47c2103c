package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pushup.report/internal/reps"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestEmptyTuningConfigDefaults(t *testing.T) {
	cfg := EmptyTuningConfig()

	assert.Equal(t, 120.0, cfg.GetHipMinDeg())
	assert.Equal(t, 180.0, cfg.GetHipMaxDeg())
	assert.Equal(t, 160.0, cfg.GetKneeMinDeg())
	assert.Equal(t, 180.0, cfg.GetKneeMaxDeg())
	assert.Equal(t, 10.0, cfg.GetElbowHysteresisDeg())
	assert.Equal(t, 90.0, cfg.GetElbowDepthDeg())
	assert.Equal(t, "accurate", cfg.GetDetector())
	assert.Equal(t, "back", cfg.GetCamera())
	assert.Equal(t, 100*time.Millisecond, cfg.GetReplayInterval())
	assert.Equal(t, 5, cfg.GetAngleSampleEvery())
	assert.Equal(t, 720*time.Hour, cfg.GetTokenTTL())
	assert.NoError(t, cfg.Validate())
}

func TestLoadTuningConfig(t *testing.T) {
	path := writeConfig(t, "tuning.json", `{
  "hip_min_deg": 110,
  "elbow_hysteresis_deg": 12.5,
  "detector": "fast",
  "camera": "front",
  "replay_interval": "250ms",
  "angle_sample_every": 0
}`)

	cfg, err := LoadTuningConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 110.0, cfg.GetHipMinDeg())
	assert.Equal(t, 12.5, cfg.GetElbowHysteresisDeg())
	assert.Equal(t, "fast", cfg.GetDetector())
	assert.Equal(t, "front", cfg.GetCamera())
	assert.Equal(t, 250*time.Millisecond, cfg.GetReplayInterval())
	assert.Equal(t, 0, cfg.GetAngleSampleEvery())

	// omitted fields fall back to defaults
	assert.Equal(t, 160.0, cfg.GetKneeMinDeg())
	assert.Nil(t, cfg.KneeMinDeg)
}

func TestLoadTuningConfig_Rejects(t *testing.T) {
	tests := []struct {
		name string
		file string
		body string
	}{
		{"wrong extension", "tuning.yaml", `{}`},
		{"bad json", "tuning.json", `{"hip_min_deg": }`},
		{"inverted hip band", "tuning.json", `{"hip_min_deg": 170, "hip_max_deg": 150}`},
		{"knee band out of range", "tuning.json", `{"knee_max_deg": 190}`},
		{"negative hysteresis", "tuning.json", `{"elbow_hysteresis_deg": -1}`},
		{"unknown detector", "tuning.json", `{"detector": "turbo"}`},
		{"unknown camera", "tuning.json", `{"camera": "side"}`},
		{"bad replay interval", "tuning.json", `{"replay_interval": "soon"}`},
		{"zero replay interval", "tuning.json", `{"replay_interval": "0s"}`},
		{"bad token ttl", "tuning.json", `{"token_ttl": "forever"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTuningConfig(writeConfig(t, tt.file, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadTuningConfig_MissingFile(t *testing.T) {
	_, err := LoadTuningConfig(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestMustLoadDefaultConfig(t *testing.T) {
	cfg := MustLoadDefaultConfig()
	require.NotNil(t, cfg)

	// The checked-in defaults must agree with the Get* fallbacks.
	empty := EmptyTuningConfig()
	assert.Equal(t, empty.GetHipMinDeg(), cfg.GetHipMinDeg())
	assert.Equal(t, empty.GetKneeMinDeg(), cfg.GetKneeMinDeg())
	assert.Equal(t, empty.GetElbowHysteresisDeg(), cfg.GetElbowHysteresisDeg())
	assert.Equal(t, empty.GetElbowDepthDeg(), cfg.GetElbowDepthDeg())
	assert.Equal(t, empty.GetDetector(), cfg.GetDetector())
	assert.Equal(t, empty.GetTokenTTL(), cfg.GetTokenTTL())
}

func TestRepThresholds(t *testing.T) {
	assert.Equal(t, reps.DefaultThresholds(), EmptyTuningConfig().RepThresholds())

	cfg, err := LoadTuningConfig(writeConfig(t, "tuning.json", `{"hip_min_deg": 110, "elbow_depth_deg": 80}`))
	require.NoError(t, err)
	th := cfg.RepThresholds()
	assert.Equal(t, 110.0, th.HipMin)
	assert.Equal(t, 80.0, th.DepthTarget)
	assert.Equal(t, 10.0, th.Hysteresis)
}
