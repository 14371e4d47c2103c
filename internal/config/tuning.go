package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/banshee-data/pushup.report/internal/reps"
	"github.com/banshee-data/pushup.report/internal/security"
)

// maxFileSize bounds the tuning file read at startup.
const maxFileSize = 1 << 20

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for the rep counter and the
// capture session. The schema matches the /api/config endpoint so the same
// JSON can be used for startup configuration and inspection.
type TuningConfig struct {
	// Alignment bands (degrees, inclusive)
	HipMinDeg  *float64 `json:"hip_min_deg,omitempty"`
	HipMaxDeg  *float64 `json:"hip_max_deg,omitempty"`
	KneeMinDeg *float64 `json:"knee_min_deg,omitempty"`
	KneeMaxDeg *float64 `json:"knee_max_deg,omitempty"`

	// Elbow motion params
	ElbowHysteresisDeg *float64 `json:"elbow_hysteresis_deg,omitempty"`
	ElbowDepthDeg      *float64 `json:"elbow_depth_deg,omitempty"`

	// Capture session params
	Detector         *string `json:"detector,omitempty"`        // "fast" or "accurate"
	Camera           *string `json:"camera,omitempty"`          // "front" or "back"
	ReplayInterval   *string `json:"replay_interval,omitempty"` // duration string like "100ms"
	AngleSampleEvery *int    `json:"angle_sample_every,omitempty"`

	// Local auth provider params
	TokenTTL *string `json:"token_ttl,omitempty"` // duration string like "720h"
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from the defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if err := security.ValidateInputFile(cleanPath, maxFileSize, ".json"); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from cmd/tools/x/
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if err := validateBand("hip", c.GetHipMinDeg(), c.GetHipMaxDeg()); err != nil {
		return err
	}
	if err := validateBand("knee", c.GetKneeMinDeg(), c.GetKneeMaxDeg()); err != nil {
		return err
	}

	if c.ElbowHysteresisDeg != nil && *c.ElbowHysteresisDeg < 0 {
		return fmt.Errorf("elbow_hysteresis_deg must be non-negative, got %f", *c.ElbowHysteresisDeg)
	}
	if c.ElbowDepthDeg != nil && (*c.ElbowDepthDeg < 0 || *c.ElbowDepthDeg > 180) {
		return fmt.Errorf("elbow_depth_deg must be between 0 and 180, got %f", *c.ElbowDepthDeg)
	}

	if c.Detector != nil && *c.Detector != "fast" && *c.Detector != "accurate" {
		return fmt.Errorf("detector must be \"fast\" or \"accurate\", got %q", *c.Detector)
	}
	if c.Camera != nil && *c.Camera != "front" && *c.Camera != "back" {
		return fmt.Errorf("camera must be \"front\" or \"back\", got %q", *c.Camera)
	}

	if c.ReplayInterval != nil && *c.ReplayInterval != "" {
		d, err := time.ParseDuration(*c.ReplayInterval)
		if err != nil {
			return fmt.Errorf("invalid replay_interval '%s': %w", *c.ReplayInterval, err)
		}
		if d <= 0 {
			return fmt.Errorf("replay_interval must be positive, got %s", d)
		}
	}
	if c.TokenTTL != nil && *c.TokenTTL != "" {
		if _, err := time.ParseDuration(*c.TokenTTL); err != nil {
			return fmt.Errorf("invalid token_ttl '%s': %w", *c.TokenTTL, err)
		}
	}

	if c.AngleSampleEvery != nil && *c.AngleSampleEvery < 0 {
		return fmt.Errorf("angle_sample_every must be non-negative, got %d", *c.AngleSampleEvery)
	}

	return nil
}

func validateBand(name string, lo, hi float64) error {
	if lo < 0 || hi > 180 {
		return fmt.Errorf("%s band must lie within [0, 180], got [%f, %f]", name, lo, hi)
	}
	if lo > hi {
		return fmt.Errorf("%s band is inverted: min %f > max %f", name, lo, hi)
	}
	return nil
}

// GetHipMinDeg returns the hip_min_deg value or the default.
func (c *TuningConfig) GetHipMinDeg() float64 {
	if c.HipMinDeg == nil {
		return 120.0
	}
	return *c.HipMinDeg
}

// GetHipMaxDeg returns the hip_max_deg value or the default.
func (c *TuningConfig) GetHipMaxDeg() float64 {
	if c.HipMaxDeg == nil {
		return 180.0
	}
	return *c.HipMaxDeg
}

// GetKneeMinDeg returns the knee_min_deg value or the default.
func (c *TuningConfig) GetKneeMinDeg() float64 {
	if c.KneeMinDeg == nil {
		return 160.0
	}
	return *c.KneeMinDeg
}

// GetKneeMaxDeg returns the knee_max_deg value or the default.
func (c *TuningConfig) GetKneeMaxDeg() float64 {
	if c.KneeMaxDeg == nil {
		return 180.0
	}
	return *c.KneeMaxDeg
}

// GetElbowHysteresisDeg returns the elbow_hysteresis_deg value or the default.
func (c *TuningConfig) GetElbowHysteresisDeg() float64 {
	if c.ElbowHysteresisDeg == nil {
		return 10.0
	}
	return *c.ElbowHysteresisDeg
}

// GetElbowDepthDeg returns the elbow_depth_deg value or the default.
func (c *TuningConfig) GetElbowDepthDeg() float64 {
	if c.ElbowDepthDeg == nil {
		return 90.0
	}
	return *c.ElbowDepthDeg
}

// GetDetector returns the detector value or the default.
func (c *TuningConfig) GetDetector() string {
	if c.Detector == nil || *c.Detector == "" {
		return "accurate"
	}
	return *c.Detector
}

// GetCamera returns the camera value or the default.
func (c *TuningConfig) GetCamera() string {
	if c.Camera == nil || *c.Camera == "" {
		return "back"
	}
	return *c.Camera
}

// GetReplayInterval parses and returns the ReplayInterval as a time.Duration.
func (c *TuningConfig) GetReplayInterval() time.Duration {
	if c.ReplayInterval == nil || *c.ReplayInterval == "" {
		return 100 * time.Millisecond // default
	}
	d, err := time.ParseDuration(*c.ReplayInterval)
	if err != nil || d <= 0 {
		return 100 * time.Millisecond // default on parse error
	}
	return d
}

// GetAngleSampleEvery returns how many processed poses pass between stored
// angle samples. Zero disables sampling.
func (c *TuningConfig) GetAngleSampleEvery() int {
	if c.AngleSampleEvery == nil {
		return 5
	}
	return *c.AngleSampleEvery
}

// GetTokenTTL parses and returns the TokenTTL as a time.Duration.
func (c *TuningConfig) GetTokenTTL() time.Duration {
	if c.TokenTTL == nil || *c.TokenTTL == "" {
		return 30 * 24 * time.Hour
	}
	d, err := time.ParseDuration(*c.TokenTTL)
	if err != nil {
		return 30 * 24 * time.Hour
	}
	return d
}

// RepThresholds collects the alignment bands and elbow motion params for the
// rep counter.
func (c *TuningConfig) RepThresholds() reps.Thresholds {
	return reps.Thresholds{
		HipMin:      c.GetHipMinDeg(),
		HipMax:      c.GetHipMaxDeg(),
		KneeMin:     c.GetKneeMinDeg(),
		KneeMax:     c.GetKneeMaxDeg(),
		Hysteresis:  c.GetElbowHysteresisDeg(),
		DepthTarget: c.GetElbowDepthDeg(),
	}
}
