package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical simulation defaults file.
const DefaultConfigPath = "config/sim.defaults.json"

// Generator modes.
const (
	ModeShot       = "shot"
	ModePhaseSpace = "phase_space"
)

// SimConfig is the root configuration of a simulation run. Every field is
// optional; the Get* methods supply defaults for anything left unset, so
// partial configs are safe.
type SimConfig struct {
	// Run params
	Workers       *int   `json:"workers,omitempty"`
	Events        *int   `json:"events,omitempty"`
	Seed          *int64 `json:"seed,omitempty"`
	PrintProgress *int   `json:"print_progress,omitempty"`

	// Primary generator params
	GeneratorMode      *string  `json:"generator_mode,omitempty"` // "shot" or "phase_space"
	ShotMaxMomentumMeV *float64 `json:"shot_max_momentum_mev,omitempty"`
	ShotParticles      []string `json:"shot_particles,omitempty"`
	BeamParticle       *string  `json:"beam_particle,omitempty"`
	BeamMomentumMeV    *float64 `json:"beam_momentum_mev,omitempty"`
	TargetParticle     *string  `json:"target_particle,omitempty"`
	DecayProducts      []string `json:"decay_products,omitempty"`
	MaxWeightSamples   *int     `json:"max_weight_samples,omitempty"`

	// Detector params
	FieldTesla *float64 `json:"field_tesla,omitempty"`

	// Hit aggregation params
	AttributionIndex *bool `json:"attribution_index,omitempty"`
	PoolCapacity     *int  `json:"pool_capacity,omitempty"`

	// Storage
	DBPath *string `json:"db_path,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }
func ptrInt64(v int64) *int64       { return &v }

// EmptySimConfig returns a SimConfig with all fields set to nil.
func EmptySimConfig() *SimConfig {
	return &SimConfig{}
}

// DefaultSimConfig returns a SimConfig with every field populated from the
// built-in defaults. It mirrors config/sim.defaults.json.
func DefaultSimConfig() *SimConfig {
	empty := EmptySimConfig()
	return &SimConfig{
		Workers:            ptrInt(empty.GetWorkers()),
		Events:             ptrInt(empty.GetEvents()),
		Seed:               ptrInt64(empty.GetSeed()),
		PrintProgress:      ptrInt(empty.GetPrintProgress()),
		GeneratorMode:      ptrString(empty.GetGeneratorMode()),
		ShotMaxMomentumMeV: ptrFloat64(empty.GetShotMaxMomentumMeV()),
		ShotParticles:      empty.GetShotParticles(),
		BeamParticle:       ptrString(empty.GetBeamParticle()),
		BeamMomentumMeV:    ptrFloat64(empty.GetBeamMomentumMeV()),
		TargetParticle:     ptrString(empty.GetTargetParticle()),
		DecayProducts:      empty.GetDecayProducts(),
		MaxWeightSamples:   ptrInt(empty.GetMaxWeightSamples()),
		FieldTesla:         ptrFloat64(empty.GetFieldTesla()),
		AttributionIndex:   ptrBool(empty.GetAttributionIndex()),
		PoolCapacity:       ptrInt(empty.GetPoolCapacity()),
		DBPath:             ptrString(empty.GetDBPath()),
	}
}

// LoadSimConfig loads a SimConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadSimConfig(path string) (*SimConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptySimConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath, searching the current
// directory and its parents. Panics if the file cannot be loaded; intended
// for test setup.
func MustLoadDefaultConfig() *SimConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadSimConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *SimConfig) Validate() error {
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", *c.Workers)
	}
	if c.Events != nil && *c.Events < 0 {
		return fmt.Errorf("events must be non-negative, got %d", *c.Events)
	}
	if c.GeneratorMode != nil {
		switch *c.GeneratorMode {
		case ModeShot, ModePhaseSpace:
		default:
			return fmt.Errorf("generator_mode must be %q or %q, got %q", ModeShot, ModePhaseSpace, *c.GeneratorMode)
		}
	}
	if c.ShotMaxMomentumMeV != nil && *c.ShotMaxMomentumMeV <= 0 {
		return fmt.Errorf("shot_max_momentum_mev must be positive, got %f", *c.ShotMaxMomentumMeV)
	}
	if c.BeamMomentumMeV != nil && *c.BeamMomentumMeV < 0 {
		return fmt.Errorf("beam_momentum_mev must be non-negative, got %f", *c.BeamMomentumMeV)
	}
	if c.DecayProducts != nil && len(c.DecayProducts) < 2 {
		return fmt.Errorf("decay_products needs at least 2 particles, got %d", len(c.DecayProducts))
	}
	if c.MaxWeightSamples != nil && *c.MaxWeightSamples < 1 {
		return fmt.Errorf("max_weight_samples must be at least 1, got %d", *c.MaxWeightSamples)
	}
	if c.PoolCapacity != nil && *c.PoolCapacity < 0 {
		return fmt.Errorf("pool_capacity must be non-negative, got %d", *c.PoolCapacity)
	}
	if c.PrintProgress != nil && *c.PrintProgress < 0 {
		return fmt.Errorf("print_progress must be non-negative, got %d", *c.PrintProgress)
	}
	return nil
}

// GetWorkers returns the workers value or the default.
func (c *SimConfig) GetWorkers() int {
	if c.Workers == nil {
		return 4
	}
	return *c.Workers
}

// GetEvents returns the events value or the default.
func (c *SimConfig) GetEvents() int {
	if c.Events == nil {
		return 100
	}
	return *c.Events
}

// GetSeed returns the seed value or the default.
func (c *SimConfig) GetSeed() int64 {
	if c.Seed == nil {
		return 1234
	}
	return *c.Seed
}

// GetPrintProgress returns the print_progress value or the default.
// Zero disables per-event progress lines.
func (c *SimConfig) GetPrintProgress() int {
	if c.PrintProgress == nil {
		return 1
	}
	return *c.PrintProgress
}

// GetGeneratorMode returns the generator_mode value or the default.
func (c *SimConfig) GetGeneratorMode() string {
	if c.GeneratorMode == nil {
		return ModePhaseSpace
	}
	return *c.GeneratorMode
}

// GetShotMaxMomentumMeV returns the shot_max_momentum_mev value or the default.
func (c *SimConfig) GetShotMaxMomentumMeV() float64 {
	if c.ShotMaxMomentumMeV == nil {
		return 500
	}
	return *c.ShotMaxMomentumMeV
}

// GetShotParticles returns the shot_particles value or the default.
func (c *SimConfig) GetShotParticles() []string {
	if c.ShotParticles == nil {
		return []string{"lambda", "proton", "neutron"}
	}
	return append([]string(nil), c.ShotParticles...)
}

// GetBeamParticle returns the beam_particle value or the default.
func (c *SimConfig) GetBeamParticle() string {
	if c.BeamParticle == nil {
		return "kaon-"
	}
	return *c.BeamParticle
}

// GetBeamMomentumMeV returns the beam_momentum_mev value or the default.
func (c *SimConfig) GetBeamMomentumMeV() float64 {
	if c.BeamMomentumMeV == nil {
		return 1000
	}
	return *c.BeamMomentumMeV
}

// GetTargetParticle returns the target_particle value or the default.
func (c *SimConfig) GetTargetParticle() string {
	if c.TargetParticle == nil {
		return "He3"
	}
	return *c.TargetParticle
}

// GetDecayProducts returns the decay_products value or the default.
func (c *SimConfig) GetDecayProducts() []string {
	if c.DecayProducts == nil {
		return []string{"lambda", "proton", "neutron"}
	}
	return append([]string(nil), c.DecayProducts...)
}

// GetMaxWeightSamples returns the max_weight_samples value or the default.
func (c *SimConfig) GetMaxWeightSamples() int {
	if c.MaxWeightSamples == nil {
		return 100000
	}
	return *c.MaxWeightSamples
}

// GetFieldTesla returns the field_tesla value or the default.
func (c *SimConfig) GetFieldTesla() float64 {
	if c.FieldTesla == nil {
		return 1.0
	}
	return *c.FieldTesla
}

// GetAttributionIndex returns the attribution_index value or the default
// (linear scan).
func (c *SimConfig) GetAttributionIndex() bool {
	if c.AttributionIndex == nil {
		return false
	}
	return *c.AttributionIndex
}

// GetPoolCapacity returns the pool_capacity value or the default.
func (c *SimConfig) GetPoolCapacity() int {
	if c.PoolCapacity == nil {
		return 256
	}
	return *c.PoolCapacity
}

// GetDBPath returns the db_path value or the default. An explicitly
// empty path disables persistence.
func (c *SimConfig) GetDBPath() string {
	if c.DBPath == nil {
		return "hits.db"
	}
	return *c.DBPath
}
