// Package config loads and validates the run configuration from YAML,
// with environment and CLI overrides layered on top. Every recognized
// key is enumerated; unknown keys fail the load rather than being
// silently ignored.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides. A variable such as
// TRAINFORGE_OPTIMIZER__LR=0.05 overrides optimizer.lr.
const EnvPrefix = "TRAINFORGE_"

// Config is the full run configuration.
type Config struct {
	Seed     int64          `koanf:"seed"`
	Device   string         `koanf:"device"`
	LogEvery int            `koanf:"log_every"`
	Budget   BudgetConfig   `koanf:"budget"`
	Dataset  DatasetConfig  `koanf:"dataset"`
	Loader   LoaderConfig   `koanf:"loader"`
	Model    ModelConfig    `koanf:"model"`
	Optim    OptimConfig    `koanf:"optimizer"`
	Schedule ScheduleConfig `koanf:"schedule"`
	Policies []PolicyConfig `koanf:"policies"`
}

// BudgetConfig is the session duration budget.
type BudgetConfig struct {
	Value int    `koanf:"value"`
	Unit  string `koanf:"unit"`
}

// DatasetConfig shapes the synthetic dataset.
type DatasetConfig struct {
	Size     int `koanf:"size"`
	EvalSize int `koanf:"eval_size"`
	Height   int `koanf:"height"`
	Width    int `koanf:"width"`
	Classes  int `koanf:"classes"`
}

// LoaderConfig shapes batch assembly.
type LoaderConfig struct {
	BatchSize  int  `koanf:"batch_size"`
	NumWorkers int  `koanf:"num_workers"`
	DropLast   bool `koanf:"drop_last"`
}

// ModelConfig shapes the reference classifier.
type ModelConfig struct {
	FeatureGrid int     `koanf:"feature_grid"`
	InitScale   float64 `koanf:"init_scale"`
}

// OptimConfig holds optimizer hyperparameters.
type OptimConfig struct {
	LR          float64 `koanf:"lr"`
	Momentum    float64 `koanf:"momentum"`
	WeightDecay float64 `koanf:"weight_decay"`
}

// ScheduleConfig selects and parameterizes a learning-rate schedule.
type ScheduleConfig struct {
	Name       string    `koanf:"name"`
	Scale      float64   `koanf:"scale"`
	Warmup     float64   `koanf:"warmup"`
	Floor      float64   `koanf:"floor"`
	Gamma      float64   `koanf:"gamma"`
	Milestones []float64 `koanf:"milestones"`
}

// PolicyConfig names one augmentation policy and its parameters. The
// params are validated by the policy registry, which rejects unknown
// keys per policy.
type PolicyConfig struct {
	Name   string         `koanf:"name"`
	Params map[string]any `koanf:"params"`
}

// Overrides captures CLI supplied values; zero values leave the config
// untouched.
type Overrides struct {
	Device      string
	BudgetValue int
	BudgetUnit  string
	BatchSize   int
	NumWorkers  int
	Seed        int64
	LogEvery    int
}

// Load reads, overlays env overrides on, and validates a Config.
func Load(path string) (*Config, error) {
	return load(file.Provider(path))
}

// Parse loads a Config from raw YAML bytes.
func Parse(raw []byte) (*Config, error) {
	return load(rawbytes.Provider(raw))
}

func load(provider koanf.Provider) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(provider, yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := checkKeys(k.Keys()); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("load env overrides: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the baseline configuration a loaded file is overlaid
// onto.
func Default() *Config {
	return &Config{
		Seed:     42,
		Device:   "cpu",
		LogEvery: 50,
		Budget:   BudgetConfig{Value: 3, Unit: "epochs"},
		Dataset:  DatasetConfig{Size: 2048, EvalSize: 256, Height: 28, Width: 28, Classes: 10},
		Loader:   LoaderConfig{BatchSize: 64, NumWorkers: 2},
		Model:    ModelConfig{FeatureGrid: 7, InitScale: 0.01},
		Optim:    OptimConfig{LR: 0.1, Momentum: 0.9},
		Schedule: ScheduleConfig{Name: "constant", Scale: 1},
	}
}

// ApplyOverrides updates cfg using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.Device != "" {
		c.Device = o.Device
	}
	if o.BudgetValue > 0 {
		c.Budget.Value = o.BudgetValue
	}
	if o.BudgetUnit != "" {
		c.Budget.Unit = o.BudgetUnit
	}
	if o.BatchSize > 0 {
		c.Loader.BatchSize = o.BatchSize
	}
	if o.NumWorkers > 0 {
		c.Loader.NumWorkers = o.NumWorkers
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.LogEvery > 0 {
		c.LogEvery = o.LogEvery
	}
}

// Validate verifies the config is runnable. Collaborator-specific
// hyperparameters get their deep validation from the providers
// themselves at build time.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Budget.Value <= 0 {
		return fmt.Errorf("budget.value must be > 0 (got %d)", c.Budget.Value)
	}
	if c.Budget.Unit != "epochs" && c.Budget.Unit != "steps" {
		return fmt.Errorf("budget.unit must be epochs or steps (got %q)", c.Budget.Unit)
	}
	if c.Dataset.Size <= 0 {
		return fmt.Errorf("dataset.size must be > 0 (got %d)", c.Dataset.Size)
	}
	if c.Dataset.EvalSize < 0 {
		return fmt.Errorf("dataset.eval_size must be >= 0 (got %d)", c.Dataset.EvalSize)
	}
	if c.Loader.BatchSize <= 0 {
		return fmt.Errorf("loader.batch_size must be > 0 (got %d)", c.Loader.BatchSize)
	}
	if c.Loader.NumWorkers <= 0 {
		return fmt.Errorf("loader.num_workers must be > 0 (got %d)", c.Loader.NumWorkers)
	}
	if c.LogEvery <= 0 {
		c.LogEvery = 50
	}
	for i, p := range c.Policies {
		if p.Name == "" {
			return fmt.Errorf("policies[%d].name is required", i)
		}
	}
	return nil
}

// knownKeys enumerates every recognized scalar key outside list
// sections.
var knownKeys = map[string]bool{
	"seed":                   true,
	"device":                 true,
	"log_every":              true,
	"budget.value":           true,
	"budget.unit":            true,
	"dataset.size":           true,
	"dataset.eval_size":      true,
	"dataset.height":         true,
	"dataset.width":          true,
	"dataset.classes":        true,
	"loader.batch_size":      true,
	"loader.num_workers":     true,
	"loader.drop_last":       true,
	"model.feature_grid":     true,
	"model.init_scale":       true,
	"optimizer.lr":           true,
	"optimizer.momentum":     true,
	"optimizer.weight_decay": true,
	"schedule.name":          true,
	"schedule.scale":         true,
	"schedule.warmup":        true,
	"schedule.floor":         true,
	"schedule.gamma":         true,
	"schedule.milestones":    true,
	"policies":               true,
}

func checkKeys(keys []string) error {
	var unknown []string
	for _, key := range keys {
		if knownKeys[key] || policyKey(key) || milestoneKey(key) {
			continue
		}
		unknown = append(unknown, key)
	}
	if len(unknown) > 0 {
		return fmt.Errorf("unknown config keys: %s", strings.Join(unknown, ", "))
	}
	return nil
}

// policyKey accepts policies.N.name and anything under
// policies.N.params; the registry validates params per policy.
func policyKey(key string) bool {
	parts := strings.Split(key, ".")
	if len(parts) < 3 || parts[0] != "policies" || !isIndex(parts[1]) {
		return false
	}
	return parts[2] == "name" || parts[2] == "params"
}

func milestoneKey(key string) bool {
	parts := strings.Split(key, ".")
	return len(parts) == 3 && parts[0] == "schedule" && parts[1] == "milestones" && isIndex(parts[2])
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
