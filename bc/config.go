package bc

import (
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/biascorrect/backend"
	"github.com/YuminosukeSato/biascorrect/modelselection"
	"github.com/YuminosukeSato/biascorrect/pkg/errors"
)

// DefaultImportanceEstimators is the forest size used to rank features.
const DefaultImportanceEstimators = 100

// Config is the immutable configuration of a training run.
type Config struct {
	Method  backend.Method
	Backend backend.Config // nil selects the defaults of Method

	TestFraction         float64
	Seed                 *uint64 // split and importance seed; nil draws fresh entropy
	ImportanceEstimators int
}

// DefaultConfig returns the xgboost configuration with default
// hyperparameters, a 0.2 test fraction and no fixed seed.
func DefaultConfig() Config {
	return Config{
		Method:               backend.MethodXGBoost,
		Backend:              backend.DefaultXGBoostConfig(),
		TestFraction:         modelselection.DefaultTestFraction,
		ImportanceEstimators: DefaultImportanceEstimators,
	}
}

// resolve validates cfg and fills in the backend defaults.
func (cfg Config) resolve() (Config, error) {
	method, err := backend.ParseMethod(string(cfg.Method))
	if err != nil {
		return Config{}, err
	}
	if cfg.Backend == nil {
		if cfg.Backend, err = backend.DefaultConfig(method); err != nil {
			return Config{}, err
		}
	}
	if cfg.Backend.Method() != method {
		return Config{}, errors.NewConfigError(string(method), "backend",
			fmt.Sprintf("backend config is for %q", cfg.Backend.Method()))
	}
	if err := cfg.Backend.Validate(); err != nil {
		return Config{}, err
	}
	if math.IsNaN(cfg.TestFraction) || cfg.TestFraction <= 0 || cfg.TestFraction >= 1 {
		return Config{}, errors.NewInvalidFractionError(cfg.TestFraction, 0)
	}
	if cfg.ImportanceEstimators < 1 {
		return Config{}, errors.NewConfigError("random_forest", "importance_estimators",
			fmt.Sprintf("must be >= 1, got %d", cfg.ImportanceEstimators))
	}
	cfg.Method = method
	return cfg, nil
}

// fileConfig is the YAML layout read by LoadConfig.
type fileConfig struct {
	Method               string         `yaml:"method"`
	TestFraction         *float64       `yaml:"test_fraction"`
	Seed                 *uint64        `yaml:"seed"`
	ImportanceEstimators *int           `yaml:"importance_estimators"`
	Params               map[string]any `yaml:"params"`
}

// LoadConfig reads a YAML training configuration:
//
//	method: xgboost
//	test_fraction: 0.2
//	seed: 42
//	importance_estimators: 100
//	params:
//	  objective: reg:squarederror
//	  n_estimators: 100
//	  learning_rate: 0.1
//	  max_depth: 3
//
// Omitted top-level keys take their DefaultConfig values. params is
// interpreted by backend.ConfigFromMap, so every xgboost key is required.
func LoadConfig(r io.Reader) (Config, error) {
	var fc fileConfig
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && err != io.EOF {
		return Config{}, errors.Wrap(err, "failed to decode config")
	}

	cfg := DefaultConfig()
	if fc.Method != "" {
		method, err := backend.ParseMethod(fc.Method)
		if err != nil {
			return Config{}, err
		}
		cfg.Method = method
	}
	bcfg, err := backend.ConfigFromMap(cfg.Method, fc.Params)
	if err != nil {
		return Config{}, err
	}
	cfg.Backend = bcfg
	if fc.TestFraction != nil {
		cfg.TestFraction = *fc.TestFraction
	}
	cfg.Seed = fc.Seed
	if fc.ImportanceEstimators != nil {
		cfg.ImportanceEstimators = *fc.ImportanceEstimators
	}
	return cfg.resolve()
}

// LoadConfigFile reads a YAML configuration from path.
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "failed to open config %s", path)
	}
	defer f.Close()
	return LoadConfig(f)
}
