package superpoint

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"gopkg.in/yaml.v3"

	"github.com/johnhalbert/vr-project-backup-sub006/ml/inference"
)

// Defaults applied by NewConfig and by the loaders for fields a config leaves out.
const (
	DefaultNumThreads  = 4
	DefaultNFeatures   = 1000
	DefaultScaleFactor = 1.2
	DefaultNLevels     = 8
	DefaultNMSRadius   = 4.0
	DefaultThreshold   = 0.005
	DefaultLogEvery    = 10
)

// Config describes how to build an Extractor.
type Config struct {
	ModelPath  string                 `json:"model_path" yaml:"model_path"`
	Delegate   inference.DelegateMode `json:"delegate,omitempty" yaml:"delegate,omitempty"`
	DevicePath string                 `json:"device_path,omitempty" yaml:"device_path,omitempty"`
	NumThreads int                    `json:"num_threads,omitempty" yaml:"num_threads,omitempty"`

	// NFeatures caps the number of returned keypoints. Zero or less means no limit.
	NFeatures   int     `json:"n_features" yaml:"n_features"`
	ScaleFactor float64 `json:"scale_factor,omitempty" yaml:"scale_factor,omitempty"`
	NLevels     int     `json:"n_levels,omitempty" yaml:"n_levels,omitempty"`
	// NMSRadius is the suppression radius in grid cells. Zero disables suppression.
	NMSRadius float64 `json:"nms_radius" yaml:"nms_radius"`
	// Threshold is the score a cell must exceed. Zero keeps every positive score.
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// SkipPyramid disables building the compatibility image pyramid on every frame.
	SkipPyramid bool `json:"skip_pyramid,omitempty" yaml:"skip_pyramid,omitempty"`
	// LogEvery is the number of frames between periodic timing logs. Negative disables them.
	LogEvery int `json:"log_every,omitempty" yaml:"log_every,omitempty"`
}

// NewConfig returns a config for the given model with every other field at its default.
func NewConfig(modelPath string) *Config {
	return &Config{
		ModelPath:   modelPath,
		Delegate:    inference.DelegateAuto,
		NumThreads:  DefaultNumThreads,
		NFeatures:   DefaultNFeatures,
		ScaleFactor: DefaultScaleFactor,
		NLevels:     DefaultNLevels,
		NMSRadius:   DefaultNMSRadius,
		Threshold:   DefaultThreshold,
		LogEvery:    DefaultLogEvery,
	}
}

// fillDefaults sets zero-valued fields for which zero is not meaningful. NFeatures, NMSRadius and
// Threshold are left alone since zero is a valid setting for each.
func (cfg *Config) fillDefaults() {
	if cfg.Delegate == "" {
		cfg.Delegate = inference.DelegateAuto
	}
	if cfg.NumThreads == 0 {
		cfg.NumThreads = DefaultNumThreads
	}
	if cfg.ScaleFactor == 0 {
		cfg.ScaleFactor = DefaultScaleFactor
	}
	if cfg.NLevels == 0 {
		cfg.NLevels = DefaultNLevels
	}
	if cfg.LogEvery == 0 {
		cfg.LogEvery = DefaultLogEvery
	}
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if cfg.ModelPath == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "model_path")
	}
	if err := cfg.Delegate.Validate(); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if cfg.NumThreads < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("num_threads must not be negative, got %d", cfg.NumThreads))
	}
	if math.IsNaN(cfg.ScaleFactor) || math.IsInf(cfg.ScaleFactor, 0) || cfg.ScaleFactor < 1 {
		return utils.NewConfigValidationError(path, errors.Errorf("scale_factor must be a finite number of at least 1, got %v", cfg.ScaleFactor))
	}
	if cfg.NLevels <= 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("n_levels must be positive, got %d", cfg.NLevels))
	}
	if math.IsNaN(cfg.NMSRadius) || math.IsInf(cfg.NMSRadius, 0) || cfg.NMSRadius < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("nms_radius must be a finite non-negative number, got %v", cfg.NMSRadius))
	}
	if math.IsNaN(cfg.Threshold) || cfg.Threshold < 0 {
		return utils.NewConfigValidationError(path, errors.Errorf("threshold must be a non-negative number, got %v", cfg.Threshold))
	}
	return nil
}

// LoadConfig reads a JSON or YAML config file, picking the format from the file extension.
// Fields absent from the file keep their defaults; fields present are taken as written.
func LoadConfig(path string) (*Config, error) {
	//nolint:gosec
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read config %q", path)
	}
	cfg := NewConfig("")
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".json", "":
		err = json.Unmarshal(data, cfg)
	default:
		return nil, errors.Errorf("unsupported config extension %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "cannot parse config %q", path)
	}
	cfg.fillDefaults()
	return cfg, nil
}

// ConfigFromAttributes decodes a loosely typed attribute map, such as a component's attributes
// block, into a Config. Keys use the JSON field names.
func ConfigFromAttributes(attrs map[string]interface{}) (*Config, error) {
	cfg := NewConfig("")
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(attrs); err != nil {
		return nil, errors.Wrap(err, "cannot decode superpoint attributes")
	}
	cfg.fillDefaults()
	return cfg, nil
}
