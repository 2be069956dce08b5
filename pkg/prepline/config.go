package prepline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	yaml "gopkg.in/yaml.v3"

	"github.com/prepline/prepline/pkg/dataset"
)

// DataConfig references the input dataset and the splits to prepare.
// Split values are selection expressions, e.g. "train[:80%]".
type DataConfig struct {
	Dataset string            `yaml:"dataset" toml:"dataset" json:"dataset"`
	Splits  map[string]string `yaml:"splits" toml:"splits" json:"splits"`
}

// Config is the full preparation stage configuration document.
type Config struct {
	Data     DataConfig        `yaml:"data" toml:"data" json:"data"`
	Pipeline []map[string]any  `yaml:"pipeline" toml:"pipeline" json:"pipeline"`
	Filters  []map[string]any  `yaml:"filters" toml:"filters" json:"filters"`
	Columns  map[string]string `yaml:"columns" toml:"columns" json:"columns"`
}

// LoadConfig reads a configuration document, selecting the decoder by file
// extension: .yaml/.yml, .toml or .json.
func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".toml":
		err = toml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	default:
		return nil, &ConfigError{Section: "file", Msg: fmt.Sprintf("unsupported config format %q", filepath.Ext(path))}
	}
	if err != nil {
		return nil, &ConfigError{Section: "file", Msg: "parse " + path, Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the structural requirements that do not need the registry:
// dataset reference, well-formed split expressions, tagged step entries, and
// a non-empty output column map.
func (c *Config) Validate() error {
	if c.Data.Dataset == "" {
		return &ConfigError{Section: "data", Msg: "no dataset provided"}
	}
	if len(c.Data.Splits) == 0 {
		return &ConfigError{Section: "data", Msg: "no splits provided"}
	}
	for name, expr := range c.Data.Splits {
		if _, err := dataset.ParseSplit(expr); err != nil {
			return &ConfigError{Section: "data", Msg: fmt.Sprintf("split %q", name), Err: err}
		}
	}
	for i, step := range c.Pipeline {
		if _, err := stepTag(step, "processor_type"); err != nil {
			return &ConfigError{Section: fmt.Sprintf("pipeline[%d]", i), Msg: err.Error()}
		}
	}
	for i, step := range c.Filters {
		if _, err := stepTag(step, "filter_type"); err != nil {
			return &ConfigError{Section: fmt.Sprintf("filters[%d]", i), Msg: err.Error()}
		}
	}
	if len(c.Columns) == 0 {
		return &ConfigError{Section: "columns", Msg: "no output columns provided"}
	}
	return nil
}

func stepTag(step map[string]any, key string) (string, error) {
	raw, ok := step[key]
	if !ok {
		return "", fmt.Errorf("missing %s", key)
	}
	tag, ok := raw.(string)
	if !ok || tag == "" {
		return "", fmt.Errorf("%s must be a non-empty string", key)
	}
	return tag, nil
}

// stepParams returns the step entry without its discriminator key.
func stepParams(step map[string]any, key string) map[string]any {
	params := make(map[string]any, len(step))
	for k, v := range step {
		if k == key {
			continue
		}
		params[k] = v
	}
	return params
}
