package prepline

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
data:
  dataset: ./data/imdb
  splits:
    train: "train[:80%]"
    test: "train[80%:]"
pipeline:
  - processor_type: jinja
    template: "{{ item.text }}"
    output_column: prompt
filters:
  - filter_type: expr
    expression: "item.label >= 0"
columns:
  input: prompt
  labels: label
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Data.Dataset != "./data/imdb" {
		t.Fatalf("dataset: %q", cfg.Data.Dataset)
	}
	if cfg.Data.Splits["train"] != "train[:80%]" {
		t.Fatalf("splits: %v", cfg.Data.Splits)
	}
	if len(cfg.Pipeline) != 1 || len(cfg.Filters) != 1 {
		t.Fatalf("steps: %d pipeline, %d filters", len(cfg.Pipeline), len(cfg.Filters))
	}
	if cfg.Pipeline[0]["template"] != "{{ item.text }}" {
		t.Fatalf("pipeline params: %v", cfg.Pipeline[0])
	}
	if cfg.Columns["input"] != "prompt" {
		t.Fatalf("columns: %v", cfg.Columns)
	}
}

func TestLoadConfigJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
  "data": {"dataset": "d", "splits": {"train": "train"}},
  "pipeline": [],
  "columns": {"input": "text"}
}`)
	if _, err := LoadConfig(path); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfigTOML(t *testing.T) {
	path := writeConfig(t, "config.toml", `
[data]
dataset = "d"
[data.splits]
train = "train"

[columns]
input = "text"
`)
	if _, err := LoadConfig(path); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfigUnsupportedExtension(t *testing.T) {
	path := writeConfig(t, "config.ini", "x")
	_, err := LoadConfig(path)
	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Data:    DataConfig{Dataset: "d", Splits: map[string]string{"train": "train"}},
			Columns: map[string]string{"input": "text"},
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatal(err)
	}

	c := valid()
	c.Data.Dataset = ""
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for missing dataset")
	}

	c = valid()
	c.Data.Splits = nil
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for missing splits")
	}

	c = valid()
	c.Data.Splits = map[string]string{"train": "train[80%:120%]"}
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for out-of-range percent bound")
	}

	c = valid()
	c.Data.Splits = map[string]string{"train": "train[1:2:3]"}
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for malformed split expression")
	}

	c = valid()
	c.Columns = nil
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for missing columns")
	}

	c = valid()
	c.Pipeline = []map[string]any{{"template": "x"}}
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for untagged pipeline step")
	}

	c = valid()
	c.Filters = []map[string]any{{"filter_type": 7}}
	if err := c.Validate(); err == nil {
		t.Fatal("expected error for non-string filter tag")
	}
}
