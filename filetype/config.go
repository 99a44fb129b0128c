package filetype

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds user-defined file types.
//
// Example YAML:
//
//	types:
//	  proto: [".proto"]
//	  bazel: ["BUILD", "WORKSPACE", ".bzl"]
//	  node:  ["/^#!.*\\bnode/"]
//
// A user type with the same name as a builtin replaces it.
type Config struct {
	Types map[string][]string `yaml:"types"`
}

// LoadConfig parses a YAML type configuration from r.
// An empty document yields an empty Config.
func LoadConfig(r io.Reader) (Config, error) {
	var cfg Config

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	err := dec.Decode(&cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse type config: %w", err)
	}

	err = cfg.validate()
	if err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadConfigFile reads a YAML type configuration from path.
// A missing file is reported with an error satisfying errors.Is(err, os.ErrNotExist).
func LoadConfigFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open type config: %w", err)
	}
	defer f.Close()

	cfg, err := LoadConfig(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

func (c Config) validate() error {
	for name, specs := range c.Types {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: empty type name", ErrInvalidSpec)
		}

		if len(specs) == 0 {
			return fmt.Errorf("%w: type %q has no extensions, names or patterns", ErrInvalidSpec, name)
		}

		for _, s := range specs {
			if s == "" {
				return fmt.Errorf("%w: type %q has an empty entry", ErrInvalidSpec, name)
			}

			if s[0] == '/' && (len(s) < 2 || s[len(s)-1] != '/') {
				return fmt.Errorf("%w: type %q pattern %q must end with /", ErrInvalidSpec, name, s)
			}
		}
	}

	return nil
}
