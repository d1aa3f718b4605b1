// Package config loads the optional nerprep TOML configuration file.
//
// Example nerprep.toml:
//
//	language = "fr"
//	labels = ["O", "B-PER", "I-PER", "B-LOC", "I-LOC", "B-ORG", "I-ORG"]
//	compression = "xz"
//	progress = true
//	log_level = "info"
//	log_format = "text"
//
// Command-line flags override values read from the file.
package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/FocuswithJustin/nerprep/core/docbin"
	"github.com/FocuswithJustin/nerprep/core/errors"
	"github.com/FocuswithJustin/nerprep/core/ir"
	"github.com/FocuswithJustin/nerprep/internal/logging"
)

// DefaultFile is looked up in the working directory when no file is given.
const DefaultFile = "nerprep.toml"

// Config holds the settings shared by all commands.
type Config struct {
	// Language is the BCP-47 language of the documents.
	Language string `toml:"language"`
	// Labels maps integer ner_tags ids to tag strings, by position.
	Labels []string `toml:"labels"`
	// Compression is the archive compression, "xz" or "gzip".
	Compression string `toml:"compression"`
	// Progress enables the terminal progress bar.
	Progress  bool   `toml:"progress"`
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Language:    ir.DefaultLanguage,
		Compression: string(docbin.CompressionXZ),
		Progress:    true,
		LogLevel:    "info",
		LogFormat:   "text",
	}
}

// Injectable functions for testing
var osReadFile = os.ReadFile

// Load reads the configuration at path on top of the defaults. An empty
// path loads DefaultFile if it exists and the defaults otherwise; an
// explicit path that does not exist is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}

	data, err := osReadFile(path)
	if err != nil {
		if !explicit && os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, errors.NewIO("read config", path, err)
	}

	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, &errors.ParseError{Format: "TOML", Path: path, Message: err.Error(), Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// Validate checks every field.
func (c *Config) Validate() error {
	if _, err := ir.NewVocab(c.Language); err != nil {
		return err
	}
	if _, err := docbin.ParseCompression(c.Compression); err != nil {
		return err
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return errors.NewValidation("log_level", err.Error())
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		return errors.NewValidation("log_format", err.Error())
	}

	seen := make(map[string]int, len(c.Labels))
	for i, l := range c.Labels {
		if l == "" {
			return errors.NewValidation("labels", fmt.Sprintf("label %d is empty", i))
		}
		if j, dup := seen[l]; dup {
			return errors.NewValidation("labels", fmt.Sprintf("label %q listed at %d and %d", l, j, i))
		}
		seen[l] = i
	}
	return nil
}

// Marshal renders the configuration as TOML.
func (c *Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}
