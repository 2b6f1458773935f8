// Package config loads runtime configuration from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/ayusman/facedecode/internal/detector"
)

// Prefix is prepended to every environment variable name.
const Prefix = "FACEDECODE_"

// Config is the complete runtime configuration.
type Config struct {
	Detector detector.Config

	// DBPath enables persistence when set.
	DBPath string

	LogLevel string `validate:"omitempty,oneof=trace debug info warn warning error fatal panic"`
	LogFile  string
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Detector: detector.DefaultConfig(),
		LogLevel: "info",
	}
}

var validate = validator.New()

// Validate checks the whole configuration.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", detector.ErrInvalidConfig, err)
	}
	return nil
}

// Load reads the given .env files, or ./.env when none are given, and applies
// FACEDECODE_* variables over Default. Missing .env files are ignored;
// variables already set in the environment win over file values.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	cfg := Default()
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	d := &c.Detector

	if err := envInt("INPUT_SIZE", &d.InputSize); err != nil {
		return err
	}
	if err := envInts("STRIDES", &d.Strides); err != nil {
		return err
	}
	if err := envInt("ANCHORS_PER_LOCATION", &d.AnchorsPerLocation); err != nil {
		return err
	}
	if err := envInt("BATCH_WORKERS", &d.BatchWorkers); err != nil {
		return err
	}
	if err := envFloat("CONFIDENCE_THRESHOLD", &d.Params.ConfidenceThreshold); err != nil {
		return err
	}
	if err := envFloat("IOU_THRESHOLD", &d.Params.IOUThreshold); err != nil {
		return err
	}
	if err := envInt("MIN_FACE_SIZE", &d.Params.MinFaceSize); err != nil {
		return err
	}
	if err := envBool("RETURN_LANDMARKS", &d.Params.ReturnLandmarks); err != nil {
		return err
	}

	if v, ok := lookup("DB_PATH"); ok {
		c.DBPath = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		c.LogLevel = strings.ToLower(v)
	}
	if v, ok := lookup("LOG_FILE"); ok {
		c.LogFile = v
	}

	return nil
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(Prefix + name)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func envError(name, value string, err error) error {
	return fmt.Errorf("%w: %s%s=%q: %v", detector.ErrInvalidConfig, Prefix, name, value, err)
}

func envInt(name string, dst *int) error {
	v, ok := lookup(name)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return envError(name, v, err)
	}
	*dst = n
	return nil
}

func envInts(name string, dst *[]int) error {
	v, ok := lookup(name)
	if !ok {
		return nil
	}
	ints, err := ParseInts(v)
	if err != nil {
		return envError(name, v, err)
	}
	*dst = ints
	return nil
}

func envFloat(name string, dst *float32) error {
	v, ok := lookup(name)
	if !ok {
		return nil
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return envError(name, v, err)
	}
	*dst = float32(f)
	return nil
}

func envBool(name string, dst *bool) error {
	v, ok := lookup(name)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return envError(name, v, err)
	}
	*dst = b
	return nil
}

// ParseInts parses a comma separated list such as "8,16,32".
func ParseInts(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty list")
	}
	return out, nil
}
