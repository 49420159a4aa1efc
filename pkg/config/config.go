// Package config provides YAML/TOML configuration loading with environment variable override.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Load reads a configuration file into the given struct.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// It also applies environment variable overrides using struct tags.
func Load(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	// Expand environment variables in the file
	expanded := os.ExpandEnv(string(data))

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if _, err := toml.Decode(expanded, out); err != nil {
			return fmt.Errorf("parse config file %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal([]byte(expanded), out); err != nil {
			return fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	return ApplyEnv(out)
}

// LoadOrDefault tries to load config from path, falls back to defaults if file doesn't exist.
// Environment overrides are applied either way.
func LoadOrDefault(path string, out any) error {
	if path == "" {
		return ApplyEnv(out)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return ApplyEnv(out)
	}
	return Load(path, out)
}

// ApplyEnv sets struct fields from environment variables.
// It uses the `env` struct tag to determine the env var name.
func ApplyEnv(v any) error {
	val := reflect.ValueOf(v)
	if val.Kind() != reflect.Ptr || val.IsNil() {
		return fmt.Errorf("config: ApplyEnv needs a non-nil pointer, got %T", v)
	}
	return applyEnvOverrides(val.Elem())
}

func applyEnvOverrides(val reflect.Value) error {
	if val.Kind() != reflect.Struct {
		return nil
	}

	t := val.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := val.Field(i)

		if !fieldVal.CanSet() {
			continue
		}

		// Recurse into struct fields
		if fieldVal.Kind() == reflect.Struct {
			if err := applyEnvOverrides(fieldVal); err != nil {
				return err
			}
			continue
		}

		envTag := field.Tag.Get("env")
		if envTag == "" {
			continue
		}

		envVal, ok := os.LookupEnv(envTag)
		if !ok {
			continue
		}

		if err := setField(fieldVal, envVal); err != nil {
			return fmt.Errorf("env %s: %w", envTag, err)
		}
	}
	return nil
}

func setField(fieldVal reflect.Value, envVal string) error {
	if fieldVal.Type() == durationType {
		d, err := time.ParseDuration(strings.TrimSpace(envVal))
		if err != nil {
			return err
		}
		fieldVal.SetInt(int64(d))
		return nil
	}

	switch fieldVal.Kind() {
	case reflect.String:
		fieldVal.SetString(envVal)
	case reflect.Int, reflect.Int64:
		var n int64
		if _, err := fmt.Sscanf(envVal, "%d", &n); err != nil {
			return fmt.Errorf("parse int %q: %w", envVal, err)
		}
		fieldVal.SetInt(n)
	case reflect.Float64:
		var f float64
		if _, err := fmt.Sscanf(envVal, "%f", &f); err != nil {
			return fmt.Errorf("parse float %q: %w", envVal, err)
		}
		fieldVal.SetFloat(f)
	case reflect.Bool:
		fieldVal.SetBool(strings.EqualFold(envVal, "true") || envVal == "1")
	case reflect.Slice:
		if fieldVal.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", fieldVal.Type())
		}
		fieldVal.Set(reflect.ValueOf(SplitList(envVal)))
	}
	return nil
}

// SplitList splits a comma-separated value, dropping blank items.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
