package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

func loadFromFile(path string, target *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read file: %w", err)
	}
	if err := yaml.Unmarshal(data, target); err != nil {
		return fmt.Errorf("config: decode yaml: %w", err)
	}
	return nil
}

// LoadEnv overrides target from the environment. Each leaf field is keyed by
// the `env` tags on its path joined with "_" under the WEATHER prefix, e.g.
// WEATHER_SENSOR_RETRY_MAX_ATTEMPTS. Fields tagged `env:"-"` are skipped.
func LoadEnv(target any) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return errors.New("config: target must be pointer to struct")
	}
	return walkEnv(v.Elem(), envPrefix)
}

func walkEnv(v reflect.Value, prefix string) error {
	for _, f := range reflect.VisibleFields(v.Type()) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		tag := f.Tag.Get("env")
		if tag == "-" {
			continue
		}
		if tag == "" {
			tag = strings.ToUpper(f.Name)
		}
		key := prefix + "_" + tag

		field := v.FieldByIndex(f.Index)
		if field.Kind() == reflect.Struct {
			if err := walkEnv(field, key); err != nil {
				return err
			}
			continue
		}

		raw, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		if err := setFromString(field.Addr().Interface(), raw); err != nil {
			return fmt.Errorf("config: parse %s: %w", key, err)
		}
	}
	return nil
}

// setFromString parses raw into the value dst points at. Only the kinds the
// configuration actually uses are supported.
func setFromString(dst any, raw string) error {
	var err error
	switch p := dst.(type) {
	case *string:
		*p = raw
	case *bool:
		*p, err = strconv.ParseBool(raw)
	case *int:
		*p, err = strconv.Atoi(raw)
	case *uint8:
		var n uint64
		n, err = strconv.ParseUint(raw, 10, 8)
		*p = uint8(n)
	case *float64:
		*p, err = strconv.ParseFloat(raw, 64)
	case *time.Duration:
		*p, err = time.ParseDuration(raw)
	default:
		return fmt.Errorf("unsupported field type %T", dst)
	}
	return err
}
