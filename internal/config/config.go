// Package config loads the SensApp process configuration from environment
// variables, with an optional YAML file supplying defaults ahead of them.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every knob from spec.md's environment variable table.
type Config struct {
	InstanceID              uint64
	Port                    int
	Endpoint                string
	HTTPBodyLimit           int64
	BatchSize               int
	SensorSalt              string
	StorageConnectionString string
	StorageSyncTimeout      time.Duration
}

// DerivationSalt combines SensorSalt and InstanceID into the single salt
// string passed to datamodel.DeriveUUID, so that deployments sharing a
// SensorSalt but assigned distinct InstanceIDs derive disjoint sensor UUIDs
// for otherwise-identical (name, unit, labels) tuples.
func (c *Config) DerivationSalt() string {
	return fmt.Sprintf("%s:%d", c.SensorSalt, c.InstanceID)
}

func defaults() Config {
	return Config{
		InstanceID:         0,
		Port:               3000,
		Endpoint:           "127.0.0.1",
		HTTPBodyLimit:      10 * 1000 * 1000,
		BatchSize:          8192,
		SensorSalt:         "sensapp",
		StorageSyncTimeout: 15 * time.Second,
	}
}

// Load builds a Config starting from defaults, optionally overlaid by
// yamlPath (if non-empty), then overridden by environment variables. Env
// vars win over the YAML file, matching the teacher's "file seeds defaults,
// explicit source wins" layering in cmd/timemachine's applyYAMLDefaults.
func Load(yamlPath string) (*Config, error) {
	cfg := defaults()

	if yamlPath != "" {
		if err := applyYAMLDefaults(&cfg, yamlPath); err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if cfg.BatchSize < 1 {
		return nil, fmt.Errorf("config: BATCH_SIZE must be >= 1, got %d", cfg.BatchSize)
	}
	if cfg.StorageConnectionString == "" {
		return nil, fmt.Errorf("config: STORAGE_CONNECTION_STRING is required")
	}

	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	if v, ok := os.LookupEnv("INSTANCE_ID"); ok {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("INSTANCE_ID: %w", err)
		}
		cfg.InstanceID = id
	}
	if v, ok := os.LookupEnv("PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		cfg.Port = port
	}
	if v, ok := os.LookupEnv("ENDPOINT"); ok {
		cfg.Endpoint = v
	}
	if v, ok := os.LookupEnv("HTTP_BODY_LIMIT"); ok {
		limit, err := ParseByteSize(v)
		if err != nil {
			return fmt.Errorf("HTTP_BODY_LIMIT: %w", err)
		}
		cfg.HTTPBodyLimit = limit
	}
	if v, ok := os.LookupEnv("BATCH_SIZE"); ok {
		size, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BATCH_SIZE: %w", err)
		}
		cfg.BatchSize = size
	}
	if v, ok := os.LookupEnv("SENSOR_SALT"); ok {
		cfg.SensorSalt = v
	}
	if v, ok := os.LookupEnv("STORAGE_CONNECTION_STRING"); ok {
		cfg.StorageConnectionString = v
	}
	if v, ok := os.LookupEnv("STORAGE_SYNC_TIMEOUT_SECONDS"); ok {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("STORAGE_SYNC_TIMEOUT_SECONDS: %w", err)
		}
		cfg.StorageSyncTimeout = time.Duration(secs) * time.Second
	}
	return nil
}

// applyYAMLDefaults flattens a YAML document of bare or nested keys and sets
// any field whose key (case-insensitively, dots or underscores as
// separators) matches one of the known environment variable names.
func applyYAMLDefaults(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	flat := make(map[string]string)
	flattenYAML("", raw, flat)

	for key, value := range flat {
		switch normalizeYAMLKey(key) {
		case "instance_id":
			id, err := strconv.ParseUint(value, 10, 64)
			if err != nil {
				return fmt.Errorf("instance_id: %w", err)
			}
			cfg.InstanceID = id
		case "port":
			port, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("port: %w", err)
			}
			cfg.Port = port
		case "endpoint":
			cfg.Endpoint = value
		case "http_body_limit":
			limit, err := ParseByteSize(value)
			if err != nil {
				return fmt.Errorf("http_body_limit: %w", err)
			}
			cfg.HTTPBodyLimit = limit
		case "batch_size":
			size, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("batch_size: %w", err)
			}
			cfg.BatchSize = size
		case "sensor_salt":
			cfg.SensorSalt = value
		case "storage_connection_string":
			cfg.StorageConnectionString = value
		case "storage_sync_timeout_seconds":
			secs, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("storage_sync_timeout_seconds: %w", err)
			}
			cfg.StorageSyncTimeout = time.Duration(secs) * time.Second
		}
	}
	return nil
}

func normalizeYAMLKey(key string) string {
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, ".", "_")
	key = strings.ReplaceAll(key, "-", "_")
	return key
}

func flattenYAML(prefix string, value interface{}, out map[string]string) {
	switch v := value.(type) {
	case map[string]interface{}:
		for k, sub := range v {
			next := k
			if prefix != "" {
				next = prefix + "." + k
			}
			flattenYAML(next, sub, out)
		}
	case map[interface{}]interface{}:
		for k, sub := range v {
			next := fmt.Sprintf("%v", k)
			if prefix != "" {
				next = prefix + "." + next
			}
			flattenYAML(next, sub, out)
		}
	default:
		if prefix != "" {
			out[prefix] = fmt.Sprintf("%v", value)
		}
	}
}
