// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"

	"github.com/blinklabs-io/nevo/database/plugin"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "nevo.config"

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

const DefaultStoragePlugin = "badger"

// ErrPluginListRequested is returned when the user requests to list available plugins
// This is not an error condition but a successful operation that displays plugin information
var ErrPluginListRequested = errors.New("plugin list requested")

type tempConfig struct {
	Config   *Config                   `yaml:"config,omitempty"`
	Database *databaseConfig           `yaml:"database,omitempty"`
	Storage  map[string]map[string]any `yaml:"storage,omitempty"`
}

type databaseConfig struct {
	Storage map[string]any `yaml:"storage,omitempty"`
}

type Config struct {
	DatabasePath    string `yaml:"databasePath"    split_words:"true"`
	StoragePlugin   string `yaml:"storagePlugin"   split_words:"true"`
	ContractAddress string `yaml:"contractAddress" split_words:"true"`
	// OTLP HTTP endpoint URL. Tracing is disabled when empty unless
	// TracingStdout is set
	TracingEndpoint string `yaml:"tracingEndpoint" split_words:"true"`
	TracingStdout   bool   `yaml:"tracingStdout"   split_words:"true"`
	MetricsEnabled  bool   `yaml:"metricsEnabled"  split_words:"true"`
}

// TracingEnabled reports whether any trace exporter is configured
func (c *Config) TracingEnabled() bool {
	return c.TracingEndpoint != "" || c.TracingStdout
}

var globalConfig = defaultConfig()

func defaultConfig() *Config {
	return &Config{
		DatabasePath:    ".nevo",
		StoragePlugin:   DefaultStoragePlugin,
		ContractAddress: "nevo-contract",
	}
}

// ListPlugins writes the registered storage plugins to stdout and returns
// ErrPluginListRequested when name is "list"
func ListPlugins(name string) error {
	if name != "list" {
		return nil
	}
	fmt.Println("Available storage plugins:")
	for _, p := range plugin.GetPlugins(plugin.PluginTypeStorage) {
		fmt.Printf("  %s: %s\n", p.Name, p.Description)
	}
	return ErrPluginListRequested
}

func LoadConfig(configFile string) (*Config, error) {
	// Load config file as YAML if provided
	if configFile == "" {
		// Check for config file in this path: ~/.nevo/nevo.yaml
		if homeDir, err := os.UserHomeDir(); err == nil {
			userPath := filepath.Join(homeDir, ".nevo", "nevo.yaml")
			if _, err := os.Stat(userPath); err == nil {
				configFile = userPath
			}
		}

		// Try to check for /etc/nevo/nevo.yaml if still not found
		if configFile == "" {
			systemPath := "/etc/nevo/nevo.yaml"
			if _, err := os.Stat(systemPath); err == nil {
				configFile = systemPath
			}
		}
	}

	if configFile != "" {
		if err := loadConfigFile(configFile); err != nil {
			return nil, err
		}
	}
	// Process environment variables
	err := envconfig.Process("nevo", globalConfig)
	if err != nil {
		return nil, fmt.Errorf("error processing environment: %+w", err)
	}

	// Process plugin environment variables
	err = plugin.ProcessEnvVars()
	if err != nil {
		return nil, fmt.Errorf(
			"error processing plugin environment variables: %w",
			err,
		)
	}

	if globalConfig.StoragePlugin == "" {
		globalConfig.StoragePlugin = DefaultStoragePlugin
	}
	if globalConfig.ContractAddress == "" {
		return nil, errors.New("contractAddress must not be empty")
	}
	return globalConfig, nil
}

func loadConfigFile(configFile string) error {
	buf, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	// First unmarshal into temp config to handle plugin sections
	var tempCfg tempConfig
	if err := yaml.Unmarshal(buf, &tempCfg); err != nil {
		return fmt.Errorf("error parsing config file: %w", err)
	}

	if tempCfg.Config != nil {
		// Overlay config values onto existing defaults
		configBytes, err := yaml.Marshal(tempCfg.Config)
		if err != nil {
			return fmt.Errorf("error re-marshalling config: %w", err)
		}
		if err := yaml.Unmarshal(configBytes, globalConfig); err != nil {
			return fmt.Errorf("error parsing config section: %w", err)
		}
	} else {
		// Otherwise unmarshal the whole file as main config
		if err := yaml.Unmarshal(buf, globalConfig); err != nil {
			return fmt.Errorf("error parsing config file: %w", err)
		}
	}

	// Process plugin configurations
	storageConfig := make(map[string]map[string]any)
	if tempCfg.Storage != nil {
		maps.Copy(storageConfig, tempCfg.Storage)
	}
	if tempCfg.Database != nil && tempCfg.Database.Storage != nil {
		// Extract plugin name if specified
		if pluginVal, exists := tempCfg.Database.Storage["plugin"]; exists {
			if pluginName, ok := pluginVal.(string); ok {
				globalConfig.StoragePlugin = pluginName
				delete(tempCfg.Database.Storage, "plugin")
			}
		}
		for k, v := range tempCfg.Database.Storage {
			val, ok := stringMap(v)
			if !ok {
				fmt.Fprintf(
					os.Stderr,
					"warning: skipping storage config entry %q: expected map, got %T\n",
					k,
					v,
				)
				continue
			}
			storageConfig[k] = val
		}
	}
	if len(storageConfig) > 0 {
		err := plugin.ProcessConfig(
			map[string]map[string]map[string]any{
				plugin.PluginTypeName(plugin.PluginTypeStorage): storageConfig,
			},
		)
		if err != nil {
			return fmt.Errorf("error processing plugin config: %w", err)
		}
	}
	return nil
}

func stringMap(v any) (map[string]any, bool) {
	switch val := v.(type) {
	case map[string]any:
		return val, true
	case map[any]any:
		ret := make(map[string]any, len(val))
		for vk, vv := range val {
			if keyStr, ok := vk.(string); ok {
				ret[keyStr] = vv
			}
		}
		return ret, true
	default:
		return nil, false
	}
}

func GetConfig() *Config {
	return globalConfig
}
