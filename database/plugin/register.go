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

package plugin

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
)

type PluginType int

const (
	PluginTypeStorage PluginType = 1
)

func PluginTypeName(pluginType PluginType) string {
	switch pluginType {
	case PluginTypeStorage:
		return "storage"
	default:
		return ""
	}
}

// Env carries process-wide dependencies to a plugin when it is created
type Env struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
}

type PluginEntry struct {
	NewFromOptionsFunc func(Env) Plugin
	Name               string
	Description        string
	Options            []PluginOption
	Type               PluginType
}

var pluginEntries []PluginEntry

// Register adds a plugin to the registry. Registering the same type and name
// twice replaces the earlier entry
func Register(pluginEntry PluginEntry) {
	for i, p := range pluginEntries {
		if p.Type == pluginEntry.Type && p.Name == pluginEntry.Name {
			pluginEntries[i] = pluginEntry
			return
		}
	}
	pluginEntries = append(pluginEntries, pluginEntry)
}

func GetPlugins(pluginType PluginType) []PluginEntry {
	ret := []PluginEntry{}
	for _, plugin := range pluginEntries {
		if plugin.Type == pluginType {
			ret = append(ret, plugin)
		}
	}
	return ret
}

// GetPlugin creates a new instance of the named plugin, or returns nil when
// no such plugin is registered
func GetPlugin(pluginType PluginType, pluginName string, env Env) Plugin {
	for _, plugin := range pluginEntries {
		if plugin.Type == pluginType && plugin.Name == pluginName {
			return plugin.NewFromOptionsFunc(env)
		}
	}
	return nil
}

// PopulateCmdlineOptions adds a flag for every plugin option, named
// <type>-<plugin>-<option>
func PopulateCmdlineOptions(fs *pflag.FlagSet) error {
	for _, plugin := range pluginEntries {
		for _, option := range plugin.Options {
			if err := option.AddToFlagSet(
				fs,
				PluginTypeName(plugin.Type),
				plugin.Name,
			); err != nil {
				return err
			}
		}
	}
	return nil
}

// ProcessEnvVars applies plugin options from environment variables named
// NEVO_<TYPE>_<PLUGIN>_<OPTION>, upper-cased with dashes as underscores
func ProcessEnvVars() error {
	for _, plugin := range pluginEntries {
		for _, option := range plugin.Options {
			envName := strings.ToUpper(
				strings.ReplaceAll(
					fmt.Sprintf(
						"NEVO_%s_%s_%s",
						PluginTypeName(plugin.Type),
						plugin.Name,
						option.Name,
					),
					"-",
					"_",
				),
			)
			val, ok := os.LookupEnv(envName)
			if !ok {
				continue
			}
			if err := option.setFromString(val); err != nil {
				return fmt.Errorf("environment variable %s: %w", envName, err)
			}
		}
	}
	return nil
}

// ProcessConfig applies plugin options from a config file, keyed by plugin
// type, plugin name and option name
func ProcessConfig(pluginConfig map[string]map[string]map[string]any) error {
	for _, plugin := range pluginEntries {
		typeConfig, ok := pluginConfig[PluginTypeName(plugin.Type)]
		if !ok {
			continue
		}
		nameConfig, ok := typeConfig[plugin.Name]
		if !ok {
			continue
		}
		for _, option := range plugin.Options {
			val, ok := nameConfig[option.Name]
			if !ok {
				continue
			}
			if err := option.setValue(val); err != nil {
				return fmt.Errorf(
					"%s plugin %s option %s: %w",
					PluginTypeName(plugin.Type),
					plugin.Name,
					option.Name,
					err,
				)
			}
		}
	}
	return nil
}

// parseOptionString converts a string to the Go type of an option
func parseOptionString(optType PluginOptionType, val string) (any, error) {
	switch optType {
	case PluginOptionTypeString:
		return val, nil
	case PluginOptionTypeBool:
		return strconv.ParseBool(val)
	case PluginOptionTypeInt:
		return strconv.Atoi(val)
	case PluginOptionTypeUint:
		return strconv.ParseUint(val, 10, 64)
	default:
		return nil, fmt.Errorf("unknown plugin option type %d", optType)
	}
}
