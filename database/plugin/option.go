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
	"errors"
	"fmt"

	"github.com/spf13/pflag"
)

type PluginOptionType int

const (
	PluginOptionTypeString PluginOptionType = 1
	PluginOptionTypeBool   PluginOptionType = 2
	PluginOptionTypeInt    PluginOptionType = 3
	PluginOptionTypeUint   PluginOptionType = 4
)

type PluginOption struct {
	DefaultValue any
	Dest         any
	Name         string
	Description  string
	Type         PluginOptionType
}

func (p *PluginOption) flagName(pluginType string, pluginName string) string {
	return fmt.Sprintf("%s-%s-%s", pluginType, pluginName, p.Name)
}

func (p *PluginOption) AddToFlagSet(
	fs *pflag.FlagSet,
	pluginType string,
	pluginName string,
) error {
	name := p.flagName(pluginType, pluginName)
	switch p.Type {
	case PluginOptionTypeString:
		dest, ok := p.Dest.(*string)
		def, ok2 := p.DefaultValue.(string)
		if !ok || !ok2 {
			return fmt.Errorf("option %s: expected string", name)
		}
		fs.StringVar(dest, name, def, p.Description)
	case PluginOptionTypeBool:
		dest, ok := p.Dest.(*bool)
		def, ok2 := p.DefaultValue.(bool)
		if !ok || !ok2 {
			return fmt.Errorf("option %s: expected bool", name)
		}
		fs.BoolVar(dest, name, def, p.Description)
	case PluginOptionTypeInt:
		dest, ok := p.Dest.(*int)
		def, ok2 := p.DefaultValue.(int)
		if !ok || !ok2 {
			return fmt.Errorf("option %s: expected int", name)
		}
		fs.IntVar(dest, name, def, p.Description)
	case PluginOptionTypeUint:
		dest, ok := p.Dest.(*uint64)
		def, ok2 := p.DefaultValue.(uint64)
		if !ok || !ok2 {
			return fmt.Errorf("option %s: expected uint64", name)
		}
		fs.Uint64Var(dest, name, def, p.Description)
	default:
		return fmt.Errorf("unknown plugin option type %d for option %s", p.Type, name)
	}
	return nil
}

func (p *PluginOption) setFromString(val string) error {
	tmp, err := parseOptionString(p.Type, val)
	if err != nil {
		return err
	}
	return p.setValue(tmp)
}

// setValue performs a type-checked assignment into the Dest pointer
func (p *PluginOption) setValue(value any) error {
	if p.Dest == nil {
		return errors.New("nil destination")
	}
	switch p.Type {
	case PluginOptionTypeString:
		return assign[string](p.Dest, value)
	case PluginOptionTypeBool:
		return assign[bool](p.Dest, value)
	case PluginOptionTypeInt:
		return assign[int](p.Dest, value)
	case PluginOptionTypeUint:
		// YAML decodes integers as int
		if tv, ok := value.(int); ok {
			if tv < 0 {
				return errors.New("invalid value: negative int")
			}
			value = uint64(tv)
		}
		return assign[uint64](p.Dest, value)
	default:
		return fmt.Errorf("unknown plugin option type %d", p.Type)
	}
}

func assign[T any](dest any, value any) error {
	v, ok := value.(T)
	if !ok {
		var zero T
		return fmt.Errorf("invalid type: expected %T, got %T", zero, value)
	}
	d, ok := dest.(*T)
	if !ok {
		var zero T
		return fmt.Errorf("invalid destination type: expected *%T", zero)
	}
	if d == nil {
		return errors.New("nil destination pointer")
	}
	*d = v
	return nil
}
