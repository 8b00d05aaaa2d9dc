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

package plugin_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blinklabs-io/nevo/database/plugin"
)

type mockPlugin struct {
	env plugin.Env
}

func (m *mockPlugin) Start() error { return nil }
func (m *mockPlugin) Stop() error  { return nil }

func newMock(env plugin.Env) plugin.Plugin {
	return &mockPlugin{env: env}
}

func TestRegister(t *testing.T) {
	pluginName := "test-plugin-" + t.Name()
	plugin.Register(plugin.PluginEntry{
		Type:               plugin.PluginTypeStorage,
		Name:               pluginName,
		NewFromOptionsFunc: newMock,
	})
	p := plugin.GetPlugin(plugin.PluginTypeStorage, pluginName, plugin.Env{})
	require.NotNil(t, p)
	assert.IsType(t, &mockPlugin{}, p)
	found := false
	for _, pl := range plugin.GetPlugins(plugin.PluginTypeStorage) {
		if pl.Name == pluginName {
			found = true
		}
	}
	assert.True(t, found, "plugin not in GetPlugins list")
	assert.Nil(
		t,
		plugin.GetPlugin(plugin.PluginTypeStorage, "non-existent-"+t.Name(), plugin.Env{}),
	)
}

func TestRegisterReplaces(t *testing.T) {
	pluginName := "test-plugin-" + t.Name()
	for range 2 {
		plugin.Register(plugin.PluginEntry{
			Type:               plugin.PluginTypeStorage,
			Name:               pluginName,
			NewFromOptionsFunc: newMock,
		})
	}
	count := 0
	for _, pl := range plugin.GetPlugins(plugin.PluginTypeStorage) {
		if pl.Name == pluginName {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestStartPluginNotFound(t *testing.T) {
	_, err := plugin.StartPlugin(plugin.PluginTypeStorage, "missing", plugin.Env{})
	require.Error(t, err)
}

func TestErrorPlugin(t *testing.T) {
	pluginName := "test-plugin-" + t.Name()
	plugin.Register(plugin.PluginEntry{
		Type: plugin.PluginTypeStorage,
		Name: pluginName,
		NewFromOptionsFunc: func(plugin.Env) plugin.Plugin {
			return plugin.NewErrorPlugin(assert.AnError)
		},
	})
	_, err := plugin.StartPlugin(plugin.PluginTypeStorage, pluginName, plugin.Env{})
	require.ErrorIs(t, err, assert.AnError)
}
