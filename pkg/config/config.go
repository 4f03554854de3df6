// Copyright 2026 Foyer AI
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config locates the foyer data directory and loads runtime
// configuration from foyer.yaml plus FOYER_* environment overrides.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the runtime configuration tree.
type Config struct {
	LLM       LLMConfig       `mapstructure:"llm"`
	Store     StoreConfig     `mapstructure:"store"`
	Debug     DebugConfig     `mapstructure:"debug"`
	Reflexion ReflexionConfig `mapstructure:"reflexion"`
}

// LLMConfig selects and tunes the model provider.
type LLMConfig struct {
	Provider    string  `mapstructure:"provider"` // anthropic, ollama, none
	Model       string  `mapstructure:"model"`
	APIKey      string  `mapstructure:"api_key"`
	Endpoint    string  `mapstructure:"endpoint"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// StoreConfig points at the business row store.
type StoreConfig struct {
	Path string `mapstructure:"path"` // SQLite file, :memory: for tests
}

// DebugConfig tunes the debug log.
type DebugConfig struct {
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
	CleanupCron   string `mapstructure:"cleanup_cron"`
}

// ReflexionConfig tunes the retry loop.
type ReflexionConfig struct {
	MaxRetries int `mapstructure:"max_retries"`
}

// Load reads foyer.yaml from the data directory (and the working directory)
// with FOYER_* environment overrides. A missing file yields defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("foyer")
	v.SetConfigType("yaml")
	v.AddConfigPath(DataDir())
	v.AddConfigPath(".")

	v.SetEnvPrefix("FOYER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("llm.provider", "none")
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("store.path", "foyer.db")
	v.SetDefault("debug.path", DebugStorePath())
	v.SetDefault("debug.retention_days", 30)
	v.SetDefault("debug.cleanup_cron", "30 3 * * *")
	v.SetDefault("reflexion.max_retries", 2)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
