// Copyright 2026 The Quicksolve Authors.
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

// Package config holds quicksolve's run configuration: a YAML file for the
// stable baseline plus CLI overrides coerced with spf13/cast, covering the
// `-s sym=val`, `-p N`, `-w N`, `-l N` flags (workers, preallocation hint,
// memory limit) and the symbol=value bindings forwarded to the CAS helper.
package config

import (
	"os"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v2"
)

// Config is quicksolve's run configuration.
type Config struct {
	// Workers is the AEF's worker pool size (-p).
	Workers int `yaml:"workers"`
	// Prealloc is the expected component count hint (-w). It is parsed
	// and stored only; the pivot graph grows on demand and never reads it.
	Prealloc int `yaml:"prealloc"`
	// MemoryLimit bounds the coefficient cache's resident byte budget (-l),
	// zero meaning unbounded.
	MemoryLimit int64 `yaml:"memory_limit"`
	// StoreDir is the directory integralmgr opens its per-prototype files
	// under.
	StoreDir string `yaml:"store_dir"`
	// Symbols are symbol=value bindings forwarded to the CAS helper at
	// spawn (the original's qs_evaluator_options_add).
	Symbols map[string]string `yaml:"symbols"`
}

// Default returns the baseline configuration, matching the original's
// hardcoded defaults (num_processors=1, prealloc=1<<20, usage_limit=0).
func Default() Config {
	return Config{
		Workers:     1,
		Prealloc:    1 << 20,
		MemoryLimit: 0,
		StoreDir:    ".",
		Symbols:     make(map[string]string),
	}
}

// Load reads a YAML configuration file, starting from Default for any
// field the file omits.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	if cfg.Symbols == nil {
		cfg.Symbols = make(map[string]string)
	}
	return cfg, nil
}

// WithWorkers overrides Workers from an arbitrary CLI-flag value (string,
// int, whatever the flag parser handed back), coercing with spf13/cast the
// way the original's strtol-parsed -p/-w/-l option values are loosely typed.
func (c Config) WithWorkers(v any) (Config, error) {
	n, err := cast.ToIntE(v)
	if err != nil {
		return c, err
	}
	c.Workers = n
	return c, nil
}

// WithPrealloc overrides Prealloc (-w).
func (c Config) WithPrealloc(v any) (Config, error) {
	n, err := cast.ToIntE(v)
	if err != nil {
		return c, err
	}
	c.Prealloc = n
	return c, nil
}

// WithMemoryLimit overrides MemoryLimit (-l).
func (c Config) WithMemoryLimit(v any) (Config, error) {
	n, err := cast.ToInt64E(v)
	if err != nil {
		return c, err
	}
	c.MemoryLimit = n
	return c, nil
}

// AddSymbol records one "sym=val" CLI binding (-s sym=val), overwriting
// any existing binding for the same symbol.
func (c Config) AddSymbol(binding string) Config {
	symbol, value, ok := strings.Cut(binding, "=")
	if !ok {
		return c
	}
	if c.Symbols == nil {
		c.Symbols = make(map[string]string)
	}
	c.Symbols[symbol] = value
	return c
}
