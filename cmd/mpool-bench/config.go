// Copyright 2026 Matrix Origin
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"runtime"

	"github.com/BurntSushi/toml"

	"github.com/matrixorigin/mpool/pkg/common/moerr"
	"github.com/matrixorigin/mpool/pkg/logutil"
)

// Config drives one bench run. Every worker owns one pool and replays
// the same allocation mix against it.
type Config struct {
	// Workers is the number of concurrent pools. Zero means one per
	// CPU.
	Workers int `toml:"workers"`
	// Iterations is the number of allocations each worker performs.
	Iterations int `toml:"iterations"`
	// PoolSize is the backing region size of each pool. Zero picks the
	// platform page size.
	PoolSize int `toml:"pool-size"`
	// MinAlloc and MaxAlloc bound the size of each small request.
	MinAlloc int `toml:"min-alloc"`
	MaxAlloc int `toml:"max-alloc"`
	// LargeEvery inserts one above-threshold allocation every n
	// requests. Zero disables large traffic.
	LargeEvery int `toml:"large-every"`
	// ResetEvery rewinds each pool every n requests. Zero never
	// resets, so the pools only grow.
	ResetEvery int `toml:"reset-every"`

	// MetricsAddr serves /metrics when set, e.g. "127.0.0.1:7001".
	MetricsAddr string `toml:"metrics-addr"`

	Log logutil.LogConfig `toml:"log"`
}

func defaultConfig() *Config {
	return &Config{
		Workers:    runtime.NumCPU(),
		Iterations: 1000000,
		PoolSize:   0,
		MinAlloc:   16,
		MaxAlloc:   512,
		LargeEvery: 1000,
		ResetEvery: 8192,
		Log: logutil.LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

func parseConfigFromFile(file string) (*Config, error) {
	cfg := defaultConfig()
	if file != "" {
		if _, err := toml.DecodeFile(file, cfg); err != nil {
			return nil, moerr.ConvertGoError(err)
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (cfg *Config) validate() error {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.Iterations <= 0 {
		return moerr.NewInvalidInput("iterations %d", cfg.Iterations)
	}
	if cfg.MinAlloc <= 0 || cfg.MaxAlloc < cfg.MinAlloc {
		return moerr.NewInvalidInput("alloc size range [%d, %d]", cfg.MinAlloc, cfg.MaxAlloc)
	}
	if cfg.LargeEvery < 0 || cfg.ResetEvery < 0 {
		return moerr.NewInvalidInput("negative workload cadence")
	}
	return nil
}
