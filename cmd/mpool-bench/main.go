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

// mpool-bench replays a configurable allocation mix against a set of
// pools, one pool per worker, and reports throughput and pool usage.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/matrixorigin/mpool/pkg/common/mpool"
	"github.com/matrixorigin/mpool/pkg/logutil"
	"github.com/matrixorigin/mpool/pkg/util/metric"
)

var (
	configFile   = flag.String("cfg", "", "toml configuration used to start mpool-bench")
	printVersion = flag.Bool("version", false, "print version information")
)

func main() {
	flag.Parse()
	maybePrintVersion()

	cfg, err := parseConfigFromFile(*configFile)
	if err != nil {
		panic(fmt.Sprintf("failed to parse config from %q, error: %s", *configFile, err))
	}
	logutil.SetupMOLogger(&cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if cfg.MetricsAddr != "" {
		shutdown := startMetricsServer(cfg.MetricsAddr)
		defer shutdown()
	}

	if err := runBench(ctx, cfg); err != nil {
		logutil.Fatalf("bench failed: %v", err)
	}
}

func startMetricsServer(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metric.HTTPHandler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logutil.Infof("serving metrics at http://%s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logutil.Errorf("metrics server: %v", err)
		}
	}()
	return func() {
		if err := srv.Shutdown(context.Background()); err != nil {
			logutil.Errorf("metrics server shutdown: %v", err)
		}
	}
}

func runBench(ctx context.Context, cfg *Config) error {
	workers, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return err
	}
	defer workers.Release()

	logutil.Info("bench start",
		zap.Int("workers", cfg.Workers),
		zap.Int("iterations", cfg.Iterations),
		zap.Int("pool-size", cfg.PoolSize))

	var allocs, bytes atomic.Int64
	start := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.Workers; i++ {
		id := i
		done := make(chan error, 1)
		if err := workers.Submit(func() {
			done <- runWorker(ctx, cfg, id, &allocs, &bytes)
		}); err != nil {
			return err
		}
		g.Go(func() error {
			return <-done
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	elapsed := time.Since(start)
	logutil.Info("bench complete",
		zap.Int64("allocs", allocs.Load()),
		zap.Int64("bytes", bytes.Load()),
		zap.Duration("elapsed", elapsed),
		zap.Float64("allocs-per-second", float64(allocs.Load())/elapsed.Seconds()))
	return nil
}

func runWorker(ctx context.Context, cfg *Config, id int, allocs, bytes *atomic.Int64) error {
	m, err := mpool.NewMPool(fmt.Sprintf("bench-worker-%d", id), cfg.PoolSize)
	if err != nil {
		return err
	}
	defer m.Close()

	var larges [][]byte
	span := cfg.MaxAlloc - cfg.MinAlloc + 1
	for j := 0; j < cfg.Iterations; j++ {
		if j%1024 == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}

		size := cfg.MinAlloc + j%span
		if cfg.LargeEvery > 0 && j%cfg.LargeEvery == cfg.LargeEvery-1 {
			size += m.Threshold()
			buf, err := m.Alloc(size)
			if err != nil {
				return err
			}
			larges = append(larges, buf)
			if len(larges) > 8 {
				if err := m.Free(larges[0]); err != nil {
					return err
				}
				larges = larges[1:]
			}
		} else if _, err := m.Alloc(size); err != nil {
			return err
		}
		allocs.Add(1)
		bytes.Add(int64(size))

		if cfg.ResetEvery > 0 && j%cfg.ResetEvery == cfg.ResetEvery-1 {
			larges = larges[:0]
			if err := m.Reset(); err != nil {
				return err
			}
		}
	}

	usage, err := mpool.ReportMemUsage(m.Name())
	if err != nil {
		return err
	}
	logutil.Debugf("worker %d usage: %s", id, usage)
	return nil
}
