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

// Package metric exposes pool and allocator statistics through a
// Prometheus registry. Collection is pull based: nothing is recorded
// here, every scrape reads the live atomic counters.
package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matrixorigin/mpool/pkg/common/malloc"
	"github.com/matrixorigin/mpool/pkg/common/mpool"
)

var registry = prometheus.NewRegistry()

func init() {
	registry.MustRegister(newMPoolCollector())
	registry.MustRegister(newMallocCollector())
}

// GetPrometheusRegistry returns the registerer for additional metrics.
func GetPrometheusRegistry() prometheus.Registerer {
	return registry
}

// GetPrometheusGatherer returns the gatherer backing HTTPHandler.
func GetPrometheusGatherer() prometheus.Gatherer {
	return registry
}

// HTTPHandler serves the registry in the Prometheus text format.
func HTTPHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// mpoolCollector walks the pool registry on every scrape.
type mpoolCollector struct {
	pools       *prometheus.Desc
	inuseBytes  *prometheus.Desc
	allocBytes  *prometheus.Desc
	highWater   *prometheus.Desc
	allocs      *prometheus.Desc
	frees       *prometheus.Desc
	extends     *prometheus.Desc
	largeAllocs *prometheus.Desc
	largeReuses *prometheus.Desc
}

func newMPoolCollector() *mpoolCollector {
	poolDesc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName("mo", "mpool", name),
			help, []string{"pool"}, nil)
	}
	return &mpoolCollector{
		pools: prometheus.NewDesc(
			prometheus.BuildFQName("mo", "mpool", "pools"),
			"Number of live pools.", nil, nil),
		inuseBytes:  poolDesc("inuse_bytes", "Bytes held by live allocations of the pool."),
		allocBytes:  poolDesc("alloc_bytes_total", "Bytes the pool has handed out since creation."),
		highWater:   poolDesc("high_water_mark_bytes", "Largest in-use byte count the pool has reached."),
		allocs:      poolDesc("allocs_total", "Allocations served by the pool."),
		frees:       poolDesc("frees_total", "Large payloads returned to the pool."),
		extends:     poolDesc("extends_total", "Backing regions added beyond the first."),
		largeAllocs: poolDesc("large_allocs_total", "Allocations above the pool threshold."),
		largeReuses: poolDesc("large_reuses_total", "Large allocations that reused a released slot."),
	}
}

func (c *mpoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.pools
	ch <- c.inuseBytes
	ch <- c.allocBytes
	ch <- c.highWater
	ch <- c.allocs
	ch <- c.frees
	ch <- c.extends
	ch <- c.largeAllocs
	ch <- c.largeReuses
}

func (c *mpoolCollector) Collect(ch chan<- prometheus.Metric) {
	gauge := func(d *prometheus.Desc, v int64, pool string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.GaugeValue, float64(v), pool)
	}
	counter := func(d *prometheus.Desc, v int64, pool string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), pool)
	}
	n := 0
	mpool.ForEachPool(func(p *mpool.MPool) bool {
		n++
		name := p.Name()
		stats := p.Stats()
		gauge(c.inuseBytes, stats.InuseBytes.Load(), name)
		counter(c.allocBytes, stats.AllocBytes.Load(), name)
		gauge(c.highWater, stats.HighWaterMark.Load(), name)
		counter(c.allocs, stats.NumAlloc.Load(), name)
		counter(c.frees, stats.NumFree.Load(), name)
		counter(c.extends, stats.NumExtend.Load(), name)
		counter(c.largeAllocs, stats.NumLargeAlloc.Load(), name)
		counter(c.largeReuses, stats.NumLargeReuse.Load(), name)
		return true
	})
	ch <- prometheus.MustNewConstMetric(c.pools, prometheus.GaugeValue, float64(n))
}

// mallocCollector reports the process wide allocator, when it keeps
// statistics.
type mallocCollector struct {
	inuseBytes *prometheus.Desc
	allocs     *prometheus.Desc
	frees      *prometheus.Desc
}

func newMallocCollector() *mallocCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName("mo", "malloc", name),
			help, nil, nil)
	}
	return &mallocCollector{
		inuseBytes: desc("inuse_bytes", "Bytes currently mapped by the default allocator."),
		allocs:     desc("allocs_total", "Requests served by the default allocator."),
		frees:      desc("frees_total", "Regions returned to the default allocator."),
	}
}

func (c *mallocCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.inuseBytes
	ch <- c.allocs
	ch <- c.frees
}

func (c *mallocCollector) Collect(ch chan<- prometheus.Metric) {
	a, ok := malloc.Default().(interface{ Stats() *malloc.Stats })
	if !ok {
		return
	}
	stats := a.Stats()
	ch <- prometheus.MustNewConstMetric(c.inuseBytes, prometheus.GaugeValue, float64(stats.InuseBytes.Load()))
	ch <- prometheus.MustNewConstMetric(c.allocs, prometheus.CounterValue, float64(stats.NumAlloc.Load()))
	ch <- prometheus.MustNewConstMetric(c.frees, prometheus.CounterValue, float64(stats.NumFree.Load()))
}
