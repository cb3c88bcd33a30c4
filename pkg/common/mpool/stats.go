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

package mpool

import (
	"sync/atomic"
)

// Stats counts pool activity. Fields are atomics so that monitors can
// read them while the owning goroutine keeps allocating.
type Stats struct {
	NumAlloc      atomic.Int64
	NumFree       atomic.Int64
	NumExtend     atomic.Int64
	NumLargeAlloc atomic.Int64
	NumLargeReuse atomic.Int64
	AllocBytes    atomic.Int64
	InuseBytes    atomic.Int64
	HighWaterMark atomic.Int64
}

func (s *Stats) recordAlloc(size int64) {
	s.NumAlloc.Add(1)
	s.AllocBytes.Add(size)
	now := s.InuseBytes.Add(size)
	for {
		hw := s.HighWaterMark.Load()
		if now <= hw {
			break
		}
		if s.HighWaterMark.CompareAndSwap(hw, now) {
			break
		}
	}
}

func (s *Stats) recordFree(size int64) {
	s.NumFree.Add(1)
	s.InuseBytes.Add(-size)
}

// PoolReport is a point-in-time snapshot of one pool, serialized by
// ReportMemUsage.
type PoolReport struct {
	Name          string `json:"name"`
	RegionSize    int    `json:"region_size"`
	Threshold     int    `json:"threshold"`
	NumAlloc      int64  `json:"num_alloc"`
	NumFree       int64  `json:"num_free"`
	NumExtend     int64  `json:"num_extend"`
	NumLargeAlloc int64  `json:"num_large_alloc"`
	NumLargeReuse int64  `json:"num_large_reuse"`
	AllocBytes    int64  `json:"alloc_bytes"`
	InuseBytes    int64  `json:"inuse_bytes"`
	HighWaterMark int64  `json:"high_water_mark"`
}

func (p *MPool) report() PoolReport {
	return PoolReport{
		Name:          p.name,
		RegionSize:    p.regionSize,
		Threshold:     p.threshold,
		NumAlloc:      p.stats.NumAlloc.Load(),
		NumFree:       p.stats.NumFree.Load(),
		NumExtend:     p.stats.NumExtend.Load(),
		NumLargeAlloc: p.stats.NumLargeAlloc.Load(),
		NumLargeReuse: p.stats.NumLargeReuse.Load(),
		AllocBytes:    p.stats.AllocBytes.Load(),
		InuseBytes:    p.stats.InuseBytes.Load(),
		HighWaterMark: p.stats.HighWaterMark.Load(),
	}
}
