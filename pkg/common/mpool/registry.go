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
	"encoding/json"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/matrixorigin/mpool/pkg/common/moerr"
)

var nextPoolID atomic.Int64

// Live pools, keyed by name. Names are unique so usage reports and
// metrics can address a pool unambiguously.
var registry = struct {
	sync.RWMutex
	pools map[string]*MPool
}{
	pools: make(map[string]*MPool),
}

func register(p *MPool) error {
	registry.Lock()
	defer registry.Unlock()
	if _, ok := registry.pools[p.name]; ok {
		return moerr.NewDupPoolName(p.name)
	}
	registry.pools[p.name] = p
	return nil
}

func unregister(p *MPool) {
	registry.Lock()
	defer registry.Unlock()
	if registry.pools[p.name] == p {
		delete(registry.pools, p.name)
	}
}

// DeleteMPool closes the pool and drops it from the registry.
func DeleteMPool(p *MPool) error {
	if p == nil {
		return moerr.NewInvalidInput("nil pool")
	}
	return p.Close()
}

// ForEachPool calls fn for every live pool until fn returns false.
// Snapshot readers like metrics collectors hang off this; fn must only
// touch immutable fields and atomic stats.
func ForEachPool(fn func(*MPool) bool) {
	registry.RLock()
	defer registry.RUnlock()
	for _, p := range registry.pools {
		if !fn(p) {
			return
		}
	}
}

// ReportMemUsage returns a JSON snapshot of one pool, or of every live
// pool when name is empty.
func ReportMemUsage(name string) (string, error) {
	var reports []PoolReport
	registry.RLock()
	if name == "" {
		for _, p := range registry.pools {
			reports = append(reports, p.report())
		}
	} else {
		p, ok := registry.pools[name]
		if !ok {
			registry.RUnlock()
			return "", moerr.NewNoSuchPool(name)
		}
		reports = append(reports, p.report())
	}
	registry.RUnlock()

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Name < reports[j].Name
	})
	data, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return "", moerr.ConvertGoError(err)
	}
	return string(data), nil
}
