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
	"fmt"
	"sync"
	"testing"
)

func BenchmarkSmallAlloc(b *testing.B) {
	m, err := NewMPool("bench-small", 1<<20)
	if err != nil {
		panic(err)
	}
	defer m.Close()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := m.Alloc(64); err != nil {
			panic(err)
		}
		if i%8192 == 8191 {
			if err := m.Reset(); err != nil {
				panic(err)
			}
		}
	}
}

func BenchmarkLargeAllocFree(b *testing.B) {
	m, err := NewMPool("bench-large", 0)
	if err != nil {
		panic(err)
	}
	defer m.Close()
	size := m.Threshold() + 1
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf, err := m.Alloc(size)
		if err != nil {
			panic(err)
		}
		if err := m.Free(buf); err != nil {
			panic(err)
		}
	}
}

func BenchmarkAllocTyped(b *testing.B) {
	m, err := NewMPool("bench-typed", 1<<20)
	if err != nil {
		panic(err)
	}
	defer m.Close()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := AllocTyped[int64](m); err != nil {
			panic(err)
		}
		if i%8192 == 8191 {
			if err := m.Reset(); err != nil {
				panic(err)
			}
		}
	}
}

func BenchmarkConcurrentPools(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var wg sync.WaitGroup
		run := func(name string) {
			defer wg.Done()
			m, err := NewMPool(name, 1<<20)
			if err != nil {
				panic(err)
			}
			defer m.Close()
			for j := 0; j < 1000; j++ {
				if _, err := m.Alloc(64); err != nil {
					panic(err)
				}
				if j%512 == 511 {
					if err := m.Reset(); err != nil {
						panic(err)
					}
				}
			}
		}
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go run(fmt.Sprintf("bench-concurrent-%d", g))
		}
		wg.Wait()
	}
}
