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

// Package malloc is the system-allocator boundary of the module. Pools
// draw their backing regions and large payloads from an Allocator and
// never touch the platform directly.
package malloc

import (
	"os"
	"sync"
	"sync/atomic"
)

const (
	KB = 1 << 10
	MB = 1 << 20
	GB = 1 << 30
)

// Allocator hands out raw byte regions. Implementations fail by
// returning an error, never by terminating the process. Free must be
// called with the exact slice a previous Alloc or AllocAligned
// returned.
type Allocator interface {
	Alloc(size int) ([]byte, error)
	AllocAligned(align int, size int) ([]byte, error)
	Free(buf []byte) error
}

// Stats counts allocator traffic. All fields are atomics so wrappers
// and tests can read them while an allocator is in use.
type Stats struct {
	NumAlloc   atomic.Int64
	NumFree    atomic.Int64
	InuseBytes atomic.Int64
}

func (s *Stats) recordAlloc(size int) {
	s.NumAlloc.Add(1)
	s.InuseBytes.Add(int64(size))
}

func (s *Stats) recordFree(size int) {
	s.NumFree.Add(1)
	s.InuseBytes.Add(-int64(size))
}

var pageSize = os.Getpagesize()

// PageSize returns the platform page size, read once at process start.
func PageSize() int {
	return pageSize
}

var (
	defaultAllocator     Allocator
	defaultAllocatorOnce sync.Once
)

// Default returns the process-wide allocator: mmap-backed on unix
// platforms, Go-heap-backed elsewhere.
func Default() Allocator {
	defaultAllocatorOnce.Do(func() {
		defaultAllocator = newDefaultAllocator()
	})
	return defaultAllocator
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

func alignAddr(p uintptr, align uintptr) uintptr {
	return (p + align - 1) &^ (align - 1)
}

func roundPage(size int) int {
	return (size + pageSize - 1) &^ (pageSize - 1)
}
