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

package malloc

import (
	"sync"
	"unsafe"

	"github.com/matrixorigin/mpool/pkg/common/moerr"
)

// HeapAllocator serves requests from the Go heap. Every issued region
// is pinned in an internal table until Free, so a region stays alive
// even when the only remaining reference to it is a raw address stored
// inside other pool memory, which the garbage collector cannot see.
type HeapAllocator struct {
	stats Stats

	mu struct {
		sync.Mutex
		pinned map[uintptr][]byte
	}
}

func NewHeapAllocator() *HeapAllocator {
	a := &HeapAllocator{}
	a.mu.pinned = make(map[uintptr][]byte)
	return a
}

var _ Allocator = new(HeapAllocator)

func (a *HeapAllocator) Alloc(size int) ([]byte, error) {
	if size <= 0 {
		return nil, moerr.NewInvalidInput("heap alloc size %d", size)
	}
	buf := make([]byte, size)
	a.pin(buf, buf)
	a.stats.recordAlloc(size)
	return buf, nil
}

func (a *HeapAllocator) AllocAligned(align int, size int) ([]byte, error) {
	if !isPowerOfTwo(align) || align > pageSize {
		return nil, moerr.NewInvalidInput("heap alignment %d", align)
	}
	if size <= 0 {
		return nil, moerr.NewInvalidInput("heap alloc size %d", size)
	}
	raw := make([]byte, size+align)
	base := uintptr(unsafe.Pointer(unsafe.SliceData(raw)))
	off := int(alignAddr(base, uintptr(align)) - base)
	buf := raw[off : off+size : off+size]
	a.pin(buf, raw)
	a.stats.recordAlloc(size)
	return buf, nil
}

func (a *HeapAllocator) Free(buf []byte) error {
	if len(buf) == 0 {
		return moerr.NewInvalidInput("heap free of empty buffer")
	}
	key := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	a.mu.Lock()
	_, ok := a.mu.pinned[key]
	if ok {
		delete(a.mu.pinned, key)
	}
	a.mu.Unlock()
	if !ok {
		return moerr.NewInternalError("heap free of untracked buffer %x", key)
	}
	a.stats.recordFree(len(buf))
	return nil
}

func (a *HeapAllocator) Stats() *Stats {
	return &a.stats
}

// Inuse reports the number of currently pinned regions.
func (a *HeapAllocator) Inuse() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.mu.pinned)
}

func (a *HeapAllocator) pin(buf, raw []byte) {
	key := uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
	a.mu.Lock()
	a.mu.pinned[key] = raw
	a.mu.Unlock()
}
