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
	"unsafe"

	"github.com/matrixorigin/mpool/pkg/common/malloc"
	"github.com/matrixorigin/mpool/pkg/common/moerr"
)

func bufAddr(buf []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(buf)))
}

func (p *MPool) slotCount() int {
	n := 0
	for s := p.large; s != nil; s = s.next {
		n++
	}
	return n
}

// countingAllocator counts raw calls so tests can pin down exactly
// when the pool touches the system allocator.
type countingAllocator struct {
	inner  malloc.Allocator
	allocs int
	frees  int
}

func (c *countingAllocator) Alloc(size int) ([]byte, error) {
	c.allocs++
	return c.inner.Alloc(size)
}

func (c *countingAllocator) AllocAligned(align, size int) ([]byte, error) {
	c.allocs++
	return c.inner.AllocAligned(align, size)
}

func (c *countingAllocator) Free(buf []byte) error {
	c.frees++
	return c.inner.Free(buf)
}

// recyclingAllocator hands a freed buffer straight back to the next
// same-sized request, the way a system malloc typically would. Tests
// use it to observe address-level reuse deterministically.
type recyclingAllocator struct {
	inner malloc.Allocator
	freed map[int][][]byte
	raw   int // calls that reached the inner allocator
}

func newRecyclingAllocator(inner malloc.Allocator) *recyclingAllocator {
	return &recyclingAllocator{
		inner: inner,
		freed: make(map[int][][]byte),
	}
}

func (r *recyclingAllocator) Alloc(size int) ([]byte, error) {
	if list := r.freed[size]; len(list) > 0 {
		buf := list[len(list)-1]
		r.freed[size] = list[:len(list)-1]
		return buf, nil
	}
	r.raw++
	return r.inner.Alloc(size)
}

func (r *recyclingAllocator) AllocAligned(align, size int) ([]byte, error) {
	r.raw++
	return r.inner.AllocAligned(align, size)
}

func (r *recyclingAllocator) Free(buf []byte) error {
	r.freed[len(buf)] = append(r.freed[len(buf)], buf)
	return nil
}

// failingAllocator declines requests once its budget runs out.
type failingAllocator struct {
	inner     malloc.Allocator
	remaining int
}

func (f *failingAllocator) Alloc(size int) ([]byte, error) {
	if f.remaining <= 0 {
		return nil, moerr.NewOOM()
	}
	f.remaining--
	return f.inner.Alloc(size)
}

func (f *failingAllocator) AllocAligned(align, size int) ([]byte, error) {
	if f.remaining <= 0 {
		return nil, moerr.NewOOM()
	}
	f.remaining--
	return f.inner.AllocAligned(align, size)
}

func (f *failingAllocator) Free(buf []byte) error {
	return f.inner.Free(buf)
}
