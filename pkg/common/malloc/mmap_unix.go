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

//go:build unix

package malloc

import (
	"golang.org/x/sys/unix"

	"github.com/matrixorigin/mpool/pkg/common/moerr"
)

// MmapAllocator maps anonymous pages for every request. Returned
// regions are page-aligned, so any power-of-two alignment up to the
// page size is satisfied without slack. The memory is invisible to the
// Go garbage collector; the caller owns it until Free.
type MmapAllocator struct {
	stats Stats
}

func NewMmapAllocator() *MmapAllocator {
	return &MmapAllocator{}
}

var _ Allocator = new(MmapAllocator)

func (a *MmapAllocator) Alloc(size int) ([]byte, error) {
	if size <= 0 {
		return nil, moerr.NewInvalidInput("mmap alloc size %d", size)
	}
	mapLen := roundPage(size)
	slice, err := unix.Mmap(
		-1, 0,
		mapLen,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS,
	)
	if err != nil {
		return nil, moerr.NewOOM()
	}
	a.stats.recordAlloc(size)
	// The full mapping length rides along in the capacity so Free can
	// reconstruct the munmap argument.
	return slice[:size:mapLen], nil
}

func (a *MmapAllocator) AllocAligned(align int, size int) ([]byte, error) {
	if !isPowerOfTwo(align) || align > pageSize {
		return nil, moerr.NewInvalidInput("mmap alignment %d", align)
	}
	return a.Alloc(size)
}

func (a *MmapAllocator) Free(buf []byte) error {
	if len(buf) == 0 {
		return moerr.NewInvalidInput("mmap free of empty buffer")
	}
	if err := unix.Munmap(buf[:cap(buf)]); err != nil {
		return moerr.NewInternalError("munmap: %v", err)
	}
	a.stats.recordFree(len(buf))
	return nil
}

func (a *MmapAllocator) Stats() *Stats {
	return &a.stats
}
