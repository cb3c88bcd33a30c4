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

	"github.com/matrixorigin/mpool/pkg/common/moerr"
)

// slot tracks one large allocation. Slots are carved from the pool's
// own small engine, so they live inside region memory that the garbage
// collector never scans: payload and region liveness comes from the
// allocator's bookkeeping, and a fresh husk is zeroed before its first
// pointer write. A slot is never unlinked; releasing its payload just
// empties it for reuse.
type slot struct {
	next *slot
	buf  []byte // payload; nil after release
}

var slotSize = int(unsafe.Sizeof(slot{}))

func (p *MPool) newSlot() (*slot, error) {
	mem, err := p.allocSmall(slotSize, true)
	if err != nil {
		return nil, err
	}
	clear(mem)
	return (*slot)(unsafe.Pointer(unsafe.SliceData(mem))), nil
}

// allocLarge delegates to the system allocator and records the payload
// in a slot. Reuse of released slots is best effort: only the first
// scanLimit slots from the head are examined. align == 0 means no
// caller alignment requirement.
func (p *MPool) allocLarge(size, align int) ([]byte, error) {
	var buf []byte
	var err error
	if align > 0 {
		buf, err = p.options.alloc.AllocAligned(align, size)
	} else {
		buf, err = p.options.alloc.Alloc(size)
	}
	if err != nil {
		return nil, err
	}

	n := 0
	for s := p.large; s != nil && n < p.options.scanLimit; s, n = s.next, n+1 {
		if s.buf == nil {
			s.buf = buf
			p.stats.NumLargeAlloc.Add(1)
			p.stats.NumLargeReuse.Add(1)
			return buf, nil
		}
	}

	s, err := p.newSlot()
	if err != nil {
		// do not leave an untracked system allocation behind
		p.options.alloc.Free(buf)
		return nil, err
	}
	s.buf = buf
	s.next = p.large
	p.large = s
	p.stats.NumLargeAlloc.Add(1)
	return buf, nil
}

// freeLarge releases the payload whose address matches buf and empties
// its slot. The scan is unbounded: release is about correctness, not
// latency.
func (p *MPool) freeLarge(buf []byte) error {
	target := unsafe.SliceData(buf)
	for s := p.large; s != nil; s = s.next {
		if s.buf == nil || unsafe.SliceData(s.buf) != target {
			continue
		}
		size := len(s.buf)
		if err := p.options.alloc.Free(s.buf); err != nil {
			return err
		}
		s.buf = nil
		p.stats.recordFree(int64(size))
		return nil
	}
	return moerr.NewNotFound("pointer %x in pool %s",
		uintptr(unsafe.Pointer(target)), p.name)
}
