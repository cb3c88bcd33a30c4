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

	"go.uber.org/zap"
)

const (
	// poolOverhead is reserved at the head of the first backing region
	// for the pool-wide header area. blockOverhead is the smaller
	// reservation made in every chained region.
	poolOverhead  = 64
	blockOverhead = 32
)

// block is the descriptor of one backing region. Descriptors live in
// the pool's block table and address regions by offset, so a partially
// failed extension never leaves a dangling link.
type block struct {
	buf    []byte // whole backing region
	cursor int    // offset of the next free byte
	failed int32  // misses while this block was probed
}

func (b *block) base() uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(b.buf)))
}

// take bump-allocates size bytes, or reports that the block is out of
// room. The candidate address, not the offset, is what gets aligned.
func (b *block) take(size int, needAlign bool) ([]byte, bool) {
	base := b.base()
	m := base + uintptr(b.cursor)
	if needAlign {
		m = alignAddr(m, uintptr(WordSize))
	}
	off := int(m - base)
	if off+size > len(b.buf) {
		return nil, false
	}
	b.cursor = off + size
	return b.buf[off:b.cursor:b.cursor], true
}

// allocSmall serves a request at or below the threshold: first fit
// along the chain starting at the current block, extending the chain
// when no block has room.
func (p *MPool) allocSmall(size int, needAlign bool) ([]byte, error) {
	for i := p.current; i < len(p.blocks); i++ {
		if buf, ok := p.blocks[i].take(size, needAlign); ok {
			return buf, nil
		}
	}
	return p.extend(size)
}

// extend grows the chain by one region of the pool's original backing
// size and commits the triggering request from it immediately. Blocks
// probed on the way here accumulate a miss, and once a block's misses
// pass the budget the current cursor retires it for good.
func (p *MPool) extend(size int) ([]byte, error) {
	buf, err := p.options.alloc.AllocAligned(p.options.regionAlign, p.regionSize)
	if err != nil {
		// chain is untouched, the pool stays valid
		return nil, err
	}

	nb := &block{buf: buf}
	start := int(alignAddr(nb.base()+blockOverhead, uintptr(WordSize)) - nb.base())
	nb.cursor = start + size
	committed := buf[start:nb.cursor:nb.cursor]

	last := len(p.blocks) - 1
	for i := p.current; i < last; i++ {
		b := p.blocks[i]
		b.failed++
		if b.failed > p.options.maxFailed {
			p.current = i + 1
		}
	}
	p.blocks = append(p.blocks, nb)

	p.stats.NumExtend.Add(1)
	p.logger.Debug("mpool extended",
		zap.String("pool", p.name),
		zap.Int("regions", len(p.blocks)),
		zap.Int("current", p.current))
	return committed, nil
}
