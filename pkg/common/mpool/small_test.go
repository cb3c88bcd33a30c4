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
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matrixorigin/mpool/pkg/common/malloc"
	"github.com/matrixorigin/mpool/pkg/common/moerr"
)

func TestSmallAllocSequential(t *testing.T) {
	ca := &countingAllocator{inner: malloc.NewHeapAllocator()}
	m, err := NewMPool("test-small-seq", 0, WithAllocator(ca))
	require.True(t, err == nil, "new mpool failed %v", err)
	defer m.Close()

	require.Equal(t, 1, ca.allocs, "creation maps exactly one region")
	require.Equal(t, malloc.PageSize(), m.regionSize)

	a, err := m.Alloc(100)
	require.NoError(t, err)
	b, err := m.Alloc(100)
	require.NoError(t, err)
	c, err := m.Alloc(100)
	require.NoError(t, err)

	step := uintptr(AlignUp(100, WordSize))
	require.True(t, bufAddr(a) == m.blocks[0].base()+uintptr(poolOverhead),
		"first allocation starts right after the header reservation")
	require.True(t, bufAddr(b) == bufAddr(a)+step, "bump allocation is contiguous")
	require.True(t, bufAddr(c) == bufAddr(b)+step, "bump allocation is contiguous")
	require.True(t, bufAddr(a)%uintptr(WordSize) == 0, "word alignment")
	require.Equal(t, 1, ca.allocs, "in place allocations touch no allocator")
}

func TestSmallAllocUnaligned(t *testing.T) {
	m, err := NewMPool("test-small-unaligned", 0)
	require.True(t, err == nil, "new mpool failed %v", err)
	defer m.Close()

	a, err := m.AllocUnaligned(3)
	require.NoError(t, err)
	b, err := m.AllocUnaligned(5)
	require.NoError(t, err)
	c, err := m.AllocUnaligned(1)
	require.NoError(t, err)
	require.True(t, bufAddr(b) == bufAddr(a)+3, "unaligned allocations pack densely")
	require.True(t, bufAddr(c) == bufAddr(b)+5, "unaligned allocations pack densely")

	// an aligned request after dense packing rounds the address up
	d, err := m.Alloc(8)
	require.NoError(t, err)
	require.True(t, bufAddr(d)%uintptr(WordSize) == 0, "word alignment")
	require.True(t, bufAddr(d) == alignAddr(bufAddr(c)+1, uintptr(WordSize)),
		"alignment skips only the gap bytes")
}

func TestSmallAllocExtend(t *testing.T) {
	ca := &countingAllocator{inner: malloc.NewHeapAllocator()}
	m, err := NewMPool("test-small-extend", 192, WithAllocator(ca))
	require.True(t, err == nil, "new mpool failed %v", err)
	defer m.Close()
	require.Equal(t, 128, m.Threshold())

	_, err = m.Alloc(64)
	require.NoError(t, err)
	_, err = m.Alloc(64)
	require.NoError(t, err)
	require.Equal(t, 1, ca.allocs, "both fit the first region")

	c, err := m.Alloc(64)
	require.NoError(t, err)
	require.Equal(t, 2, ca.allocs, "third allocation adds a region")
	require.Equal(t, 2, len(m.blocks))
	require.Equal(t, int64(1), m.Stats().NumExtend.Load())

	// the triggering request commits from the fresh region immediately
	require.True(t, bufAddr(c) == m.blocks[1].base()+uintptr(blockOverhead),
		"extension commits at the fresh region's start")
	require.Equal(t, blockOverhead+64, m.blocks[1].cursor)

	// a lone region is the tail, so the extension charges no misses
	require.Equal(t, int32(0), m.blocks[0].failed)
	require.Equal(t, 0, m.current)
}

func TestMinRegionPool(t *testing.T) {
	m, err := NewMPool("test-small-min-region", MinRegionSize)
	require.True(t, err == nil, "new mpool failed %v", err)
	defer m.Close()
	require.Equal(t, MinRegionSize-poolOverhead, m.Threshold())

	// a threshold sized request fills the first region exactly,
	// and always fits a fresh region in one piece
	_, err = m.Alloc(m.Threshold())
	require.NoError(t, err)
	require.Equal(t, MinRegionSize, m.blocks[0].cursor)
	b, err := m.Alloc(m.Threshold())
	require.NoError(t, err)
	require.Equal(t, 2, len(m.blocks))
	require.Equal(t, blockOverhead+m.Threshold(), m.blocks[1].cursor)
	_ = b
}

func TestThresholdRouting(t *testing.T) {
	ca := &countingAllocator{inner: malloc.NewHeapAllocator()}
	m, err := NewMPool("test-small-threshold", 1<<20, WithAllocator(ca))
	require.True(t, err == nil, "new mpool failed %v", err)
	defer m.Close()
	require.Equal(t, malloc.PageSize()-1, m.Threshold(),
		"large pools cap the threshold below one page")

	_, err = m.Alloc(m.Threshold())
	require.NoError(t, err)
	require.Equal(t, 1, ca.allocs, "threshold sized request stays in the region")

	big, err := m.Alloc(m.Threshold() + 1)
	require.NoError(t, err)
	require.Equal(t, 2, ca.allocs, "request above the threshold goes to the allocator")
	require.NoError(t, m.Free(big))
}

// failedCounts snapshots every block's miss counter.
func (p *MPool) failedCounts() []int32 {
	out := make([]int32, len(p.blocks))
	for i, b := range p.blocks {
		out[i] = b.failed
	}
	return out
}

func TestBlockRetirement(t *testing.T) {
	m, err := NewMPool("test-small-retire", 192)
	require.True(t, err == nil, "new mpool failed %v", err)
	defer m.Close()

	// every 128 byte request fills one region: the first exactly, and
	// each fresh region down to a 32 byte remainder
	alloc := func() {
		_, err := m.Alloc(128)
		require.NoError(t, err)
	}

	alloc() // fills the first region
	alloc() // first extension, a lone region charges no misses
	require.Equal(t, []int32{0, 0}, m.failedCounts())
	require.Equal(t, 0, m.current)

	alloc()
	alloc()
	alloc()
	alloc() // five regions probed and missed so far
	require.Equal(t, []int32{4, 3, 2, 1, 0, 0}, m.failedCounts())
	require.Equal(t, 0, m.current)

	alloc() // the first block's misses pass the budget
	require.Equal(t, []int32{5, 4, 3, 2, 1, 0, 0}, m.failedCounts())
	require.Equal(t, 1, m.current)

	alloc()
	require.Equal(t, []int32{5, 5, 4, 3, 2, 1, 0, 0}, m.failedCounts())
	require.Equal(t, 2, m.current)

	// retired blocks keep a 32 byte remainder that would hold this
	// request; the probe must start at the cursor and never look back
	d, err := m.Alloc(24)
	require.NoError(t, err)
	require.True(t, bufAddr(d) == m.blocks[2].base()+uintptr(m.blocks[2].cursor)-24,
		"retired blocks must not be probed")
}

func TestBlockRetirementEager(t *testing.T) {
	m, err := NewMPool("test-small-retire-eager", 192, WithMaxFailed(0))
	require.True(t, err == nil, "new mpool failed %v", err)
	defer m.Close()

	alloc := func() {
		_, err := m.Alloc(128)
		require.NoError(t, err)
	}

	alloc()
	alloc()
	require.Equal(t, 0, m.current, "lone region charges no misses")
	alloc() // one miss retires a block outright
	require.Equal(t, 1, m.current)
	alloc()
	require.Equal(t, 2, m.current)
}

func TestExtendFailure(t *testing.T) {
	h := malloc.NewHeapAllocator()
	fa := &failingAllocator{inner: h, remaining: 1}
	m, err := NewMPool("test-small-extend-fail", 192, WithAllocator(fa))
	require.True(t, err == nil, "new mpool failed %v", err)
	defer m.Close()

	_, err = m.Alloc(64)
	require.NoError(t, err)
	_, err = m.Alloc(128)
	require.True(t, moerr.IsMoErrCode(err, moerr.ErrOOM), "extension must surface the failure")
	require.Equal(t, 1, len(m.blocks), "failed extension must not grow the chain")
	require.Equal(t, int64(0), m.Stats().NumExtend.Load())
	require.Equal(t, int64(1), m.Stats().NumAlloc.Load(), "failed allocation is not counted")

	// the pool still serves what fits
	_, err = m.Alloc(64)
	require.NoError(t, err)

	// and extends normally once the allocator recovers
	fa.remaining = 1
	_, err = m.Alloc(128)
	require.NoError(t, err)
	require.Equal(t, 2, len(m.blocks))
	require.Equal(t, int64(1), m.Stats().NumExtend.Load())
}
