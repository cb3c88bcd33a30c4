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

// Package mpool implements a region-based memory pool. Many short
// lived small allocations are bump-allocated from a chain of backing
// regions, while requests above a per-pool threshold go to the system
// allocator and are tracked in a slot list so the pool can release
// them later.
//
// A pool is owned by one goroutine at a time; its operations are not
// safe for concurrent use. Statistics are atomics, so monitors may
// observe a live pool from other goroutines.
package mpool

import (
	"unsafe"

	"go.uber.org/zap"

	"github.com/matrixorigin/mpool/pkg/common/malloc"
	"github.com/matrixorigin/mpool/pkg/common/moerr"
)

// MPool is the pool handle. The zero value is not usable; create pools
// with NewMPool.
type MPool struct {
	name string
	id   int64

	regionSize int // backing size of every region in the chain
	threshold  int // largest request the bump engine serves

	options struct {
		regionAlign int
		maxFailed   int32
		scanLimit   int
		alloc       malloc.Allocator
		logger      *zap.Logger
	}
	logger *zap.Logger

	blocks   []*block
	current  int // index of the first block still worth probing
	large    *slot
	cleanups []func()
	closed   bool

	stats Stats
}

// NewMPool creates a pool with one backing region of the given size.
// size covers the header reservation too; zero picks the platform page
// size. The threshold separating small from large requests is
// min(size-headerSize, pageSize-1).
func NewMPool(name string, size int, opts ...Option) (*MPool, error) {
	if name == "" {
		return nil, moerr.NewInvalidInput("empty pool name")
	}
	if size == 0 {
		size = malloc.PageSize()
	}
	if size < MinRegionSize {
		return nil, moerr.NewInvalidInput("pool size %d, minimum %d", size, MinRegionSize)
	}

	p := &MPool{
		name: name,
		id:   nextPoolID.Add(1),
	}
	p.options.regionAlign = DefaultRegionAlign
	p.options.maxFailed = DefaultMaxFailed
	p.options.scanLimit = DefaultScanLimit
	for _, opt := range opts {
		opt(p)
	}
	if err := p.adjust(); err != nil {
		return nil, err
	}
	p.logger = p.options.logger

	buf, err := p.options.alloc.AllocAligned(p.options.regionAlign, size)
	if err != nil {
		return nil, err
	}
	p.regionSize = size
	p.threshold = min(size-poolOverhead, malloc.PageSize()-1)
	p.blocks = []*block{{buf: buf, cursor: poolOverhead}}

	if err := register(p); err != nil {
		p.options.alloc.Free(buf)
		return nil, err
	}
	p.logger.Debug("mpool created",
		zap.String("pool", name),
		zap.Int("size", size),
		zap.Int("threshold", p.threshold))
	return p, nil
}

// Name returns the pool's registry name.
func (p *MPool) Name() string {
	return p.name
}

// Threshold returns the largest request served by the bump engine.
func (p *MPool) Threshold() int {
	return p.threshold
}

// Stats returns the pool's live counters.
func (p *MPool) Stats() *Stats {
	return &p.stats
}

// CurrNB returns the pool's current net bytes, allocations minus
// releases.
func (p *MPool) CurrNB() int64 {
	return p.stats.InuseBytes.Load()
}

// Alloc returns a word-aligned buffer of the given size. Requests at
// or below the threshold are bump-allocated; larger ones come from the
// system allocator and must be returned with Free.
func (p *MPool) Alloc(size int) ([]byte, error) {
	return p.dispatch(size, true)
}

// AllocUnaligned is Alloc without the word alignment guarantee, for
// callers that prefer denser packing.
func (p *MPool) AllocUnaligned(size int) ([]byte, error) {
	return p.dispatch(size, false)
}

func (p *MPool) dispatch(size int, needAlign bool) ([]byte, error) {
	if p.closed {
		return nil, moerr.NewInvalidState("pool %s is closed", p.name)
	}
	if size <= 0 {
		return nil, moerr.NewInvalidInput("alloc size %d", size)
	}
	var buf []byte
	var err error
	if size <= p.threshold {
		buf, err = p.allocSmall(size, needAlign)
	} else {
		buf, err = p.allocLarge(size, 0)
	}
	if err != nil {
		return nil, err
	}
	p.stats.recordAlloc(int64(size))
	return buf, nil
}

// AllocZeroed is Alloc plus a zero fill. Pool memory is recycled, so
// plain Alloc hands out whatever bytes the region already holds.
func (p *MPool) AllocZeroed(size int) ([]byte, error) {
	buf, err := p.Alloc(size)
	if err != nil {
		return nil, err
	}
	clear(buf)
	return buf, nil
}

// AllocAligned returns a buffer aligned to align bytes, any power of
// two up to the page size. The buffer is tracked like a large
// allocation regardless of size and must be returned with Free.
func (p *MPool) AllocAligned(size, align int) ([]byte, error) {
	if p.closed {
		return nil, moerr.NewInvalidState("pool %s is closed", p.name)
	}
	if size <= 0 {
		return nil, moerr.NewInvalidInput("alloc size %d", size)
	}
	buf, err := p.allocLarge(size, align)
	if err != nil {
		return nil, err
	}
	p.stats.recordAlloc(int64(size))
	return buf, nil
}

// Free releases a tracked large allocation. Freeing an address the
// pool does not track, including any small allocation, reports not
// found and changes nothing; small memory is reclaimed only by Reset
// or Close.
func (p *MPool) Free(buf []byte) error {
	if p.closed {
		return moerr.NewInvalidState("pool %s is closed", p.name)
	}
	if len(buf) == 0 {
		return moerr.NewInvalidInput("free of empty buffer")
	}
	return p.freeLarge(buf)
}

// Realloc grows or shrinks buf to size. Shrinking is a subslice.
// Growth allocates, copies, zeroes the extension, and releases the old
// buffer if the pool tracked it.
func (p *MPool) Realloc(buf []byte, size int) ([]byte, error) {
	if p.closed {
		return nil, moerr.NewInvalidState("pool %s is closed", p.name)
	}
	if size <= 0 {
		return nil, moerr.NewInvalidInput("realloc size %d", size)
	}
	if buf == nil {
		return p.Alloc(size)
	}
	if size <= len(buf) {
		return buf[:size], nil
	}
	nb, err := p.Alloc(size)
	if err != nil {
		return nil, err
	}
	copy(nb, buf)
	clear(nb[len(buf):])
	if err := p.freeLarge(buf); err != nil && !moerr.IsMoErrCode(err, moerr.ErrNotFound) {
		return nil, err
	}
	return nb, nil
}

// AllocTyped allocates a zeroed *T from the pool. T must not contain
// Go heap pointers: the garbage collector does not scan pool memory.
func AllocTyped[T any](p *MPool) (*T, error) {
	var zero T
	size := int(unsafe.Sizeof(zero))
	if size == 0 {
		return nil, moerr.NewInvalidInput("zero sized type")
	}
	buf, err := p.AllocZeroed(size)
	if err != nil {
		return nil, err
	}
	return (*T)(unsafe.Pointer(unsafe.SliceData(buf))), nil
}

// AddCleanup registers fn to run at Close, before any memory is
// released. Callbacks run once, newest first.
func (p *MPool) AddCleanup(fn func()) error {
	if p.closed {
		return moerr.NewInvalidState("pool %s is closed", p.name)
	}
	if fn == nil {
		return moerr.NewInvalidInput("nil cleanup")
	}
	p.cleanups = append(p.cleanups, fn)
	return nil
}

// Reset releases every large payload and rewinds every region for
// reuse. Regions are kept; nothing goes back to the system allocator
// except large payloads.
func (p *MPool) Reset() error {
	if p.closed {
		return moerr.NewInvalidState("pool %s is closed", p.name)
	}
	var firstErr error
	for s := p.large; s != nil; s = s.next {
		if s.buf == nil {
			continue
		}
		if err := p.options.alloc.Free(s.buf); err != nil && firstErr == nil {
			firstErr = err
		}
		s.buf = nil
	}
	p.large = nil
	for i, b := range p.blocks {
		if i == 0 {
			b.cursor = poolOverhead
		} else {
			b.cursor = blockOverhead
		}
		b.failed = 0
	}
	p.current = 0
	p.stats.InuseBytes.Store(0)
	return firstErr
}

// Close runs cleanups, releases every large payload and every backing
// region, and unregisters the pool. Closing twice is a no-op.
func (p *MPool) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true

	for i := len(p.cleanups) - 1; i >= 0; i-- {
		p.cleanups[i]()
	}
	p.cleanups = nil

	var firstErr error
	// slot husks live inside the regions, so payloads go first and the
	// chain is torn down after the walk
	for s := p.large; s != nil; s = s.next {
		if s.buf == nil {
			continue
		}
		if err := p.options.alloc.Free(s.buf); err != nil && firstErr == nil {
			firstErr = err
		}
		s.buf = nil
	}
	p.large = nil
	for _, b := range p.blocks {
		if err := p.options.alloc.Free(b.buf); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	p.blocks = nil
	p.stats.InuseBytes.Store(0)

	unregister(p)
	p.logger.Debug("mpool closed", zap.String("pool", p.name))
	return firstErr
}
