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
	"go.uber.org/zap"

	"github.com/matrixorigin/mpool/pkg/common/malloc"
	"github.com/matrixorigin/mpool/pkg/common/moerr"
	"github.com/matrixorigin/mpool/pkg/logutil"
)

const (
	// DefaultRegionAlign is the alignment of every backing region.
	DefaultRegionAlign = 16
	// DefaultMaxFailed is the number of misses a block survives before
	// the search cursor retires it.
	DefaultMaxFailed = 4
	// DefaultScanLimit is the number of slots a large allocation
	// examines when looking for a released slot to reuse.
	DefaultScanLimit = 4

	// MinRegionSize is the smallest backing size a pool accepts. It
	// leaves room for the header reservation plus slot metadata.
	MinRegionSize = 128
)

// Option configures a pool at creation time.
type Option func(*MPool)

// WithAllocator replaces the system allocator backing the pool.
func WithAllocator(alloc malloc.Allocator) Option {
	return func(p *MPool) {
		p.options.alloc = alloc
	}
}

// WithLogger sets the diagnostics sink. The sink is stored and used
// for reporting only; it never influences allocation decisions.
func WithLogger(logger *zap.Logger) Option {
	return func(p *MPool) {
		p.options.logger = logger
	}
}

// WithMaxFailed overrides the block retirement threshold.
func WithMaxFailed(n int) Option {
	return func(p *MPool) {
		p.options.maxFailed = int32(n)
	}
}

// WithScanLimit overrides the large-slot reuse scan bound.
func WithScanLimit(n int) Option {
	return func(p *MPool) {
		p.options.scanLimit = n
	}
}

// WithRegionAlign overrides the backing region alignment.
func WithRegionAlign(n int) Option {
	return func(p *MPool) {
		p.options.regionAlign = n
	}
}

func (p *MPool) adjust() error {
	if p.options.alloc == nil {
		p.options.alloc = malloc.Default()
	}
	p.options.logger = logutil.Adjust(p.options.logger)
	if !isPowerOfTwo(p.options.regionAlign) ||
		p.options.regionAlign < WordSize ||
		p.options.regionAlign > malloc.PageSize() {
		return moerr.NewInvalidInput("region alignment %d", p.options.regionAlign)
	}
	if p.options.maxFailed < 0 {
		return moerr.NewInvalidInput("max failed %d", p.options.maxFailed)
	}
	if p.options.scanLimit < 0 {
		return moerr.NewInvalidInput("scan limit %d", p.options.scanLimit)
	}
	return nil
}
