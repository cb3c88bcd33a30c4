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

import "unsafe"

// WordSize is the platform word size. Small allocations are aligned to
// it unless the caller asks for unaligned packing.
const WordSize = int(unsafe.Sizeof(uintptr(0)))

// AlignUp rounds size up to the next multiple of align. align must be
// a power of two.
func AlignUp(size, align int) int {
	return (size + align - 1) &^ (align - 1)
}

// alignAddr is the address variant of AlignUp. It stays within uintptr
// so it never needs arithmetic wider than the platform address size.
func alignAddr(p, align uintptr) uintptr {
	return (p + align - 1) &^ (align - 1)
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}
