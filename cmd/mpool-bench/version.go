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

package main

import (
	"fmt"
	"os"
)

// Set by -ldflags at build time.
var (
	Version   = "unknown"
	GoVersion = "unknown"
	CommitID  = "unknown"
	BuildTime = "unknown"
)

func maybePrintVersion() {
	if !*printVersion {
		return
	}
	fmt.Println("mpool-bench version:", Version)
	fmt.Println("go version:", GoVersion)
	fmt.Println("commit id:", CommitID)
	fmt.Println("build time:", BuildTime)
	os.Exit(0)
}
