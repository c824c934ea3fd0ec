// Licensed to the Apache Software Foundation (ASF) under one
// or more contributor license agreements.  See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership.  The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License.  You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package memory

import (
	"os"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
)

// CheckedResource wraps a Resource and records every live allocation with
// the location that requested it, so tests can detect leaks.
type CheckedResource struct {
	mem Resource
	sz  int64

	allocs sync.Map
}

func NewCheckedResource(mem Resource) *CheckedResource {
	return &CheckedResource{mem: mem}
}

func (a *CheckedResource) CurrentAlloc() int { return int(atomic.LoadInt64(&a.sz)) }

func (a *CheckedResource) Allocate(size int, stream Stream) ([]byte, error) {
	out, err := a.mem.Allocate(size, stream)
	if err != nil || len(out) == 0 {
		return out, err
	}

	atomic.AddInt64(&a.sz, int64(size))
	if pc, _, l, ok := runtime.Caller(allocFrames); ok {
		a.allocs.Store(addressOf(out), &dalloc{pc: pc, line: l, sz: size})
	}
	return out, nil
}

func (a *CheckedResource) Deallocate(b []byte, stream Stream) {
	defer a.mem.Deallocate(b, stream)
	if len(b) == 0 {
		return
	}

	atomic.AddInt64(&a.sz, int64(len(b)*-1))
	a.allocs.Delete(addressOf(b))
}

func (a *CheckedResource) SupportsStreams() bool { return a.mem.SupportsStreams() }

func (a *CheckedResource) SupportsMemoryInfo() bool { return a.mem.SupportsMemoryInfo() }

func (a *CheckedResource) MemoryInfo(stream Stream) (int64, int64, error) {
	return a.mem.MemoryInfo(stream)
}

// IsEqual compares the wrapped resources when other is also checked, and
// compares the wrapped resource with other otherwise.
func (a *CheckedResource) IsEqual(other Resource) bool {
	if o, ok := other.(*CheckedResource); ok {
		return a.mem.IsEqual(o.mem)
	}
	return a.mem.IsEqual(other)
}

// allocations usually happen through Buffer rather than by calling Allocate
// directly; raise PINNEDMEM_CHECKED_ALLOC_FRAMES to report the caller that
// triggered the allocation instead of the immediate caller of Allocate.
const defAllocFrames = 1

var allocFrames = defAllocFrames

func init() {
	if val, ok := os.LookupEnv("PINNEDMEM_CHECKED_ALLOC_FRAMES"); ok {
		if f, err := strconv.Atoi(val); err == nil {
			allocFrames = f
		}
	}
}

type dalloc struct {
	pc   uintptr
	line int
	sz   int
}

type TestingT interface {
	Errorf(format string, args ...interface{})
	Helper()
}

// AssertSize reports every live allocation as a leak and fails t when the
// outstanding byte count differs from sz.
func (a *CheckedResource) AssertSize(t TestingT, sz int) {
	a.allocs.Range(func(_, value interface{}) bool {
		info := value.(*dalloc)
		name := "unknown"
		if f := runtime.FuncForPC(info.pc); f != nil {
			name = f.Name()
		}
		t.Errorf("LEAK of %d bytes FROM %s line %d\n", info.sz, name, info.line)
		return true
	})

	if cur := a.CurrentAlloc(); cur != sz {
		t.Helper()
		t.Errorf("invalid memory size exp=%d, got=%d", sz, cur)
	}
}

type CheckedResourceScope struct {
	alloc *CheckedResource
	sz    int
}

func NewCheckedResourceScope(alloc *CheckedResource) *CheckedResourceScope {
	return &CheckedResourceScope{alloc: alloc, sz: alloc.CurrentAlloc()}
}

func (c *CheckedResourceScope) CheckSize(t TestingT) {
	if sz := c.alloc.CurrentAlloc(); c.sz != sz {
		t.Helper()
		t.Errorf("invalid memory size exp=%d, got=%d", c.sz, sz)
	}
}

var (
	_ Resource = (*CheckedResource)(nil)
)
