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

// Allocator is the panic-on-failure allocation contract used by consumers
// that cannot handle allocation errors.
type Allocator interface {
	Allocate(size int) []byte
	Reallocate(size int, b []byte) []byte
	Free(b []byte)
}

// ResourceAllocator adapts a Resource to Allocator. Allocation failures panic
// with the *AllocationError returned by the resource.
type ResourceAllocator struct {
	mem    Resource
	stream Stream
}

func NewResourceAllocator(mem Resource) *ResourceAllocator {
	return &ResourceAllocator{mem: mem, stream: DefaultStream}
}

func (a *ResourceAllocator) Allocate(size int) []byte {
	b, err := a.mem.Allocate(size, a.stream)
	if err != nil {
		panic(err)
	}
	return b
}

// Reallocate copies b into a new allocation of size bytes; bytes beyond the
// old length are zero. The old allocation is released before the new one is
// made, because a shared resource reuses the same segment name.
func (a *ResourceAllocator) Reallocate(size int, b []byte) []byte {
	if size == len(b) {
		return b
	}

	keep := len(b)
	if size < keep {
		keep = size
	}
	tmp := make([]byte, keep)
	copy(tmp, b)
	a.Free(b)

	out := a.Allocate(size)
	copy(out, tmp)
	if size > keep {
		Set(out[keep:], 0)
	}
	return out
}

func (a *ResourceAllocator) Free(b []byte) {
	a.mem.Deallocate(b, a.stream)
}

var _ Allocator = (*ResourceAllocator)(nil)
