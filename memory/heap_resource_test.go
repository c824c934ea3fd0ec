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

package memory_test

import (
	"sync"
	"unsafe"

	"github.com/pinnedmem/pinnedmem/memory"
)

// heapResource hands out Go heap memory and remembers what is live, so the
// wrappers can be tested without touching the device runtime.
type heapResource struct {
	mu   sync.Mutex
	live map[*byte]int
}

func newHeapResource() *heapResource {
	return &heapResource{live: make(map[*byte]int)}
}

func (h *heapResource) Allocate(size int, _ memory.Stream) ([]byte, error) {
	if size == 0 {
		return nil, nil
	}
	b := make([]byte, size)
	h.mu.Lock()
	h.live[unsafe.SliceData(b)] = size
	h.mu.Unlock()
	return b, nil
}

func (h *heapResource) Deallocate(b []byte, _ memory.Stream) {
	if len(b) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.live[unsafe.SliceData(b)]; !ok {
		panic("heapResource: foreign or double free")
	}
	delete(h.live, unsafe.SliceData(b))
}

func (h *heapResource) Live() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.live)
}

func (h *heapResource) SupportsStreams() bool                        { return true }
func (h *heapResource) SupportsMemoryInfo() bool                     { return false }
func (h *heapResource) MemoryInfo(memory.Stream) (int64, int64, error) { return 0, 0, nil }

func (h *heapResource) IsEqual(other memory.Resource) bool {
	o, ok := other.(*heapResource)
	return ok && o == h
}
