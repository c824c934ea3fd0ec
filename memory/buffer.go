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
	"context"
	"sync/atomic"

	"github.com/pinnedmem/pinnedmem/internal/debug"
)

// Buffer is a reference counted allocation. It remembers the resource, size
// and stream it was allocated with and releases the memory with exactly
// those when the last reference is dropped.
type Buffer struct {
	refCount int64
	buf      []byte
	mem      Resource
	stream   Stream
}

// NewBuffer allocates size bytes from mem. The buffer starts with a single
// reference.
func NewBuffer(mem Resource, size int, stream Stream) (*Buffer, error) {
	b, err := mem.Allocate(size, stream)
	if err != nil {
		return nil, err
	}
	return &Buffer{refCount: 1, buf: b, mem: mem, stream: stream}, nil
}

// NewBufferContext is NewBuffer for resources that may block, such as a
// joiner waiting for a shared segment.
func NewBufferContext(ctx context.Context, mem Resource, size int, stream Stream) (*Buffer, error) {
	b, err := AllocateContext(ctx, mem, size, stream)
	if err != nil {
		return nil, err
	}
	return &Buffer{refCount: 1, buf: b, mem: mem, stream: stream}, nil
}

// NewBufferBytes wraps memory the buffer does not own. Release never
// deallocates it.
func NewBufferBytes(data []byte) *Buffer {
	return &Buffer{refCount: 1, buf: data}
}

// Retain increases the reference count by 1.
func (b *Buffer) Retain() {
	atomic.AddInt64(&b.refCount, 1)
}

// Release decreases the reference count by 1. When it reaches zero the
// memory is returned to the resource it came from.
func (b *Buffer) Release() {
	debug.Assert(atomic.LoadInt64(&b.refCount) > 0, "too many releases")

	if atomic.AddInt64(&b.refCount, -1) == 0 {
		if b.mem != nil {
			b.mem.Deallocate(b.buf, b.stream)
		}
		b.buf, b.mem = nil, nil
	}
}

// Bytes returns the allocation.
func (b *Buffer) Bytes() []byte { return b.buf }

// Len returns the size of the allocation in bytes.
func (b *Buffer) Len() int { return len(b.buf) }

// Resource returns the resource that owns the memory, nil for wrapped bytes
// and released buffers.
func (b *Buffer) Resource() Resource { return b.mem }

// Stream returns the stream the buffer was allocated on.
func (b *Buffer) Stream() Stream { return b.stream }
