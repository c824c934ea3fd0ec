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

import "context"

// Stream is an opaque execution-ordering token for device work. The resources
// in this package are synchronous and ignore it, but accept it so that stream
// ordered resources can be swapped in.
type Stream uintptr

// DefaultStream is the legacy default stream.
const DefaultStream Stream = 0

// Resource acquires and releases host memory reachable by the device.
//
// Memory returned by Allocate must be released with Deallocate on a resource
// for which IsEqual reports true, passing the very slice that was returned.
// Releasing a slice obtained elsewhere, or one that was resliced to a
// different length, is a precondition violation and is not detected.
type Resource interface {
	// Allocate returns at least size bytes. A zero size returns a nil slice
	// and does no work.
	Allocate(size int, stream Stream) ([]byte, error)
	// Deallocate releases memory returned by Allocate. It never fails for
	// valid input.
	Deallocate(b []byte, stream Stream)
	// SupportsStreams reports whether allocations are ordered on stream.
	SupportsStreams() bool
	// SupportsMemoryInfo reports whether MemoryInfo is available.
	SupportsMemoryInfo() bool
	// MemoryInfo returns the free and total memory of the device. These are
	// device-wide figures, not per resource accounting.
	MemoryInfo(stream Stream) (free, total int64, err error)
	// IsEqual reports whether memory allocated by r can be released by other
	// and vice versa.
	IsEqual(other Resource) bool
}

// ContextAllocator is implemented by resources whose Allocate may block.
type ContextAllocator interface {
	AllocateContext(ctx context.Context, size int, stream Stream) ([]byte, error)
}

// AllocateContext allocates from mem, bounding any wait with ctx when mem
// implements ContextAllocator.
func AllocateContext(ctx context.Context, mem Resource, size int, stream Stream) ([]byte, error) {
	if ca, ok := mem.(ContextAllocator); ok {
		return ca.AllocateContext(ctx, size, stream)
	}
	return mem.Allocate(size, stream)
}

// DefaultResource is a process-local pinned resource backed by the default
// device runtime.
//
// DefaultResource is safe to use from multiple goroutines.
var DefaultResource Resource = NewPinnedResource()
