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
	"go.uber.org/zap"
)

// PinnedResource allocates page-locked host memory private to the process
// through the device runtime.
//
// See https://devblogs.nvidia.com/how-optimize-data-transfers-cuda-cc/
type PinnedResource struct {
	cfg config
}

// NewPinnedResource returns a pinned resource. Only WithRuntime and WithLogger
// apply to it.
func NewPinnedResource(opts ...Option) *PinnedResource {
	return &PinnedResource{cfg: newConfig(opts)}
}

// Allocate returns size bytes of pinned memory. The stream is ignored.
func (r *PinnedResource) Allocate(size int, _ Stream) ([]byte, error) {
	checkSize(size)
	if size == 0 {
		return nil, nil
	}

	b, err := r.cfg.runtime.MallocHost(size)
	if err != nil {
		r.cfg.log().Warn("pinned allocation failed", zap.Int("size", size), zap.Error(err))
		return nil, &AllocationError{Op: "pinned host allocation", Size: size, Err: err}
	}
	return b, nil
}

// Deallocate frees b. The stream is ignored.
func (r *PinnedResource) Deallocate(b []byte, _ Stream) {
	if len(b) == 0 {
		return
	}
	if err := r.cfg.runtime.FreeHost(b); err != nil {
		fatal(r.cfg.log(), "free pinned host memory", err)
	}
}

func (r *PinnedResource) SupportsStreams() bool { return false }

func (r *PinnedResource) SupportsMemoryInfo() bool { return true }

func (r *PinnedResource) MemoryInfo(_ Stream) (free, total int64, err error) {
	return r.cfg.memoryInfo()
}

// IsEqual reports whether other is a PinnedResource. Any two pinned resources
// can free each other's allocations.
func (r *PinnedResource) IsEqual(other Resource) bool {
	_, ok := other.(*PinnedResource)
	return ok
}

var _ Resource = (*PinnedResource)(nil)
