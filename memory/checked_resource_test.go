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
	"testing"

	"github.com/pinnedmem/pinnedmem/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingT struct {
	errors []string
}

func (r *recordingT) Errorf(format string, args ...interface{}) {
	r.errors = append(r.errors, format)
}

func (r *recordingT) Helper() {}

func TestCheckedResourceTracksAllocations(t *testing.T) {
	heap := newHeapResource()
	mem := memory.NewCheckedResource(heap)
	defer mem.AssertSize(t, 0)

	a, err := mem.Allocate(64, memory.DefaultStream)
	require.NoError(t, err)
	b, err := mem.Allocate(128, memory.DefaultStream)
	require.NoError(t, err)
	assert.Equal(t, 192, mem.CurrentAlloc())

	scope := memory.NewCheckedResourceScope(mem)
	c, err := mem.Allocate(32, memory.DefaultStream)
	require.NoError(t, err)
	mem.Deallocate(c, memory.DefaultStream)
	scope.CheckSize(t)

	mem.Deallocate(a, memory.DefaultStream)
	assert.Equal(t, 128, mem.CurrentAlloc())
	mem.Deallocate(b, memory.DefaultStream)
	assert.Zero(t, heap.Live())
}

func TestCheckedResourceZeroSize(t *testing.T) {
	mem := memory.NewCheckedResource(newHeapResource())
	buf, err := mem.Allocate(0, memory.DefaultStream)
	require.NoError(t, err)
	assert.Nil(t, buf)
	mem.Deallocate(buf, memory.DefaultStream)
	mem.AssertSize(t, 0)
}

func TestCheckedResourceReportsLeaks(t *testing.T) {
	mem := memory.NewCheckedResource(newHeapResource())
	buf, err := mem.Allocate(48, memory.DefaultStream)
	require.NoError(t, err)

	rec := &recordingT{}
	mem.AssertSize(rec, 0)
	require.Len(t, rec.errors, 2)
	assert.Contains(t, rec.errors[0], "LEAK")
	assert.Contains(t, rec.errors[1], "invalid memory size")

	rec = &recordingT{}
	scope := memory.NewCheckedResourceScope(mem)
	mem.Deallocate(buf, memory.DefaultStream)
	scope.CheckSize(rec)
	assert.Len(t, rec.errors, 1)
	mem.AssertSize(t, 0)
}

func TestCheckedResourceForwards(t *testing.T) {
	heap := newHeapResource()
	mem := memory.NewCheckedResource(heap)
	assert.True(t, mem.SupportsStreams())
	assert.False(t, mem.SupportsMemoryInfo())
	assert.True(t, mem.IsEqual(heap))
	assert.True(t, mem.IsEqual(memory.NewCheckedResource(heap)))
	assert.False(t, mem.IsEqual(memory.NewCheckedResource(newHeapResource())))
}
