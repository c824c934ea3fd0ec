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
	"errors"
	"testing"

	"github.com/pinnedmem/pinnedmem/memory"
	"github.com/stretchr/testify/assert"
)

func TestAllocationError(t *testing.T) {
	cause := errors.New("shm_open: permission denied")
	err := error(&memory.AllocationError{Op: "create shared segment", Size: 4096, Err: cause})

	assert.EqualError(t, err, "memory: create shared segment of 4096 bytes: shm_open: permission denied")
	assert.ErrorIs(t, err, memory.ErrOutOfMemory)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, memory.ErrMemoryInfo)
}

func TestFatalError(t *testing.T) {
	cause := errors.New("illegal address")
	err := error(&memory.FatalError{Op: "unpin shared segment", Err: cause})

	assert.EqualError(t, err, "memory: fatal: unpin shared segment: illegal address")
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, memory.ErrOutOfMemory)

	var fe *memory.FatalError
	assert.True(t, errors.As(err, &fe))
}
