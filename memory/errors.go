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
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var (
	// ErrOutOfMemory is matched by every recoverable allocation failure.
	ErrOutOfMemory = errors.New("memory: out of memory")
	// ErrMemoryInfo is matched by failures to query device memory.
	ErrMemoryInfo = errors.New("memory: memory info query failed")
	// ErrSegmentTooSmall is reported when a joiner finds a published segment
	// smaller than its request.
	ErrSegmentTooSmall = errors.New("memory: shared segment smaller than request")
	// ErrSegmentInUse is reported when the creator already holds a live
	// allocation of its segment.
	ErrSegmentInUse = errors.New("memory: shared segment already allocated")
)

// AllocationError describes a failed allocation. It matches ErrOutOfMemory
// and unwraps to the underlying cause.
type AllocationError struct {
	Op   string
	Size int
	Err  error
}

func (e *AllocationError) Error() string {
	return fmt.Sprintf("memory: %s of %d bytes: %v", e.Op, e.Size, e.Err)
}

func (e *AllocationError) Unwrap() error { return e.Err }

func (e *AllocationError) Is(target error) bool { return target == ErrOutOfMemory }

// FatalError is the panic value used when the runtime fails to release memory
// that was validly allocated. Callers are not expected to recover from it.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("memory: fatal: %s: %v", e.Op, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

func fatal(log *zap.Logger, op string, err error) {
	log.Error("unrecoverable runtime fault", zap.String("op", op), zap.Error(err))
	panic(&FatalError{Op: op, Err: err})
}

func memoryInfoError(err error) error {
	return fmt.Errorf("%w: %w", ErrMemoryInfo, err)
}

func checkSize(size int) {
	if size < 0 {
		panic("memory: negative size")
	}
}
