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

//go:build linux

package devicetest

import (
	"testing"

	"github.com/pinnedmem/pinnedmem/memory/device"
	"golang.org/x/sys/unix"
)

const (
	// below this RLIMIT_MEMLOCK tests run without mlock
	minLockLimit = 1 << 20
	rlimInfinity = ^uint64(0)
)

// NewHostRuntime returns a HostRuntime for t. Page locking is turned off when
// the process may not lock at least minLockLimit bytes.
func NewHostRuntime(t testing.TB) *device.HostRuntime {
	t.Helper()
	return device.NewHostRuntime(device.WithPageLocking(CanLock(minLockLimit)))
}

// CanLock reports whether RLIMIT_MEMLOCK allows locking n bytes.
func CanLock(n uint64) bool {
	var lim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_MEMLOCK, &lim); err != nil {
		return false
	}
	return lim.Cur == rlimInfinity || lim.Cur >= n
}
