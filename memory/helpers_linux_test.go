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

package memory_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/pinnedmem/pinnedmem/internal/testing/devicetest"
	"github.com/pinnedmem/pinnedmem/memory/device"
	"github.com/pinnedmem/pinnedmem/memory/shm"
)

func newRuntime(t *testing.T) *device.HostRuntime {
	return devicetest.NewHostRuntime(t)
}

// segmentName returns a segment name private to the test and removes any
// leftover segment when the test ends.
func segmentName(t *testing.T) string {
	name := shm.SessionName(uuid.NewString())
	t.Cleanup(func() { shm.Unlink(name) })
	return name
}
