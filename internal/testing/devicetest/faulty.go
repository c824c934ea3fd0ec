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

// Package devicetest provides device runtimes for tests: a fault injecting
// wrapper and a helper that builds a HostRuntime suited to the test host.
package devicetest

import (
	"sync"

	"github.com/pinnedmem/pinnedmem/memory/device"
)

// Op names a Runtime method.
type Op string

const (
	OpMallocHost     Op = "MallocHost"
	OpFreeHost       Op = "FreeHost"
	OpHostRegister   Op = "HostRegister"
	OpHostUnregister Op = "HostUnregister"
	OpMemGetInfo     Op = "MemGetInfo"
)

// FaultyRuntime forwards to an inner runtime unless a fault has been set for
// the called operation. It counts every call.
type FaultyRuntime struct {
	inner device.Runtime

	mu     sync.Mutex
	faults map[Op]error
	calls  map[Op]int
}

func NewFaultyRuntime(inner device.Runtime) *FaultyRuntime {
	return &FaultyRuntime{
		inner:  inner,
		faults: make(map[Op]error),
		calls:  make(map[Op]int),
	}
}

// Fail makes every following call of op return err. A nil err clears the fault.
func (f *FaultyRuntime) Fail(op Op, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.faults, op)
		return
	}
	f.faults[op] = err
}

// Calls returns how many times op was invoked.
func (f *FaultyRuntime) Calls(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *FaultyRuntime) enter(op Op) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	return f.faults[op]
}

func (f *FaultyRuntime) MallocHost(size int) ([]byte, error) {
	if err := f.enter(OpMallocHost); err != nil {
		return nil, err
	}
	return f.inner.MallocHost(size)
}

func (f *FaultyRuntime) FreeHost(b []byte) error {
	if err := f.enter(OpFreeHost); err != nil {
		return err
	}
	return f.inner.FreeHost(b)
}

func (f *FaultyRuntime) HostRegister(b []byte, flags device.RegisterFlags) error {
	if err := f.enter(OpHostRegister); err != nil {
		return err
	}
	return f.inner.HostRegister(b, flags)
}

func (f *FaultyRuntime) HostUnregister(b []byte) error {
	if err := f.enter(OpHostUnregister); err != nil {
		return err
	}
	return f.inner.HostUnregister(b)
}

func (f *FaultyRuntime) MemGetInfo() (int64, int64, error) {
	if err := f.enter(OpMemGetInfo); err != nil {
		return 0, 0, err
	}
	return f.inner.MemGetInfo()
}

var _ device.Runtime = (*FaultyRuntime)(nil)
