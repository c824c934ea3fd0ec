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

// Package device exposes the accelerator runtime primitives that the memory
// resources need: page-locked host allocation, registration of existing host
// ranges, and device-wide memory information.
//
// Two runtimes are provided. HostRuntime pins pages with mlock(2) and keeps a
// registration table so that misuse (double registration, unregistering an
// unknown range) is reported. When built with the cuda tag and cgo enabled, the
// default runtime calls into the CUDA runtime library instead.
package device

import (
	"errors"
	"fmt"
	"sync"
)

// RegisterFlags mirror the flags accepted by cudaHostRegister.
type RegisterFlags uint32

const (
	RegisterDefault  RegisterFlags = 0x00
	RegisterPortable RegisterFlags = 0x01
	RegisterMapped   RegisterFlags = 0x02
	RegisterIoMemory RegisterFlags = 0x04
	RegisterReadOnly RegisterFlags = 0x08
)

func (f RegisterFlags) String() string {
	if f == RegisterDefault {
		return "default"
	}

	var (
		str = ""
		sep = ""
	)
	for _, flag := range []struct {
		bit  RegisterFlags
		name string
	}{
		{RegisterPortable, "portable"},
		{RegisterMapped, "mapped"},
		{RegisterIoMemory, "iomemory"},
		{RegisterReadOnly, "readonly"},
	} {
		if f&flag.bit != 0 {
			str += sep + flag.name
			sep = "|"
		}
	}
	return str
}

var (
	ErrNotSupported      = errors.New("device: operation not supported on this platform")
	ErrInvalidValue      = errors.New("device: invalid value")
	ErrAlreadyRegistered = errors.New("device: host range already registered")
	ErrNotRegistered     = errors.New("device: host range not registered")
)

// Error is returned by runtimes backed by a native library and carries its
// status code.
type Error struct {
	Op   string
	Code int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("device: %s failed with code %d: %s", e.Op, e.Code, e.Msg)
}

// Runtime is the set of accelerator runtime calls used by the memory resources.
//
// Slices returned by MallocHost must be handed back unchanged to FreeHost.
// HostRegister and HostUnregister must be called with the same slice.
type Runtime interface {
	// MallocHost allocates size bytes of page-locked host memory.
	MallocHost(size int) ([]byte, error)
	// FreeHost releases memory obtained from MallocHost.
	FreeHost(b []byte) error
	// HostRegister page-locks an existing host range so the device can access it.
	HostRegister(b []byte, flags RegisterFlags) error
	// HostUnregister undoes HostRegister.
	HostUnregister(b []byte) error
	// MemGetInfo reports the free and total memory of the device.
	MemGetInfo() (free, total int64, err error)
}

var (
	defaultOnce    sync.Once
	defaultRuntime Runtime
)

// Default returns the process-wide runtime selected at build time.
func Default() Runtime {
	defaultOnce.Do(func() {
		defaultRuntime = newDefaultRuntime()
	})
	return defaultRuntime
}
