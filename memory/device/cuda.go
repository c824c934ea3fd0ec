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

//go:build cuda && cgo

package device

// #cgo LDFLAGS: -lcudart
// #include <cuda_runtime_api.h>
import "C"
import (
	"unsafe"
)

type cudaRuntime struct{}

// NewCUDARuntime returns a Runtime backed by the CUDA runtime library.
func NewCUDARuntime() Runtime { return cudaRuntime{} }

func newDefaultRuntime() Runtime { return NewCUDARuntime() }

func cudaCheck(op string, rc C.cudaError_t) error {
	if rc == C.cudaSuccess {
		return nil
	}
	return &Error{Op: op, Code: int(rc), Msg: C.GoString(C.cudaGetErrorString(rc))}
}

func (cudaRuntime) MallocHost(size int) ([]byte, error) {
	if size <= 0 {
		return nil, ErrInvalidValue
	}

	var p unsafe.Pointer
	if err := cudaCheck("cudaMallocHost", C.cudaMallocHost(&p, C.size_t(size))); err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(p), size), nil
}

func (cudaRuntime) FreeHost(b []byte) error {
	if len(b) == 0 {
		return ErrInvalidValue
	}
	return cudaCheck("cudaFreeHost", C.cudaFreeHost(unsafe.Pointer(&b[0])))
}

func (cudaRuntime) HostRegister(b []byte, flags RegisterFlags) error {
	if len(b) == 0 {
		return ErrInvalidValue
	}
	rc := C.cudaHostRegister(unsafe.Pointer(&b[0]), C.size_t(len(b)), C.uint(flags))
	return cudaCheck("cudaHostRegister", rc)
}

func (cudaRuntime) HostUnregister(b []byte) error {
	if len(b) == 0 {
		return ErrInvalidValue
	}
	return cudaCheck("cudaHostUnregister", C.cudaHostUnregister(unsafe.Pointer(&b[0])))
}

func (cudaRuntime) MemGetInfo() (free, total int64, err error) {
	var f, t C.size_t
	if err := cudaCheck("cudaMemGetInfo", C.cudaMemGetInfo(&f, &t)); err != nil {
		return 0, 0, err
	}
	return int64(f), int64(t), nil
}
