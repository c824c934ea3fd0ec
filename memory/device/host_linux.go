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

package device

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"
)

type region struct {
	size  int
	owned bool
	flags RegisterFlags
}

// HostOption configures a HostRuntime.
type HostOption func(*HostRuntime)

// WithPageLocking controls whether pinned ranges are really locked with
// mlock(2). Disabling it keeps the registration bookkeeping intact, which is
// useful on hosts whose RLIMIT_MEMLOCK is too small for the workload.
func WithPageLocking(enabled bool) HostOption {
	return func(h *HostRuntime) {
		h.lock = enabled
	}
}

// HostRuntime implements Runtime on top of mmap(2) and mlock(2). It is safe
// for concurrent use.
type HostRuntime struct {
	lock bool

	mu      sync.Mutex
	regions map[uintptr]region
}

// NewHostRuntime returns a HostRuntime with page locking enabled.
func NewHostRuntime(opts ...HostOption) *HostRuntime {
	h := &HostRuntime{lock: true, regions: make(map[uintptr]region)}
	for _, o := range opts {
		o(h)
	}
	return h
}

func addressOf(b []byte) uintptr {
	return uintptr(unsafe.Pointer(&b[0]))
}

func (h *HostRuntime) MallocHost(size int) ([]byte, error) {
	if size <= 0 {
		return nil, xerrors.Errorf("device: malloc host of %d bytes: %w", size, ErrInvalidValue)
	}

	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, xerrors.Errorf("device: mmap %d bytes: %w", size, err)
	}
	if err := h.mlock(b); err != nil {
		unix.Munmap(b)
		return nil, xerrors.Errorf("device: mlock %d bytes: %w", size, err)
	}

	h.mu.Lock()
	h.regions[addressOf(b)] = region{size: size, owned: true}
	h.mu.Unlock()
	return b, nil
}

func (h *HostRuntime) FreeHost(b []byte) error {
	if len(b) == 0 {
		return xerrors.Errorf("device: free host: %w", ErrInvalidValue)
	}

	addr := addressOf(b)
	h.mu.Lock()
	r, ok := h.regions[addr]
	if !ok || !r.owned {
		h.mu.Unlock()
		return xerrors.Errorf("device: free host %#x: %w", addr, ErrNotRegistered)
	}
	delete(h.regions, addr)
	h.mu.Unlock()

	if err := h.munlock(b); err != nil {
		return xerrors.Errorf("device: munlock %#x: %w", addr, err)
	}
	if err := unix.Munmap(b); err != nil {
		return xerrors.Errorf("device: munmap %#x: %w", addr, err)
	}
	return nil
}

func (h *HostRuntime) HostRegister(b []byte, flags RegisterFlags) error {
	if len(b) == 0 {
		return xerrors.Errorf("device: host register: %w", ErrInvalidValue)
	}

	addr := addressOf(b)
	end := addr + uintptr(len(b))

	h.mu.Lock()
	defer h.mu.Unlock()
	for base, r := range h.regions {
		if addr < base+uintptr(r.size) && base < end {
			return xerrors.Errorf("device: host register [%#x, %#x): %w", addr, end, ErrAlreadyRegistered)
		}
	}
	if err := h.mlock(b); err != nil {
		return xerrors.Errorf("device: mlock %d bytes at %#x: %w", len(b), addr, err)
	}
	h.regions[addr] = region{size: len(b), flags: flags}
	return nil
}

func (h *HostRuntime) HostUnregister(b []byte) error {
	if len(b) == 0 {
		return xerrors.Errorf("device: host unregister: %w", ErrInvalidValue)
	}

	addr := addressOf(b)
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.regions[addr]
	if !ok || r.owned {
		return xerrors.Errorf("device: host unregister %#x: %w", addr, ErrNotRegistered)
	}
	if err := h.munlock(b); err != nil {
		return xerrors.Errorf("device: munlock %#x: %w", addr, err)
	}
	delete(h.regions, addr)
	return nil
}

// MemGetInfo reports free and total physical memory of the host, which is
// what the device can page-lock.
func (h *HostRuntime) MemGetInfo() (free, total int64, err error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, 0, xerrors.Errorf("device: sysinfo: %w", err)
	}

	unit := int64(info.Unit)
	if unit == 0 {
		unit = 1
	}
	return int64(info.Freeram) * unit, int64(info.Totalram) * unit, nil
}

// Pinned returns the number of live page-locked ranges, both allocated and
// registered.
func (h *HostRuntime) Pinned() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.regions)
}

// IsPinned reports whether b starts a live page-locked range.
func (h *HostRuntime) IsPinned(b []byte) bool {
	if len(b) == 0 {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.regions[addressOf(b)]
	return ok
}

func (h *HostRuntime) mlock(b []byte) error {
	if !h.lock {
		return nil
	}
	return unix.Mlock(b)
}

func (h *HostRuntime) munlock(b []byte) error {
	if !h.lock {
		return nil
	}
	return unix.Munlock(b)
}

var _ Runtime = (*HostRuntime)(nil)
