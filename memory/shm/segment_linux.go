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

package shm

import (
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
	"golang.org/x/xerrors"
)

const shmDir = "/dev/shm"

// Path returns the file backing the named segment.
func Path(name string) string {
	return filepath.Join(shmDir, strings.TrimPrefix(name, "/"))
}

// Create opens the named segment, creating it when needed, and resizes it to
// exactly size bytes.
func Create(name string, size int64) (*Segment, error) {
	if err := ValidateName(name); err != nil {
		return nil, xerrors.Errorf("shm: create %q: %w", name, err)
	}

	fd, err := unix.Open(Path(name), unix.O_RDWR|unix.O_CREAT|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0666)
	if err != nil {
		return nil, xerrors.Errorf("shm: create %q: %w", name, err)
	}
	if err := unix.Ftruncate(fd, size); err != nil {
		unix.Close(fd)
		return nil, xerrors.Errorf("shm: truncate %q to %d bytes: %w", name, size, err)
	}
	return &Segment{name: name, fd: fd}, nil
}

// Open opens an existing segment read/write. If the segment does not exist
// the returned error matches ErrNotExist.
func Open(name string) (*Segment, error) {
	if err := ValidateName(name); err != nil {
		return nil, xerrors.Errorf("shm: open %q: %w", name, err)
	}

	fd, err := unix.Open(Path(name), unix.O_RDWR|unix.O_NOFOLLOW|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, xerrors.Errorf("shm: open %q: %w", name, err)
	}
	return &Segment{name: name, fd: fd}, nil
}

// Size returns the current size of the segment.
func (s *Segment) Size() (int64, error) {
	var st unix.Stat_t
	if err := unix.Fstat(s.fd, &st); err != nil {
		return 0, xerrors.Errorf("shm: stat %q: %w", s.name, err)
	}
	return st.Size, nil
}

// Map maps the first size bytes of the segment read/write and shared with
// every other process mapping it.
func (s *Segment) Map(size int) ([]byte, error) {
	b, err := unix.Mmap(s.fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, xerrors.Errorf("shm: map %d bytes of %q: %w", size, s.name, err)
	}
	return b, nil
}

// Close releases the descriptor. Existing mappings stay valid.
func (s *Segment) Close() error {
	if s.fd < 0 {
		return nil
	}
	err := unix.Close(s.fd)
	s.fd = -1
	if err != nil {
		return xerrors.Errorf("shm: close %q: %w", s.name, err)
	}
	return nil
}

// Unmap removes a mapping returned by Map.
func Unmap(b []byte) error {
	if err := unix.Munmap(b); err != nil {
		return xerrors.Errorf("shm: unmap: %w", err)
	}
	return nil
}

// Unlink removes the name. The backing storage is reclaimed once every
// mapping is gone.
func Unlink(name string) error {
	if err := ValidateName(name); err != nil {
		return xerrors.Errorf("shm: unlink %q: %w", name, err)
	}
	if err := unix.Unlink(Path(name)); err != nil {
		return xerrors.Errorf("shm: unlink %q: %w", name, err)
	}
	return nil
}

// Exists reports whether a segment with the name is currently published.
func Exists(name string) bool {
	if ValidateName(name) != nil {
		return false
	}
	return unix.Access(Path(name), unix.F_OK) == nil
}
