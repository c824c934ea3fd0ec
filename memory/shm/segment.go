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

// Package shm manages named POSIX shared-memory segments: creation with a
// fixed size, opening by name, mapping into the address space, and removal
// of the name.
package shm

import (
	"errors"
	"os"
	"strings"
)

const maxNameLen = 255

var (
	// ErrNotExist is matched by errors returned from Open when no segment
	// with the name has been created yet.
	ErrNotExist = os.ErrNotExist

	ErrInvalidName  = errors.New("shm: invalid segment name")
	ErrNotSupported = errors.New("shm: shared memory segments not supported on this platform")
)

// Segment is an open shared-memory object. The descriptor is only needed
// until the segment has been mapped; mappings outlive Close.
type Segment struct {
	name string
	fd   int
}

// Name returns the name the segment was created or opened with.
func (s *Segment) Name() string { return s.name }

// ValidateName checks that name can be used as a segment name: one path
// component, optionally with a leading slash.
func ValidateName(name string) error {
	n := strings.TrimPrefix(name, "/")
	switch {
	case n == "", n == ".", n == "..":
		return ErrInvalidName
	case len(n) > maxNameLen:
		return ErrInvalidName
	case strings.ContainsAny(n, "/\x00"):
		return ErrInvalidName
	}
	return nil
}

// SessionName derives a segment name from a job or session identifier so
// that unrelated process groups on the same host do not collide.
func SessionName(session string) string {
	return "pinnedmem-" + strings.NewReplacer("/", "_", "\x00", "_").Replace(session)
}
