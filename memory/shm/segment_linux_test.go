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

package shm_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/pinnedmem/pinnedmem/memory/shm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func segmentName(t *testing.T) string {
	name := shm.SessionName(uuid.NewString())
	t.Cleanup(func() { shm.Unlink(name) })
	return name
}

func TestCreateOpenMap(t *testing.T) {
	name := segmentName(t)

	seg, err := shm.Create(name, 4096)
	require.NoError(t, err)
	assert.Equal(t, name, seg.Name())
	assert.True(t, shm.Exists(name))

	sz, err := seg.Size()
	require.NoError(t, err)
	assert.EqualValues(t, 4096, sz)

	a, err := seg.Map(4096)
	require.NoError(t, err)
	require.NoError(t, seg.Close())
	// double close is harmless
	require.NoError(t, seg.Close())

	other, err := shm.Open(name)
	require.NoError(t, err)
	b, err := other.Map(4096)
	require.NoError(t, err)
	require.NoError(t, other.Close())

	a[0], a[4095] = 0xab, 0xcd
	assert.Equal(t, byte(0xab), b[0])
	assert.Equal(t, byte(0xcd), b[4095])
	b[17] = 0x42
	assert.Equal(t, byte(0x42), a[17])

	require.NoError(t, shm.Unmap(b))
	require.NoError(t, shm.Unmap(a))
	require.NoError(t, shm.Unlink(name))
	assert.False(t, shm.Exists(name))
}

func TestOpenMissing(t *testing.T) {
	name := segmentName(t)
	_, err := shm.Open(name)
	assert.ErrorIs(t, err, shm.ErrNotExist)
}

func TestCreateResizesExisting(t *testing.T) {
	name := segmentName(t)

	seg, err := shm.Create(name, 8192)
	require.NoError(t, err)
	require.NoError(t, seg.Close())

	seg, err = shm.Create(name, 4096)
	require.NoError(t, err)
	defer seg.Close()

	sz, err := seg.Size()
	require.NoError(t, err)
	assert.EqualValues(t, 4096, sz)
}

func TestUnlinkMissing(t *testing.T) {
	assert.ErrorIs(t, shm.Unlink(segmentName(t)), shm.ErrNotExist)
}

func TestInvalidNames(t *testing.T) {
	_, err := shm.Create("a/b", 1)
	assert.ErrorIs(t, err, shm.ErrInvalidName)
	_, err = shm.Open("")
	assert.ErrorIs(t, err, shm.ErrInvalidName)
	assert.ErrorIs(t, shm.Unlink(".."), shm.ErrInvalidName)
	assert.False(t, shm.Exists("a/b"))
}

func TestMappingOutlivesUnlink(t *testing.T) {
	name := segmentName(t)

	seg, err := shm.Create(name, 4096)
	require.NoError(t, err)
	b, err := seg.Map(4096)
	require.NoError(t, err)
	require.NoError(t, seg.Close())

	require.NoError(t, shm.Unlink(name))
	b[10] = 7
	assert.Equal(t, byte(7), b[10])
	require.NoError(t, shm.Unmap(b))
}
