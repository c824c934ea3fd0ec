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

package shm_test

import (
	"strings"
	"testing"

	"github.com/pinnedmem/pinnedmem/memory/shm"
	"github.com/stretchr/testify/assert"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"shm", true},
		{"/shm", true},
		{"pinnedmem-job-42", true},
		{"", false},
		{"/", false},
		{".", false},
		{"..", false},
		{"a/b", false},
		{"/a/b", false},
		{"nul\x00byte", false},
		{strings.Repeat("x", 255), true},
		{strings.Repeat("x", 256), false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := shm.ValidateName(test.name)
			if test.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, shm.ErrInvalidName)
			}
		})
	}
}

func TestSessionName(t *testing.T) {
	assert.Equal(t, "pinnedmem-job42", shm.SessionName("job42"))
	name := shm.SessionName("a/b")
	assert.Equal(t, "pinnedmem-a_b", name)
	assert.NoError(t, shm.ValidateName(name))
}
