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

package memory

import (
	"testing"
	"time"

	"github.com/pinnedmem/pinnedmem/memory/device"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := newConfig(nil)
	assert.Equal(t, segmentName, cfg.segmentName)
	assert.Equal(t, retryInterval, cfg.retryInterval)
	assert.Zero(t, cfg.waitTimeout)
	assert.True(t, cfg.runtime == device.Default())
	assert.Same(t, logger, cfg.log())
}

func TestNewConfigOptions(t *testing.T) {
	l := zap.NewExample()
	cfg := newConfig([]Option{
		WithSegmentName("job-1"),
		WithRetryInterval(time.Second),
		WithWaitTimeout(time.Minute),
		WithLogger(l),
	})
	assert.Equal(t, "job-1", cfg.segmentName)
	assert.Equal(t, time.Second, cfg.retryInterval)
	assert.Equal(t, time.Minute, cfg.waitTimeout)
	assert.Same(t, l, cfg.log())
}

func TestNewConfigInvalidRetryInterval(t *testing.T) {
	cfg := newConfig([]Option{WithRetryInterval(-time.Second)})
	assert.Equal(t, DefaultRetryInterval, cfg.retryInterval)
}

func TestUseLogger(t *testing.T) {
	prev := logger
	defer UseLogger(prev)

	l := zap.NewExample()
	UseLogger(l)
	cfg := newConfig(nil)
	assert.Same(t, l, cfg.log())
}
