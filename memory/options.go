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
	"os"
	"time"

	"github.com/pinnedmem/pinnedmem/memory/device"
	"go.uber.org/zap"
)

const (
	// DefaultSegmentName is the well-known name of the shared segment.
	DefaultSegmentName = "shm"
	// DefaultRetryInterval is how long a joiner sleeps between attempts to
	// open the shared segment.
	DefaultRetryInterval = 100 * time.Millisecond
)

// Use the environment variables PINNEDMEM_SHM_NAME and PINNEDMEM_SHM_RETRY_INTERVAL
// to change the segment name and joiner polling interval of resources that do
// not set them with options.
var (
	segmentName   = DefaultSegmentName
	retryInterval = DefaultRetryInterval
)

func init() {
	if val, ok := os.LookupEnv("PINNEDMEM_SHM_NAME"); ok && val != "" {
		segmentName = val
	}

	if val, ok := os.LookupEnv("PINNEDMEM_SHM_RETRY_INTERVAL"); ok {
		if d, err := time.ParseDuration(val); err == nil && d > 0 {
			retryInterval = d
		}
	}
}

type config struct {
	runtime       device.Runtime
	logger        *zap.Logger
	segmentName   string
	retryInterval time.Duration
	waitTimeout   time.Duration
}

// Option configures a resource.
type Option func(*config)

// WithRuntime sets the device runtime. The default is device.Default().
func WithRuntime(rt device.Runtime) Option {
	return func(cfg *config) {
		cfg.runtime = rt
	}
}

// WithLogger sets the logger of a resource.
func WithLogger(l *zap.Logger) Option {
	return func(cfg *config) {
		cfg.logger = l
	}
}

// WithSegmentName sets the name of the shared segment. Cooperating processes
// must agree on it; see shm.SessionName for deriving one from a job id.
func WithSegmentName(name string) Option {
	return func(cfg *config) {
		cfg.segmentName = name
	}
}

// WithRetryInterval sets how long a joiner sleeps between attempts to open
// the shared segment.
func WithRetryInterval(d time.Duration) Option {
	return func(cfg *config) {
		cfg.retryInterval = d
	}
}

// WithWaitTimeout bounds how long Allocate waits for the creator to publish
// the shared segment. Zero, the default, waits forever.
func WithWaitTimeout(d time.Duration) Option {
	return func(cfg *config) {
		cfg.waitTimeout = d
	}
}

func newConfig(opts []Option) config {
	cfg := config{
		segmentName:   segmentName,
		retryInterval: retryInterval,
	}
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.runtime == nil {
		cfg.runtime = device.Default()
	}
	if cfg.retryInterval <= 0 {
		cfg.retryInterval = DefaultRetryInterval
	}
	return cfg
}

func (cfg *config) log() *zap.Logger {
	if cfg.logger != nil {
		return cfg.logger
	}
	return logger
}

func (cfg *config) memoryInfo() (free, total int64, err error) {
	free, total, err = cfg.runtime.MemGetInfo()
	if err != nil {
		return 0, 0, memoryInfoError(err)
	}
	return free, total, nil
}
