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
	"context"
	"errors"
	"sync"

	"github.com/pinnedmem/pinnedmem/internal/debug"
	"github.com/pinnedmem/pinnedmem/memory/device"
	"github.com/pinnedmem/pinnedmem/memory/shm"
	"go.uber.org/zap"
)

// SharedPinnedResource backs allocations with a named shared-memory segment
// that is mapped and pinned by every process of a cooperating group on the
// same host.
//
// The process with local rank 0 is the creator: it creates the segment, sizes
// it and, when it deallocates, removes the name. Every other rank is a joiner:
// Allocate waits until the creator has published the segment and then maps
// it. Exactly one process per segment name must use rank 0, and the creator
// must deallocate last if late joiners are expected.
//
// A segment name backs a single live allocation. The creator refuses a second
// Allocate until the first one is deallocated, since re-creating the segment
// would resize it under the existing mapping. Use distinct names for
// concurrent allocations.
type SharedPinnedResource struct {
	rank int
	cfg  config

	mu   sync.Mutex
	live bool
}

// NewSharedPinnedResource returns a shared pinned resource for the process
// with the given local rank.
func NewSharedPinnedResource(localRank int, opts ...Option) *SharedPinnedResource {
	return &SharedPinnedResource{rank: localRank, cfg: newConfig(opts)}
}

// Rank returns the local rank the resource was created with.
func (r *SharedPinnedResource) Rank() int { return r.rank }

// IsCreator reports whether this process owns the segment lifecycle.
func (r *SharedPinnedResource) IsCreator() bool { return r.rank == 0 }

// SegmentName returns the name of the shared segment.
func (r *SharedPinnedResource) SegmentName() string { return r.cfg.segmentName }

// Allocate maps and pins size bytes of the shared segment. Joiners block
// until the creator has published the segment, for at most the configured
// wait timeout. The stream is ignored.
func (r *SharedPinnedResource) Allocate(size int, stream Stream) ([]byte, error) {
	ctx := context.Background()
	if r.cfg.waitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.waitTimeout)
		defer cancel()
	}
	return r.AllocateContext(ctx, size, stream)
}

// AllocateContext is Allocate with a caller supplied context bounding the
// wait for the segment. The creator never waits.
func (r *SharedPinnedResource) AllocateContext(ctx context.Context, size int, _ Stream) ([]byte, error) {
	checkSize(size)
	if size == 0 {
		return nil, nil
	}

	var (
		seg *shm.Segment
		err error
	)
	if r.IsCreator() {
		if err := r.acquire(size); err != nil {
			return nil, err
		}
		seg, err = r.create(size)
	} else {
		seg, err = r.join(ctx, size)
	}
	if err != nil {
		return nil, err
	}

	b, err := mapSegment(seg, size)
	r.closeSegment(seg)
	if err != nil {
		r.abandon()
		return nil, r.allocError("map shared segment", size, err)
	}

	if err := r.cfg.runtime.HostRegister(b, device.RegisterPortable); err != nil {
		if uerr := shm.Unmap(b); uerr != nil {
			fatal(r.log(), "unmap shared segment after failed pin", uerr)
		}
		r.abandon()
		return nil, r.allocError("pin shared segment", size, err)
	}

	debug.Log("shared segment mapped and pinned", zap.String("segment", r.cfg.segmentName), zap.Int("size", size))
	return b, nil
}

func (r *SharedPinnedResource) create(size int) (*shm.Segment, error) {
	seg, err := shm.Create(r.cfg.segmentName, int64(size))
	if err != nil {
		r.abandon()
		return nil, r.allocError("create shared segment", size, err)
	}
	r.log().Debug("created shared segment", zap.Int("size", size))
	return seg, nil
}

// join polls for the segment until it exists with a nonzero size. A missing
// segment, or one the creator has not sized yet, is retried; any other open
// failure is fatal.
func (r *SharedPinnedResource) join(ctx context.Context, size int) (*shm.Segment, error) {
	var timer *timerLoop
	for attempt := 1; ; attempt++ {
		seg, err := shm.Open(r.cfg.segmentName)
		switch {
		case err == nil:
			sz, serr := seg.Size()
			if serr != nil {
				r.closeSegment(seg)
				return nil, r.allocError("stat shared segment", size, serr)
			}
			if sz >= int64(size) {
				r.log().Debug("joined shared segment", zap.Int("attempts", attempt), zap.Int64("segment_size", sz))
				return seg, nil
			}
			r.closeSegment(seg)
			if sz > 0 {
				return nil, r.allocError("join shared segment", size, ErrSegmentTooSmall)
			}
		case errors.Is(err, shm.ErrNotExist):
		default:
			fatal(r.log(), "open shared segment", err)
		}

		if timer == nil {
			r.log().Info("waiting for creator to publish shared segment", zap.Duration("interval", r.cfg.retryInterval))
			timer = newTimerLoop(r.cfg.retryInterval)
			defer timer.stop()
		}
		if err := timer.wait(ctx); err != nil {
			return nil, r.allocError("wait for shared segment", size, err)
		}
	}
}

var mapSegment = (*shm.Segment).Map

func (r *SharedPinnedResource) closeSegment(seg *shm.Segment) {
	if err := seg.Close(); err != nil {
		r.log().Warn("closing shared segment descriptor", zap.Error(err))
	}
}

// acquire marks the creator's segment as in use.
func (r *SharedPinnedResource) acquire(size int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.live {
		return r.allocError("create shared segment", size, ErrSegmentInUse)
	}
	r.live = true
	return nil
}

func (r *SharedPinnedResource) release() {
	r.mu.Lock()
	r.live = false
	r.mu.Unlock()
}

// abandon removes the name after a failed creator allocation so that no
// joiner attaches to a segment nobody owns.
func (r *SharedPinnedResource) abandon() {
	if r.IsCreator() {
		r.unlink()
		r.release()
	}
}

func (r *SharedPinnedResource) unlink() {
	if err := shm.Unlink(r.cfg.segmentName); err != nil && !errors.Is(err, shm.ErrNotExist) {
		r.log().Error("removing shared segment name", zap.Error(err))
	}
}

// Deallocate unpins and unmaps b. The creator also removes the segment name;
// mappings held by joiners stay valid. The stream is ignored.
func (r *SharedPinnedResource) Deallocate(b []byte, _ Stream) {
	if len(b) == 0 {
		return
	}

	if err := r.cfg.runtime.HostUnregister(b); err != nil {
		fatal(r.log(), "unpin shared segment", err)
	}
	if err := shm.Unmap(b); err != nil {
		fatal(r.log(), "unmap shared segment", err)
	}
	if r.IsCreator() {
		r.unlink()
		r.release()
		r.log().Debug("removed shared segment")
	}
}

func (r *SharedPinnedResource) SupportsStreams() bool { return false }

func (r *SharedPinnedResource) SupportsMemoryInfo() bool { return true }

func (r *SharedPinnedResource) MemoryInfo(_ Stream) (free, total int64, err error) {
	return r.cfg.memoryInfo()
}

// IsEqual reports whether other is a SharedPinnedResource, whatever its rank.
func (r *SharedPinnedResource) IsEqual(other Resource) bool {
	_, ok := other.(*SharedPinnedResource)
	return ok
}

func (r *SharedPinnedResource) log() *zap.Logger {
	return r.cfg.log().With(zap.String("segment", r.cfg.segmentName), zap.Int("rank", r.rank))
}

func (r *SharedPinnedResource) allocError(op string, size int, err error) error {
	r.log().Warn("shared allocation failed", zap.String("op", op), zap.Int("size", size), zap.Error(err))
	return &AllocationError{Op: op, Size: size, Err: err}
}

var (
	_ Resource         = (*SharedPinnedResource)(nil)
	_ ContextAllocator = (*SharedPinnedResource)(nil)
)
