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

// Command shm-rendezvous exercises the shared pinned resource. Each rank of a
// job runs it with its local rank: rank 0 creates and fills the segment, the
// others wait for it to appear and check what they see.
package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/google/uuid"
	"github.com/pinnedmem/pinnedmem/memory"
	"github.com/pinnedmem/pinnedmem/memory/device"
	"github.com/pinnedmem/pinnedmem/memory/metrics"
	"github.com/pinnedmem/pinnedmem/memory/shm"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const usage = `Shared pinned memory rendezvous.
Usage:
  shm-rendezvous -h | --help
  shm-rendezvous run --rank=<n> [--size=<bytes>] [--name=<segment>] [--interval=<dur>]
                 [--timeout=<dur>] [--hold=<dur>] [--verbose]
  shm-rendezvous simulate [--ranks=<n>] [--size=<bytes>] [--session=<id>] [--verbose]
  shm-rendezvous info
Options:
  -h --help          Show this screen.
  --rank=<n>         Local rank of this process; rank 0 creates the segment.
  --ranks=<n>        Number of ranks to simulate in one process [default: 4].
  --size=<bytes>     Bytes to allocate [default: 65536].
  --name=<segment>   Shared segment name [default: shm].
  --session=<id>     Session used to derive the segment name, random if empty.
  --interval=<dur>   Delay between attempts to open the segment [default: 100ms].
  --timeout=<dur>    Give up waiting for the segment after this long, 0 waits forever [default: 0s].
  --hold=<dur>       How long rank 0 keeps the segment before releasing it [default: 5s].
  --verbose          Log with the development logger.`

// pattern is what the creator writes and every joiner expects to read.
const pattern = 0xA5

func main() {
	opts, _ := docopt.ParseDoc(usage)

	verbose, _ := opts.Bool("--verbose")
	log := newLogger(verbose)
	defer log.Sync()
	memory.UseLogger(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch {
	case boolOpt(opts, "run"):
		err = run(ctx, opts, log)
	case boolOpt(opts, "simulate"):
		err = simulate(ctx, opts, log)
	case boolOpt(opts, "info"):
		err = info()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newLogger(verbose bool) *zap.Logger {
	var (
		l   *zap.Logger
		err error
	)
	if verbose {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func boolOpt(opts docopt.Opts, key string) bool {
	v, _ := opts.Bool(key)
	return v
}

func durationOpt(opts docopt.Opts, key string) (time.Duration, error) {
	s, err := opts.String(key)
	if err != nil {
		return 0, err
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func run(ctx context.Context, opts docopt.Opts, log *zap.Logger) error {
	rank, err := opts.Int("--rank")
	if err != nil {
		return err
	}
	size, err := opts.Int("--size")
	if err != nil {
		return err
	}
	name, _ := opts.String("--name")
	interval, err := durationOpt(opts, "--interval")
	if err != nil {
		return err
	}
	timeout, err := durationOpt(opts, "--timeout")
	if err != nil {
		return err
	}
	hold, err := durationOpt(opts, "--hold")
	if err != nil {
		return err
	}

	res := memory.NewSharedPinnedResource(rank,
		memory.WithSegmentName(name),
		memory.WithRetryInterval(interval),
		memory.WithWaitTimeout(timeout),
		memory.WithLogger(log))

	buf, err := memory.NewBufferContext(ctx, res, size, memory.DefaultStream)
	if err != nil {
		return err
	}
	defer buf.Release()

	if res.IsCreator() {
		memory.Set(buf.Bytes(), pattern)
		log.Info("segment published", zap.String("segment", name), zap.Int("size", size))
		select {
		case <-time.After(hold):
		case <-ctx.Done():
		}
		return nil
	}

	if !filled(buf.Bytes()) {
		log.Warn("segment attached before the creator filled it", zap.String("segment", name))
		return nil
	}
	log.Info("segment attached", zap.String("segment", name), zap.Int("rank", rank))
	return nil
}

func simulate(ctx context.Context, opts docopt.Opts, log *zap.Logger) error {
	ranks, err := opts.Int("--ranks")
	if err != nil {
		return err
	}
	if ranks < 1 {
		return fmt.Errorf("--ranks must be positive, got %d", ranks)
	}
	size, err := opts.Int("--size")
	if err != nil {
		return err
	}
	session, _ := opts.String("--session")
	if session == "" {
		session = uuid.NewString()
	}
	name := shm.SessionName(session)

	reg := prometheus.NewRegistry()
	published := make(chan struct{})
	attached := make(chan struct{}, ranks)

	g, ctx := errgroup.WithContext(ctx)
	for rank := 0; rank < ranks; rank++ {
		rank := rank
		res := memory.NewSharedPinnedResource(rank,
			memory.WithSegmentName(name),
			memory.WithLogger(log))
		mem := metrics.NewResource(res, fmt.Sprintf("rank-%d", rank))
		reg.MustRegister(mem)

		g.Go(func() error {
			buf, err := memory.NewBufferContext(ctx, mem, size, memory.DefaultStream)
			if err != nil {
				if res.IsCreator() {
					close(published)
				}
				return err
			}
			defer func() {
				memory.AssertBuffer(fmt.Sprintf("rank %d", rank), buf)
				buf.Release()
			}()

			if res.IsCreator() {
				memory.Set(buf.Bytes(), pattern)
				close(published)

				// keep the name alive until every joiner has mapped it
				for i := 1; i < ranks; i++ {
					select {
					case <-attached:
					case <-ctx.Done():
						return ctx.Err()
					}
				}
				return nil
			}
			attached <- struct{}{}

			select {
			case <-published:
			case <-ctx.Done():
				return ctx.Err()
			}
			if !filled(buf.Bytes()) {
				return fmt.Errorf("rank %d: shared bytes do not match", rank)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("simulation complete", zap.String("segment", name), zap.Int("ranks", ranks))
	return report(reg)
}

// staging holds the expected bytes while a mapping is checked.
var staging memory.Allocator = memory.NewResourceAllocator(memory.DefaultResource)

func filled(buf []byte) bool {
	exp := staging.Allocate(len(buf))
	defer staging.Free(exp)
	memory.Set(exp, pattern)
	return bytes.Equal(exp, buf)
}

// report prints every non-zero series gathered from reg.
func report(reg prometheus.Gatherer) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}

	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			var v float64
			switch {
			case m.GetCounter() != nil:
				v = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				v = m.GetGauge().GetValue()
			}
			if v == 0 {
				continue
			}
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			lines = append(lines, fmt.Sprintf("%s{%s} %g", mf.GetName(), strings.Join(labels, ","), v))
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		fmt.Println(l)
	}
	return nil
}

func info() error {
	free, total, err := device.Default().MemGetInfo()
	if err != nil {
		return err
	}
	fmt.Printf("free:  %d\ntotal: %d\n", free, total)
	return nil
}
