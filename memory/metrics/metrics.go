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

// Package metrics instruments a memory.Resource with prometheus metrics.
package metrics

import (
	"context"
	"errors"

	"github.com/pinnedmem/pinnedmem/memory"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultNamespace prefixes every metric unless WithNamespace says otherwise.
const DefaultNamespace = "pinnedmem"

type options struct {
	namespace string
	labels    prometheus.Labels
}

// Option is an option for an instrumented Resource.
type Option func(*options)

// WithNamespace sets the metric namespace.
func WithNamespace(ns string) Option {
	return func(o *options) {
		o.namespace = ns
	}
}

// WithConstLabels adds constant labels to every metric.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(o *options) {
		for k, v := range labels {
			o.labels[k] = v
		}
	}
}

// Resource forwards to a wrapped memory.Resource and counts what goes
// through it. It is also a prometheus.Collector.
type Resource struct {
	mem memory.Resource

	allocations   prometheus.Counter
	deallocations prometheus.Counter
	failures      prometheus.Counter
	allocated     prometheus.Counter
	inUse         prometheus.Gauge
}

// NewResource instruments mem. The name becomes the "resource" label.
func NewResource(mem memory.Resource, name string, opts ...Option) *Resource {
	o := options{namespace: DefaultNamespace, labels: prometheus.Labels{}}
	for _, opt := range opts {
		opt(&o)
	}
	o.labels["resource"] = name

	counter := func(metric, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   o.namespace,
			Subsystem:   "resource",
			Name:        metric,
			Help:        help,
			ConstLabels: o.labels,
		})
	}

	return &Resource{
		mem:           mem,
		allocations:   counter("allocations_total", "Number of successful non-empty allocations."),
		deallocations: counter("deallocations_total", "Number of non-empty deallocations."),
		failures:      counter("allocation_failures_total", "Number of allocations that returned an out of memory error."),
		allocated:     counter("allocated_bytes_total", "Bytes handed out by successful allocations."),
		inUse: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   o.namespace,
			Subsystem:   "resource",
			Name:        "in_use_bytes",
			Help:        "Bytes currently allocated and not yet released.",
			ConstLabels: o.labels,
		}),
	}
}

func (r *Resource) Allocate(size int, stream memory.Stream) ([]byte, error) {
	b, err := r.mem.Allocate(size, stream)
	r.record(b, err)
	return b, err
}

// AllocateContext forwards ctx when the wrapped resource can wait.
func (r *Resource) AllocateContext(ctx context.Context, size int, stream memory.Stream) ([]byte, error) {
	b, err := memory.AllocateContext(ctx, r.mem, size, stream)
	r.record(b, err)
	return b, err
}

func (r *Resource) record(b []byte, err error) {
	switch {
	case err != nil:
		if errors.Is(err, memory.ErrOutOfMemory) {
			r.failures.Inc()
		}
	case len(b) > 0:
		r.allocations.Inc()
		r.allocated.Add(float64(len(b)))
		r.inUse.Add(float64(len(b)))
	}
}

func (r *Resource) Deallocate(b []byte, stream memory.Stream) {
	r.mem.Deallocate(b, stream)
	if len(b) > 0 {
		r.deallocations.Inc()
		r.inUse.Sub(float64(len(b)))
	}
}

func (r *Resource) SupportsStreams() bool { return r.mem.SupportsStreams() }

func (r *Resource) SupportsMemoryInfo() bool { return r.mem.SupportsMemoryInfo() }

func (r *Resource) MemoryInfo(stream memory.Stream) (int64, int64, error) {
	return r.mem.MemoryInfo(stream)
}

// IsEqual compares the wrapped resources.
func (r *Resource) IsEqual(other memory.Resource) bool {
	if o, ok := other.(*Resource); ok {
		return r.mem.IsEqual(o.mem)
	}
	return r.mem.IsEqual(other)
}

// Unwrap returns the instrumented resource.
func (r *Resource) Unwrap() memory.Resource { return r.mem }

func (r *Resource) collectors() []prometheus.Collector {
	return []prometheus.Collector{r.allocations, r.deallocations, r.failures, r.allocated, r.inUse}
}

// Describe implements the prometheus.Collector interface.
func (r *Resource) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range r.collectors() {
		c.Describe(ch)
	}
}

// Collect implements the prometheus.Collector interface.
func (r *Resource) Collect(ch chan<- prometheus.Metric) {
	for _, c := range r.collectors() {
		c.Collect(ch)
	}
}

var (
	_ memory.Resource         = (*Resource)(nil)
	_ memory.ContextAllocator = (*Resource)(nil)
	_ prometheus.Collector = (*Resource)(nil)
)
