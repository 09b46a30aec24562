/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package metrics exposes Prometheus collectors for identity map and storage traffic.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Storage operation label values
const (
	OpGet   = "get"
	OpQuery = "query"
	OpSave  = "save"
)

// Collector groups the adapter's Prometheus metrics. A nil *Collector is
// valid and records nothing.
type Collector struct {
	CacheHits      *prometheus.CounterVec
	CacheMisses    *prometheus.CounterVec
	Registrations  *prometheus.CounterVec
	Clears         prometheus.Counter
	StorageCalls   *prometheus.CounterVec
	StorageErrors  *prometheus.CounterVec
	SaveBatchSizes *prometheus.HistogramVec
}

// NewCollector creates the collectors under namespace and registers them on reg.
// A nil reg skips registration.
func NewCollector(namespace string, reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "objectmap",
			Name:      "hits_total",
			Help:      "Key lookups answered from the identity map.",
		}, []string{"type"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "objectmap",
			Name:      "misses_total",
			Help:      "Key lookups that fell through to storage.",
		}, []string{"type"}),
		Registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "objectmap",
			Name:      "registrations_total",
			Help:      "Instances registered in the identity map.",
		}, []string{"type"}),
		Clears: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "objectmap",
			Name:      "clears_total",
			Help:      "Identity map clears caused by session reloads.",
		}),
		StorageCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "calls_total",
			Help:      "Calls made to the storage backend.",
		}, []string{"operation"}),
		StorageErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "errors_total",
			Help:      "Storage calls that returned an error.",
		}, []string{"operation"}),
		SaveBatchSizes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "save_batch_objects",
			Help:      "Objects per save batch by change kind.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}, []string{"kind"}),
	}

	if reg != nil {
		for _, col := range []prometheus.Collector{
			c.CacheHits, c.CacheMisses, c.Registrations, c.Clears,
			c.StorageCalls, c.StorageErrors, c.SaveBatchSizes,
		} {
			if err := reg.Register(col); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

// Hit counts an identity map lookup answered from the cache.
func (c *Collector) Hit(typeName string) {
	if c != nil {
		c.CacheHits.WithLabelValues(typeName).Inc()
	}
}

// Miss counts a lookup that had to ask storage.
func (c *Collector) Miss(typeName string) {
	if c != nil {
		c.CacheMisses.WithLabelValues(typeName).Inc()
	}
}

// Registered counts an object entering the identity map.
func (c *Collector) Registered(typeName string) {
	if c != nil {
		c.Registrations.WithLabelValues(typeName).Inc()
	}
}

// Cleared counts a full reset of the identity map.
func (c *Collector) Cleared() {
	if c != nil {
		c.Clears.Inc()
	}
}

// StorageCall counts one call of operation and its failure, if any.
func (c *Collector) StorageCall(operation string, err error) {
	if c == nil {
		return
	}
	c.StorageCalls.WithLabelValues(operation).Inc()
	if err != nil {
		c.StorageErrors.WithLabelValues(operation).Inc()
	}
}

// SaveBatch observes the sizes of one save batch.
func (c *Collector) SaveBatch(inserts, updates, deletes int) {
	if c == nil {
		return
	}
	c.SaveBatchSizes.WithLabelValues("insert").Observe(float64(inserts))
	c.SaveBatchSizes.WithLabelValues("update").Observe(float64(updates))
	c.SaveBatchSizes.WithLabelValues("delete").Observe(float64(deletes))
}
