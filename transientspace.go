/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package transientspace

import (
	"context"
	"fmt"
	"reflect"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/suparena/transientspace/adapter"
	"github.com/suparena/transientspace/config"
	"github.com/suparena/transientspace/datastore"
	"github.com/suparena/transientspace/datastore/ddb"
	"github.com/suparena/transientspace/datastore/mock"
	"github.com/suparena/transientspace/logging"
	"github.com/suparena/transientspace/metrics"
	"github.com/suparena/transientspace/objectmap"
	"github.com/suparena/transientspace/objectspace"
	"github.com/suparena/transientspace/storagemodels"
)

// Session is an object space whose managed types are served by a
// TransientAdapter.
type Session struct {
	*objectspace.Space
	Adapter *adapter.TransientAdapter
}

type options struct {
	logger  *zap.Logger
	metrics *metrics.Collector
}

// Option configures Open and NewStorage.
type Option func(*options)

// WithLogger sets the logger passed to every component.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = logging.OrNop(l)
	}
}

// WithMetrics records adapter traffic on c.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) {
		o.metrics = c
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Open creates a session whose types are served from storage. Each session
// gets its own identity map.
func Open(storage datastore.Storage, types []reflect.Type, opts ...Option) *Session {
	o := buildOptions(opts)
	space := objectspace.New(objectspace.WithLogger(o.logger))
	a := adapter.New(space, objectmap.New(types...), storage,
		adapter.WithLogger(o.logger.With(zap.Stringer("session", space.ID()))),
		adapter.WithMetrics(o.metrics),
	)
	return &Session{Space: space, Adapter: a}
}

// NewStorage creates the backend selected by cfg.
func NewStorage(ctx context.Context, cfg *config.Config, opts ...Option) (datastore.Storage, error) {
	o := buildOptions(opts)
	sc := cfg.Storage

	switch sc.Backend {
	case config.BackendMemory, "":
		return mock.New(), nil
	case config.BackendDynamoDB:
		store, err := ddb.Open(ctx, ddb.ClientConfig{
			Region:    sc.DynamoDB.Region,
			AccessKey: sc.DynamoDB.AccessKey,
			SecretKey: sc.DynamoDB.SecretKey,
			Endpoint:  sc.DynamoDB.Endpoint,
		}, sc.DynamoDB.Table,
			ddb.WithLogger(o.logger),
			ddb.WithStreamOptions(
				storagemodels.WithPageSize(sc.PageSize),
				storagemodels.WithMaxRetries(sc.MaxRetries),
				storagemodels.WithRetryBackoff(sc.RetryBackoff),
			),
		)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", sc.Backend)
	}
}

// NewMetrics creates the collectors configured by cfg on reg, or returns nil
// when metrics are disabled.
func NewMetrics(cfg *config.Config, reg prometheus.Registerer) (*metrics.Collector, error) {
	if !cfg.Metrics.Enabled {
		return nil, nil
	}
	return metrics.NewCollector(cfg.Metrics.Namespace, reg)
}
