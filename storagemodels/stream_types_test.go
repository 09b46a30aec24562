/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"testing"
	"time"
)

func TestNewStreamOptions(t *testing.T) {
	o := NewStreamOptions()
	if o.PageSize != 100 || o.MaxRetries != 3 || o.RetryBackoff != time.Second || o.BufferSize != 100 {
		t.Errorf("unexpected defaults: %+v", o)
	}

	o = NewStreamOptions(WithPageSize(0), WithMaxRetries(-1), WithBufferSize(-5), nil, WithRetryBackoff(10*time.Millisecond))
	if o.PageSize != 100 {
		t.Errorf("Expected page size to fall back to 100, got %d", o.PageSize)
	}
	if o.MaxRetries != 0 || o.BufferSize != 0 {
		t.Errorf("Expected negative values clamped to 0, got %+v", o)
	}
	if o.Backoff(0) != 10*time.Millisecond || o.Backoff(2) != 30*time.Millisecond {
		t.Errorf("Expected linear backoff, got %v and %v", o.Backoff(0), o.Backoff(2))
	}
}

func TestStreamProgressRate(t *testing.T) {
	p := StreamProgress{ItemsProcessed: 10, StartTime: time.Now().Add(-2 * time.Second)}
	if r := p.Rate(); r <= 0 || r > 5.1 {
		t.Errorf("Expected about 5 items per second, got %f", r)
	}
	if (StreamProgress{StartTime: time.Now().Add(time.Hour)}).Rate() != 0 {
		t.Error("Expected zero rate for a start time in the future")
	}
}
