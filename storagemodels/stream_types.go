/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	defaultBufferSize   = 100
	defaultMaxRetries   = 3
	defaultRetryBackoff = time.Second
	defaultPageSize     = 100
)

// StreamResult is one decoded item of a paged read. Item is a pointer of the
// requested type, nil when Error is set.
type StreamResult struct {
	Item  any
	Raw   map[string]types.AttributeValue
	Error error
	Meta  StreamMeta
}

// StreamMeta locates a result within the read.
type StreamMeta struct {
	Index      int64 // 0-based position over all pages
	PageNumber int   // 1-based
	Timestamp  time.Time
}

// StreamProgress is reported after every page and once more at the end.
type StreamProgress struct {
	ItemsProcessed int64
	PagesProcessed int
	LastKey        map[string]types.AttributeValue
	Errors         []error
	StartTime      time.Time
}

// Rate returns processed items per second since StartTime.
func (p StreamProgress) Rate() float64 {
	elapsed := time.Since(p.StartTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(p.ItemsProcessed) / elapsed
}

// StreamOptions tunes paging, buffering and retries of backend reads.
//
// ErrorHandler sees page errors that survived the retries. Returning true
// swallows the error and ends the read quietly; false (or no handler)
// delivers the error as the final result.
type StreamOptions struct {
	BufferSize      int
	MaxRetries      int
	RetryBackoff    time.Duration
	PageSize        int32
	ProgressHandler func(StreamProgress)
	ErrorHandler    func(error) bool
}

// StreamOption mutates StreamOptions
type StreamOption func(*StreamOptions)

// DefaultStreamOptions returns a buffer and page size of 100 with three
// retries one second apart.
func DefaultStreamOptions() StreamOptions {
	return StreamOptions{
		BufferSize:   defaultBufferSize,
		MaxRetries:   defaultMaxRetries,
		RetryBackoff: defaultRetryBackoff,
		PageSize:     defaultPageSize,
	}
}

// NewStreamOptions applies opts over the defaults in order and clamps the
// result to usable values.
func NewStreamOptions(opts ...StreamOption) StreamOptions {
	o := DefaultStreamOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.BufferSize < 0 {
		o.BufferSize = 0
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBackoff < 0 {
		o.RetryBackoff = 0
	}
	if o.PageSize <= 0 {
		o.PageSize = defaultPageSize
	}
	return o
}

// Backoff returns the wait before retry number attempt (0-based). The wait
// grows linearly with the attempt.
func (o StreamOptions) Backoff(attempt int) time.Duration {
	return time.Duration(attempt+1) * o.RetryBackoff
}

func WithBufferSize(size int) StreamOption {
	return func(o *StreamOptions) { o.BufferSize = size }
}

func WithMaxRetries(retries int) StreamOption {
	return func(o *StreamOptions) { o.MaxRetries = retries }
}

func WithRetryBackoff(backoff time.Duration) StreamOption {
	return func(o *StreamOptions) { o.RetryBackoff = backoff }
}

// WithPageSize sets the Limit of each Scan or Query page.
func WithPageSize(size int32) StreamOption {
	return func(o *StreamOptions) { o.PageSize = size }
}

func WithProgressHandler(handler func(StreamProgress)) StreamOption {
	return func(o *StreamOptions) { o.ProgressHandler = handler }
}

func WithErrorHandler(handler func(error) bool) StreamOption {
	return func(o *StreamOptions) { o.ErrorHandler = handler }
}
