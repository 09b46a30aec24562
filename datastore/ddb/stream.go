/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	tserrors "github.com/suparena/transientspace/errors"
	"github.com/suparena/transientspace/registry"
	"github.com/suparena/transientspace/storagemodels"
)

type page struct {
	items   []map[string]types.AttributeValue
	lastKey map[string]types.AttributeValue
}

// pageFunc fetches one page starting after startKey, with at most limit items.
type pageFunc func(ctx context.Context, startKey map[string]types.AttributeValue, limit int32) (page, error)

// scanPages scans the table for items of type t.
func (d *Store) scanPages(t reflect.Type) pageFunc {
	entityType := registry.TypeName(t)
	return func(ctx context.Context, startKey map[string]types.AttributeValue, limit int32) (page, error) {
		out, err := d.client.Scan(ctx, &sdk.ScanInput{
			TableName:                &d.tableName,
			FilterExpression:         aws.String("#et = :et"),
			ExpressionAttributeNames: map[string]string{"#et": EntityTypeAttribute},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":et": &types.AttributeValueMemberS{Value: entityType},
			},
			ExclusiveStartKey: startKey,
			Limit:             aws.Int32(limit),
		})
		if err != nil {
			return page{}, err
		}
		return page{items: out.Items, lastKey: out.LastEvaluatedKey}, nil
	}
}

// queryPages runs params against the store's table. params.TableName is only
// honored when set, and params.Limit caps the page size.
func (d *Store) queryPages(params *storagemodels.QueryParams) pageFunc {
	table := d.tableName
	if params.TableName != "" {
		table = params.TableName
	}
	return func(ctx context.Context, startKey map[string]types.AttributeValue, limit int32) (page, error) {
		limit = params.PageLimit(limit)
		if startKey == nil {
			startKey = params.ExclusiveStartKey
		}
		out, err := d.client.Query(ctx, &sdk.QueryInput{
			TableName:                 &table,
			KeyConditionExpression:    &params.KeyConditionExpression,
			ExpressionAttributeNames:  params.ExpressionAttributeNames,
			ExpressionAttributeValues: params.ExpressionAttributeValues,
			FilterExpression:          params.FilterExpression,
			IndexName:                 params.IndexName,
			Limit:                     aws.Int32(limit),
			ScanIndexForward:          params.ScanIndexForward,
			ExclusiveStartKey:         startKey,
		})
		if err != nil {
			return page{}, err
		}
		return page{items: out.Items, lastKey: out.LastEvaluatedKey}, nil
	}
}

// Stream runs params as a query and delivers items of type t on the returned
// channel, which is closed when the query is exhausted, fails or ctx ends.
func (d *Store) Stream(ctx context.Context, t reflect.Type, params *storagemodels.QueryParams, opts ...storagemodels.StreamOption) <-chan storagemodels.StreamResult {
	options := d.streamOptions(opts...)
	resultCh := make(chan storagemodels.StreamResult, options.BufferSize)
	go d.streamWorker(ctx, t, d.queryPages(params), options, resultCh)
	return resultCh
}

func (d *Store) streamOptions(opts ...storagemodels.StreamOption) storagemodels.StreamOptions {
	all := append(append([]storagemodels.StreamOption(nil), d.stream...), opts...)
	return storagemodels.NewStreamOptions(all...)
}

// collect drains every page of fetch and returns the decoded objects. The
// first item or page error aborts the collection.
func (d *Store) collect(ctx context.Context, t reflect.Type, fetch pageFunc) ([]any, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	options := d.streamOptions()
	resultCh := make(chan storagemodels.StreamResult, options.BufferSize)
	go d.streamWorker(ctx, t, fetch, options, resultCh)

	var objs []any
	for result := range resultCh {
		if result.Error != nil {
			return nil, tserrors.NewStorageError("query", registry.TypeName(t), result.Error)
		}
		if result.Item != nil {
			objs = append(objs, result.Item)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return objs, nil
}

// streamWorker pulls pages from fetch and sends decoded items to resultCh.
func (d *Store) streamWorker(
	ctx context.Context,
	t reflect.Type,
	fetch pageFunc,
	options storagemodels.StreamOptions,
	resultCh chan<- storagemodels.StreamResult,
) {
	defer close(resultCh)

	var itemIndex int64
	var pageNumber int
	startTime := time.Now()
	var errs []error

	reportProgress := func(lastKey map[string]types.AttributeValue) {
		if options.ProgressHandler == nil {
			return
		}
		options.ProgressHandler(storagemodels.StreamProgress{
			ItemsProcessed: atomic.LoadInt64(&itemIndex),
			PagesProcessed: pageNumber,
			LastKey:        lastKey,
			Errors:         errs,
			StartTime:      startTime,
		})
	}

	send := func(result storagemodels.StreamResult) bool {
		select {
		case <-ctx.Done():
			return false
		case resultCh <- result:
			return true
		}
	}

	entityType := registry.TypeName(t)
	var lastEvaluatedKey map[string]types.AttributeValue

	for {
		if ctx.Err() != nil {
			return
		}

		var out page
		err := callWithRetry(ctx, options, func() error {
			var err error
			out, err = fetch(ctx, lastEvaluatedKey, options.PageSize)
			return err
		})
		if err != nil {
			if options.ErrorHandler == nil || !options.ErrorHandler(err) {
				send(storagemodels.StreamResult{
					Error: err,
					Meta: storagemodels.StreamMeta{
						Index:      atomic.LoadInt64(&itemIndex),
						PageNumber: pageNumber,
						Timestamp:  time.Now(),
					},
				})
				return
			}
			// The handler chose to skip the page; without a key to resume
			// from, the stream ends here.
			errs = append(errs, err)
			d.logger.Warn("page skipped", zap.String("type", entityType), zap.Error(err))
			break
		}

		pageNumber++
		for _, item := range out.items {
			// GSI queries can return other entity types sharing a partition.
			if et := itemEntityType(item); et != "" && et != entityType {
				continue
			}
			result := processItem(t, item, atomic.LoadInt64(&itemIndex), pageNumber)
			atomic.AddInt64(&itemIndex, 1)
			if !send(result) {
				return
			}
			if result.Error != nil {
				errs = append(errs, result.Error)
			}
		}

		reportProgress(out.lastKey)

		if len(out.lastKey) == 0 {
			break
		}
		lastEvaluatedKey = out.lastKey
	}

	reportProgress(nil)
}

// callWithRetry runs op, retrying retryable errors with linear backoff.
func callWithRetry(ctx context.Context, options storagemodels.StreamOptions, op func() error) error {
	var lastErr error

	for attempt := 0; attempt <= options.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryableError(err) {
			return err
		}

		if attempt < options.MaxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(options.Backoff(attempt)):
			}
		}
	}

	return fmt.Errorf("request failed after %d retries: %w", options.MaxRetries, lastErr)
}

// processItem decodes a DynamoDB item into a StreamResult
func processItem(t reflect.Type, item map[string]types.AttributeValue, index int64, pageNumber int) storagemodels.StreamResult {
	meta := storagemodels.StreamMeta{
		Index:      index,
		PageNumber: pageNumber,
		Timestamp:  time.Now(),
	}

	obj, err := decodeItem(t, item)
	if err != nil {
		return storagemodels.StreamResult{
			Error: fmt.Errorf("failed to decode %s: %w", registry.TypeName(t), err),
			Raw:   item,
			Meta:  meta,
		}
	}
	return storagemodels.StreamResult{Item: obj, Raw: item, Meta: meta}
}

// isRetryableError determines if a DynamoDB error is retryable
func isRetryableError(err error) bool {
	var (
		pte *types.ProvisionedThroughputExceededException
		rle *types.RequestLimitExceeded
		ise *types.InternalServerError
	)
	if errors.As(err, &pte) || errors.As(err, &rle) || errors.As(err, &ise) {
		return true
	}

	var retryable interface{ IsRetryable() bool }
	if errors.As(err, &retryable) {
		return retryable.IsRetryable()
	}
	return false
}
