/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"context"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeAPI is an in-memory table keyed by PK and SK. Query returns the
// programmed queryItems; Scan walks the table in insertion order.
type fakeAPI struct {
	mu sync.Mutex

	items map[string]map[string]types.AttributeValue
	order []string

	queryItems []map[string]types.AttributeValue
	// failures are returned, one per call, by the next Query or Scan calls
	failures []error

	getErr      error
	transactErr error

	gets      []*sdk.GetItemInput
	queries   []*sdk.QueryInput
	scans     []*sdk.ScanInput
	transacts []*sdk.TransactWriteItemsInput
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{items: make(map[string]map[string]types.AttributeValue)}
}

func itemID(key map[string]types.AttributeValue) string {
	return attributeString(key["PK"]) + "|" + attributeString(key["SK"])
}

func (f *fakeAPI) put(item map[string]types.AttributeValue) {
	id := itemID(item)
	if _, ok := f.items[id]; !ok {
		f.order = append(f.order, id)
	}
	f.items[id] = item
}

func (f *fakeAPI) remove(key map[string]types.AttributeValue) {
	id := itemID(key)
	delete(f.items, id)
	for i, o := range f.order {
		if o == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
}

func (f *fakeAPI) nextFailure() error {
	if len(f.failures) == 0 {
		return nil
	}
	err := f.failures[0]
	f.failures = f.failures[1:]
	return err
}

func (f *fakeAPI) GetItem(_ context.Context, in *sdk.GetItemInput, _ ...func(*sdk.Options)) (*sdk.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets = append(f.gets, in)
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &sdk.GetItemOutput{Item: f.items[itemID(in.Key)]}, nil
}

func (f *fakeAPI) Query(_ context.Context, in *sdk.QueryInput, _ ...func(*sdk.Options)) (*sdk.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, in)
	if err := f.nextFailure(); err != nil {
		return nil, err
	}
	items, last := paginate(f.queryItems, in.ExclusiveStartKey, in.Limit)
	return &sdk.QueryOutput{Items: items, LastEvaluatedKey: last}, nil
}

func (f *fakeAPI) Scan(_ context.Context, in *sdk.ScanInput, _ ...func(*sdk.Options)) (*sdk.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scans = append(f.scans, in)
	if err := f.nextFailure(); err != nil {
		return nil, err
	}

	all := make([]map[string]types.AttributeValue, 0, len(f.order))
	for _, id := range f.order {
		all = append(all, f.items[id])
	}
	page, last := paginate(all, in.ExclusiveStartKey, in.Limit)

	// DynamoDB applies the filter after the limit
	want := attributeString(in.ExpressionAttributeValues[":et"])
	items := page[:0:0]
	for _, item := range page {
		if want == "" || itemEntityType(item) == want {
			items = append(items, item)
		}
	}
	return &sdk.ScanOutput{Items: items, LastEvaluatedKey: last}, nil
}

func (f *fakeAPI) TransactWriteItems(_ context.Context, in *sdk.TransactWriteItemsInput, _ ...func(*sdk.Options)) (*sdk.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transacts = append(f.transacts, in)
	if f.transactErr != nil {
		return nil, f.transactErr
	}

	reasons := make([]types.CancellationReason, len(in.TransactItems))
	failed := false
	for i, ti := range in.TransactItems {
		reasons[i].Code = aws.String("None")
		if ti.Put == nil || ti.Put.ConditionExpression == nil {
			continue
		}
		_, exists := f.items[itemID(ti.Put.Item)]
		switch aws.ToString(ti.Put.ConditionExpression) {
		case "attribute_not_exists(PK)":
			failed = failed || exists
			if exists {
				reasons[i].Code = aws.String("ConditionalCheckFailed")
			}
		case "attribute_exists(PK)":
			failed = failed || !exists
			if !exists {
				reasons[i].Code = aws.String("ConditionalCheckFailed")
			}
		}
	}
	if failed {
		return nil, &types.TransactionCanceledException{
			Message:             aws.String("Transaction cancelled"),
			CancellationReasons: reasons,
		}
	}

	for _, ti := range in.TransactItems {
		switch {
		case ti.Put != nil:
			f.put(ti.Put.Item)
		case ti.Delete != nil:
			f.remove(ti.Delete.Key)
		}
	}
	return &sdk.TransactWriteItemsOutput{}, nil
}

// paginate slices items starting at the offset encoded in startKey.
func paginate(items []map[string]types.AttributeValue, startKey map[string]types.AttributeValue, limit *int32) ([]map[string]types.AttributeValue, map[string]types.AttributeValue) {
	offset := 0
	if startKey != nil {
		offset, _ = strconv.Atoi(attributeString(startKey["offset"]))
	}
	if offset > len(items) {
		offset = len(items)
	}
	end := len(items)
	if limit != nil && offset+int(*limit) < end {
		end = offset + int(*limit)
	}
	var last map[string]types.AttributeValue
	if end < len(items) {
		last = map[string]types.AttributeValue{
			"offset": &types.AttributeValueMemberN{Value: strconv.Itoa(end)},
		}
	}
	return items[offset:end], last
}
