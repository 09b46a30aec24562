/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// QueryParams describes a DynamoDB Query. Handed to a collection as its
// criteria, it makes the DynamoDB store query instead of scanning.
type QueryParams struct {
	// TableName overrides the store's table when set.
	TableName string

	KeyConditionExpression    string
	FilterExpression          *string
	ExpressionAttributeNames  map[string]string
	ExpressionAttributeValues map[string]types.AttributeValue

	// IndexName selects a secondary index, e.g. "GSI1".
	IndexName *string

	// Limit caps the size of every page the store requests.
	Limit *int32

	// ExclusiveStartKey resumes a previous query.
	ExclusiveStartKey map[string]types.AttributeValue

	// ScanIndexForward false returns the sort key in descending order.
	ScanIndexForward *bool
}

// Validate reports params that DynamoDB would reject.
func (p *QueryParams) Validate() error {
	if p.KeyConditionExpression == "" {
		return errors.New("query needs a key condition expression")
	}
	return nil
}

// PageLimit returns the smaller of pageSize and p.Limit.
func (p *QueryParams) PageLimit(pageSize int32) int32 {
	if p.Limit != nil && *p.Limit > 0 && *p.Limit < pageSize {
		return *p.Limit
	}
	return pageSize
}
