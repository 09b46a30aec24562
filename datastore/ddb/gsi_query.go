/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package ddb

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/suparena/transientspace/registry"
	"github.com/suparena/transientspace/storagemodels"
)

// IndexQuery builds GSI QueryParams for a registered type. The resulting
// params are passed as criteria to GetObjects or a session collection.
type IndexQuery struct {
	t          reflect.Type
	indexName  string
	pkValue    string
	skValue    string
	skValue2   string
	skOperator string // "=", "begins_with", ">", "<", ">=", "<=", "BETWEEN"
	filters    []string
	filterVals map[string]types.AttributeValue
	limit      *int32
	forward    *bool
	now        func() time.Time
}

// NewIndexQuery starts a GSI1 query for objects of type t.
func NewIndexQuery(t reflect.Type) *IndexQuery {
	return &IndexQuery{
		t:          t,
		indexName:  "GSI1",
		filterVals: make(map[string]types.AttributeValue),
		now:        time.Now,
	}
}

// OnIndex selects another configured GSI.
func (q *IndexQuery) OnIndex(name string) *IndexQuery {
	q.indexName = name
	return q
}

// WithPartitionKey sets the GSI partition key value
func (q *IndexQuery) WithPartitionKey(value string) *IndexQuery {
	q.pkValue = value
	return q
}

// WithSortKey sets the GSI sort key value with equals operator
func (q *IndexQuery) WithSortKey(value string) *IndexQuery {
	return q.sortKey("=", value)
}

// WithSortKeyPrefix sets the GSI sort key to use begins_with operator
func (q *IndexQuery) WithSortKeyPrefix(prefix string) *IndexQuery {
	return q.sortKey("begins_with", prefix)
}

// WithSortKeyGreaterThan sets the GSI sort key to use > operator
func (q *IndexQuery) WithSortKeyGreaterThan(value string) *IndexQuery {
	return q.sortKey(">", value)
}

// WithSortKeyLessThan sets the GSI sort key to use < operator
func (q *IndexQuery) WithSortKeyLessThan(value string) *IndexQuery {
	return q.sortKey("<", value)
}

// WithSortKeyBetween sets the GSI sort key to use BETWEEN operator
func (q *IndexQuery) WithSortKeyBetween(start, end string) *IndexQuery {
	q.skValue2 = end
	return q.sortKey("BETWEEN", start)
}

func (q *IndexQuery) sortKey(op, value string) *IndexQuery {
	q.skOperator = op
	q.skValue = value
	return q
}

// After matches sort keys later than ts, formatted as RFC3339.
func (q *IndexQuery) After(ts time.Time) *IndexQuery {
	return q.WithSortKeyGreaterThan(ts.UTC().Format(time.RFC3339))
}

// Before matches sort keys earlier than ts.
func (q *IndexQuery) Before(ts time.Time) *IndexQuery {
	return q.WithSortKeyLessThan(ts.UTC().Format(time.RFC3339))
}

// Between matches sort keys in [start, end].
func (q *IndexQuery) Between(start, end time.Time) *IndexQuery {
	return q.WithSortKeyBetween(start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))
}

// InLast matches sort keys within the last d.
func (q *IndexQuery) InLast(d time.Duration) *IndexQuery {
	return q.After(q.now().Add(-d))
}

// Newest orders results by descending sort key.
func (q *IndexQuery) Newest() *IndexQuery {
	q.forward = aws.Bool(false)
	return q
}

// WithFilter adds a filter expression
func (q *IndexQuery) WithFilter(expression string, values map[string]types.AttributeValue) *IndexQuery {
	q.filters = append(q.filters, expression)
	for k, v := range values {
		q.filterVals[k] = v
	}
	return q
}

// WithLimit sets the page size of the query
func (q *IndexQuery) WithLimit(limit int32) *IndexQuery {
	q.limit = aws.Int32(limit)
	return q
}

// Build constructs the final query parameters. Values are prefixed with the
// static part of the type's index map pattern, so "EMEA" on "REGION#{Region}"
// becomes "REGION#EMEA".
func (q *IndexQuery) Build() (*storagemodels.QueryParams, error) {
	if q.pkValue == "" {
		return nil, fmt.Errorf("GSI partition key value is required")
	}
	gsi, ok := GetGSIConfig(q.indexName)
	if !ok {
		return nil, fmt.Errorf("no GSI configuration for index %q", q.indexName)
	}
	indexMap, ok := registry.GetIndexMap(q.t)
	if !ok {
		return nil, fmt.Errorf("no index map found for type %s", registry.TypeName(q.t))
	}
	pkPattern, ok := indexMap[q.indexName+"PK"]
	if !ok {
		return nil, fmt.Errorf("%sPK not found in index map", q.indexName)
	}

	params := &storagemodels.QueryParams{
		IndexName:                aws.String(gsi.IndexName),
		Limit:                    q.limit,
		ScanIndexForward:         q.forward,
		ExpressionAttributeNames: map[string]string{"#pk": gsi.PartitionKeyName},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: withPrefix(pkPattern, q.pkValue)},
		},
	}
	keyConditions := []string{"#pk = :pk"}

	if q.skOperator != "" {
		skPattern := indexMap[q.indexName+"SK"]
		sk := withPrefix(skPattern, q.skValue)
		params.ExpressionAttributeNames["#sk"] = gsi.SortKeyName
		params.ExpressionAttributeValues[":sk"] = &types.AttributeValueMemberS{Value: sk}

		switch q.skOperator {
		case "begins_with":
			keyConditions = append(keyConditions, "begins_with(#sk, :sk)")
		case "BETWEEN":
			keyConditions = append(keyConditions, "#sk BETWEEN :sk AND :sk2")
			params.ExpressionAttributeValues[":sk2"] = &types.AttributeValueMemberS{Value: withPrefix(skPattern, q.skValue2)}
		default:
			keyConditions = append(keyConditions, "#sk "+q.skOperator+" :sk")
		}
	}
	params.KeyConditionExpression = strings.Join(keyConditions, " AND ")

	if len(q.filters) > 0 {
		params.FilterExpression = aws.String(strings.Join(q.filters, " AND "))
		for k, v := range q.filterVals {
			params.ExpressionAttributeValues[k] = v
		}
	}
	return params, nil
}

// withPrefix prepends the static prefix of pattern (up to its first macro)
// unless value already carries it.
func withPrefix(pattern, value string) string {
	i := strings.Index(pattern, "{")
	if i <= 0 {
		return value
	}
	prefix := pattern[:i]
	if strings.HasPrefix(value, prefix) {
		return value
	}
	return prefix + value
}
