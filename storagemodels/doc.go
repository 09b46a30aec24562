/*
Package storagemodels defines the data structures shared by the session
layer and the storage backends.

Key Types:

SortProperty:
Ordering of a collection, applied by the backend:

	sorting := []SortProperty{Descending("CreatedAt"), Ascending("Name")}

Filter:
In-memory criteria understood by every backend:

	criteria := Equals("Region", "EMEA")

QueryParams:
DynamoDB query criteria, understood by the ddb backend only:

	params := &QueryParams{
	    KeyConditionExpression: "GSI1PK = :pk",
	    ExpressionAttributeValues: map[string]types.AttributeValue{
	        ":pk": &types.AttributeValueMemberS{Value: "REGION#EMEA"},
	    },
	    IndexName: aws.String("GSI1"),
	}

StreamOptions:
Paging and retry behavior of the ddb backend:

	opts := []StreamOption{
	    WithPageSize(25),
	    WithMaxRetries(3),
	    WithProgressHandler(progressFunc),
	}
*/
package storagemodels
