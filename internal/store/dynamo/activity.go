package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/secsky/secsky/backend/internal/model"
)

// ActivityLog implements store.Activity on the ActivityLogs table.
type ActivityLog struct{ s *Store }

func (a *ActivityLog) Append(ctx context.Context, e *model.ActivityEntry) error {
	item, err := attributevalue.MarshalMap(e)
	if err != nil {
		return fmt.Errorf("marshal activity entry: %w", err)
	}
	_, err = a.s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(a.s.tables.Activity),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("put activity entry: %w", err)
	}
	return nil
}

// Recent queries the owner's time index newest-first.
func (a *ActivityLog) Recent(ctx context.Context, ownerID string, limit int) ([]model.ActivityEntry, error) {
	out, err := a.s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(a.s.tables.Activity),
		IndexName:              aws.String(ownerTimeIndex),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: ownerID},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}

	var recs []model.ActivityEntry
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &recs); err != nil {
		return nil, fmt.Errorf("unmarshal activity: %w", err)
	}
	return recs, nil
}
