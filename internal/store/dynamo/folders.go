package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/secsky/secsky/backend/internal/common"
	"github.com/secsky/secsky/backend/internal/model"
)

// FolderStore implements store.Folders on the Folders table.
type FolderStore struct{ s *Store }

func (f *FolderStore) Create(ctx context.Context, rec *model.Folder) error {
	stored := *rec
	stored.ParentID = toPlacement(rec.ParentID)

	item, err := attributevalue.MarshalMap(&stored)
	if err != nil {
		return fmt.Errorf("marshal folder: %w", err)
	}
	_, err = f.s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(f.s.tables.Folders),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return fmt.Errorf("put folder: %w", err)
	}
	return nil
}

func (f *FolderStore) ListByOwner(ctx context.Context, ownerID string) ([]model.Folder, error) {
	var out []model.Folder
	var startKey map[string]types.AttributeValue
	for {
		page, err := f.s.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(f.s.tables.Folders),
			IndexName:              aws.String(ownerParentIndex),
			KeyConditionExpression: aws.String("user_id = :uid"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":uid": &types.AttributeValueMemberS{Value: ownerID},
			},
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("query folders: %w", err)
		}

		var recs []model.Folder
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &recs); err != nil {
			return nil, fmt.Errorf("unmarshal folders: %w", err)
		}
		for i := range recs {
			recs[i].ParentID = fromPlacement(recs[i].ParentID)
		}
		out = append(out, recs...)

		if page.LastEvaluatedKey == nil {
			return out, nil
		}
		startKey = page.LastEvaluatedKey
	}
}

func (f *FolderStore) Get(ctx context.Context, ownerID, id string) (*model.Folder, error) {
	out, err := f.s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(f.s.tables.Folders),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get folder: %w", err)
	}
	if out.Item == nil {
		return nil, common.ErrNotFound
	}

	var rec model.Folder
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal folder: %w", err)
	}
	if rec.OwnerID != ownerID {
		return nil, common.ErrNotFound
	}
	rec.ParentID = fromPlacement(rec.ParentID)
	return &rec, nil
}

func (f *FolderStore) Rename(ctx context.Context, ownerID, id, encryptedName, nameIV string) error {
	_, err := f.s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(f.s.tables.Folders),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		UpdateExpression:    aws.String("SET name_encrypted = :n, name_iv = :iv"),
		ConditionExpression: aws.String("attribute_exists(id) AND user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":n":   &types.AttributeValueMemberS{Value: encryptedName},
			":iv":  &types.AttributeValueMemberS{Value: nameIV},
			":uid": &types.AttributeValueMemberS{Value: ownerID},
		},
	})
	if err != nil {
		if isConditionFailure(err) {
			return common.ErrNotFound
		}
		return fmt.Errorf("rename folder: %w", err)
	}
	return nil
}

func (f *FolderStore) Move(ctx context.Context, ownerID, id, parentID string) error {
	_, err := f.s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(f.s.tables.Folders),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		UpdateExpression:    aws.String("SET parent_id = :p"),
		ConditionExpression: aws.String("attribute_exists(id) AND user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":p":   &types.AttributeValueMemberS{Value: toPlacement(parentID)},
			":uid": &types.AttributeValueMemberS{Value: ownerID},
		},
	})
	if err != nil {
		if isConditionFailure(err) {
			return common.ErrNotFound
		}
		return fmt.Errorf("move folder: %w", err)
	}
	return nil
}

func (f *FolderStore) Delete(ctx context.Context, ownerID, id string) error {
	_, err := f.s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(f.s.tables.Folders),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		ConditionExpression: aws.String("attribute_exists(id) AND user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: ownerID},
		},
	})
	if err != nil {
		if isConditionFailure(err) {
			return common.ErrNotFound
		}
		return fmt.Errorf("delete folder: %w", err)
	}
	return nil
}

// HasChildren probes the owner-parent index, which is eventually consistent:
// a child written moments ago may not be visible yet, so a freshly filled
// folder can briefly pass the empty check. Same acceptable-gap class as the
// registration email race.
func (f *FolderStore) HasChildren(ctx context.Context, ownerID, parentID string) (bool, error) {
	out, err := f.s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(f.s.tables.Folders),
		IndexName:              aws.String(ownerParentIndex),
		KeyConditionExpression: aws.String("user_id = :uid AND parent_id = :pid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: ownerID},
			":pid": &types.AttributeValueMemberS{Value: toPlacement(parentID)},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return false, fmt.Errorf("query child folders: %w", err)
	}
	return len(out.Items) > 0, nil
}
