package dynamo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/secsky/secsky/backend/internal/common"
	"github.com/secsky/secsky/backend/internal/model"
)

// UserStore implements store.Users on the Users table.
type UserStore struct{ s *Store }

// Create checks the email index and inserts the record. The check and the
// put are two separate operations, so a concurrent registration of the same
// email can slip through; the original deployment accepts this race.
func (u *UserStore) Create(ctx context.Context, rec *model.User) error {
	existing, err := u.GetByEmail(ctx, rec.Email)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return err
	}
	if existing != nil {
		return common.ErrConflict
	}

	item, err := attributevalue.MarshalMap(rec)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	_, err = u.s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(u.s.tables.Users),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		if isConditionFailure(err) {
			return common.ErrConflict
		}
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

func (u *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	out, err := u.s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(u.s.tables.Users),
		IndexName:              aws.String(emailIndex),
		KeyConditionExpression: aws.String("email = :email"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":email": &types.AttributeValueMemberS{Value: email},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("query user by email: %w", err)
	}
	if len(out.Items) == 0 {
		return nil, common.ErrNotFound
	}

	var rec model.User
	if err := attributevalue.UnmarshalMap(out.Items[0], &rec); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &rec, nil
}

func (u *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	out, err := u.s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(u.s.tables.Users),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if out.Item == nil {
		return nil, common.ErrNotFound
	}

	var rec model.User
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &rec, nil
}

func (u *UserStore) UpdateLoginHash(ctx context.Context, id, loginHash string) error {
	_, err := u.s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(u.s.tables.Users),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		UpdateExpression:    aws.String("SET login_hash = :h"),
		ConditionExpression: aws.String("attribute_exists(id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":h": &types.AttributeValueMemberS{Value: loginHash},
		},
	})
	if err != nil {
		if isConditionFailure(err) {
			return common.ErrNotFound
		}
		return fmt.Errorf("update login hash: %w", err)
	}
	return nil
}

// UpdateVaultKeys is rotation step (a): one atomic item write replacing salt
// and vault metadata together.
func (u *UserStore) UpdateVaultKeys(ctx context.Context, id, salt, vaultMetadata string) error {
	_, err := u.s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(u.s.tables.Users),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		UpdateExpression:    aws.String("SET salt = :salt, vault_metadata = :meta"),
		ConditionExpression: aws.String("attribute_exists(id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":salt": &types.AttributeValueMemberS{Value: salt},
			":meta": &types.AttributeValueMemberS{Value: vaultMetadata},
		},
	})
	if err != nil {
		if isConditionFailure(err) {
			return common.ErrNotFound
		}
		return fmt.Errorf("update vault keys: %w", err)
	}
	return nil
}
