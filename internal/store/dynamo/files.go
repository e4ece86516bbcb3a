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

// metadataProjection selects every file attribute except the content blob.
const metadataProjection = "id, user_id, folder_id, filename, filename_iv, file_size, file_iv, encrypted_file_key, key_wrap_iv, password_protected, password_salt, password_iv, created_at"

const (
	batchGetLimit   = 100
	batchWriteLimit = 25
	batchRetries    = 3
)

// FileStore implements store.Files on the Files table.
type FileStore struct{ s *Store }

// Put writes content and metadata as one item: the single atomic write the
// upload contract requires.
func (f *FileStore) Put(ctx context.Context, rec *model.File) error {
	stored := *rec
	stored.FolderID = toPlacement(rec.FolderID)

	item, err := attributevalue.MarshalMap(&stored)
	if err != nil {
		return fmt.Errorf("marshal file: %w", err)
	}
	_, err = f.s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(f.s.tables.Files),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return fmt.Errorf("put file: %w", err)
	}
	return nil
}

func (f *FileStore) Get(ctx context.Context, ownerID, id string) (*model.File, error) {
	out, err := f.s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(f.s.tables.Files),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	if out.Item == nil {
		return nil, common.ErrNotFound
	}

	var rec model.File
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal file: %w", err)
	}
	if rec.OwnerID != ownerID {
		return nil, common.ErrNotFound
	}
	rec.FolderID = fromPlacement(rec.FolderID)
	return &rec, nil
}

func (f *FileStore) GetMetadata(ctx context.Context, ownerID, id string) (*model.FileMetadata, error) {
	out, err := f.s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(f.s.tables.Files),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		ProjectionExpression: aws.String(metadataProjection),
	})
	if err != nil {
		return nil, fmt.Errorf("get file metadata: %w", err)
	}
	if out.Item == nil {
		return nil, common.ErrNotFound
	}

	var rec model.FileMetadata
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal file metadata: %w", err)
	}
	if rec.OwnerID != ownerID {
		return nil, common.ErrNotFound
	}
	rec.FolderID = fromPlacement(rec.FolderID)
	return &rec, nil
}

func (f *FileStore) List(ctx context.Context, ownerID string, limit int) ([]model.FileMetadata, error) {
	out, err := f.s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(f.s.tables.Files),
		IndexName:              aws.String(ownerFolderIndex),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: ownerID},
		},
		ProjectionExpression: aws.String(metadataProjection),
		Limit:                aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}

	var recs []model.FileMetadata
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &recs); err != nil {
		return nil, fmt.Errorf("unmarshal files: %w", err)
	}
	for i := range recs {
		recs[i].FolderID = fromPlacement(recs[i].FolderID)
	}
	return recs, nil
}

func (f *FileStore) Move(ctx context.Context, ownerID, id, folderID string) error {
	_, err := f.s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(f.s.tables.Files),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		UpdateExpression:    aws.String("SET folder_id = :fid"),
		ConditionExpression: aws.String("attribute_exists(id) AND user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":fid": &types.AttributeValueMemberS{Value: toPlacement(folderID)},
			":uid": &types.AttributeValueMemberS{Value: ownerID},
		},
	})
	if err != nil {
		if isConditionFailure(err) {
			return common.ErrNotFound
		}
		return fmt.Errorf("move file: %w", err)
	}
	return nil
}

func (f *FileStore) Delete(ctx context.Context, ownerID, id string) error {
	_, err := f.s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(f.s.tables.Files),
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
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// AnyInFolder probes the owner-folder index, which is eventually consistent:
// a file uploaded moments ago may not be visible yet. See
// FolderStore.HasChildren.
func (f *FileStore) AnyInFolder(ctx context.Context, ownerID, folderID string) (bool, error) {
	out, err := f.s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(f.s.tables.Files),
		IndexName:              aws.String(ownerFolderIndex),
		KeyConditionExpression: aws.String("user_id = :uid AND folder_id = :fid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: ownerID},
			":fid": &types.AttributeValueMemberS{Value: toPlacement(folderID)},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return false, fmt.Errorf("query files in folder: %w", err)
	}
	return len(out.Items) > 0, nil
}

// RewrapKeys is rotation step (b). The targeted items are batch-read, filtered
// to the owner (an unowned or absent target silently matches nothing), updated
// in memory and rewritten with batched puts. The read and the write are two
// round trips; the write itself is one batched operation in chunks of 25.
func (f *FileStore) RewrapKeys(ctx context.Context, ownerID string, updates []model.FileKeyUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	byID := make(map[string]model.FileKeyUpdate, len(updates))
	ids := make([]string, 0, len(updates))
	for _, up := range updates {
		if _, seen := byID[up.FileID]; !seen {
			ids = append(ids, up.FileID)
		}
		byID[up.FileID] = up
	}

	var rewritten []map[string]types.AttributeValue
	for start := 0; start < len(ids); start += batchGetLimit {
		end := min(start+batchGetLimit, len(ids))
		items, err := f.batchGet(ctx, ids[start:end])
		if err != nil {
			return err
		}
		for _, item := range items {
			var rec model.File
			if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
				return fmt.Errorf("unmarshal file: %w", err)
			}
			if rec.OwnerID != ownerID {
				continue
			}
			up := byID[rec.ID]
			rec.WrappedKey = up.WrappedKey
			rec.KeyWrapIV = up.KeyWrapIV
			rec.EncryptedName = up.EncryptedName
			rec.NameIV = up.NameIV

			av, err := attributevalue.MarshalMap(&rec)
			if err != nil {
				return fmt.Errorf("marshal file: %w", err)
			}
			rewritten = append(rewritten, av)
		}
	}

	for start := 0; start < len(rewritten); start += batchWriteLimit {
		end := min(start+batchWriteLimit, len(rewritten))
		if err := f.batchPut(ctx, rewritten[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (f *FileStore) batchGet(ctx context.Context, ids []string) ([]map[string]types.AttributeValue, error) {
	keys := make([]map[string]types.AttributeValue, len(ids))
	for i, id := range ids {
		keys[i] = map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		}
	}

	var items []map[string]types.AttributeValue
	request := map[string]types.KeysAndAttributes{f.s.tables.Files: {Keys: keys}}
	for attempt := 0; len(request) > 0; attempt++ {
		out, err := f.s.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{
			RequestItems: request,
		})
		if err != nil {
			return nil, fmt.Errorf("batch get files: %w", err)
		}
		items = append(items, out.Responses[f.s.tables.Files]...)

		request = out.UnprocessedKeys
		if len(request) > 0 && attempt >= batchRetries {
			return nil, fmt.Errorf("batch get files: unprocessed keys after %d retries", batchRetries)
		}
	}
	return items, nil
}

func (f *FileStore) batchPut(ctx context.Context, items []map[string]types.AttributeValue) error {
	writes := make([]types.WriteRequest, len(items))
	for i, item := range items {
		writes[i] = types.WriteRequest{PutRequest: &types.PutRequest{Item: item}}
	}

	request := map[string][]types.WriteRequest{f.s.tables.Files: writes}
	for attempt := 0; len(request) > 0; attempt++ {
		out, err := f.s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: request,
		})
		if err != nil {
			return fmt.Errorf("batch write files: %w", err)
		}
		request = out.UnprocessedItems
		if len(request) > 0 && attempt >= batchRetries {
			return fmt.Errorf("batch write files: unprocessed items after %d retries", batchRetries)
		}
	}
	return nil
}
