package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/jun/markpad/backend/internal/model"
)

// DynamoAPI is the subset of the DynamoDB client used by DynamoLocker.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoLocker handles edit locks using DynamoDB conditional writes and TTL.
type DynamoLocker struct {
	client    DynamoAPI
	tableName string
	ttl       time.Duration
}

// NewDynamoLocker creates a DynamoLocker with the default TTL.
func NewDynamoLocker(client DynamoAPI, tableName string) *DynamoLocker {
	return &DynamoLocker{
		client:    client,
		tableName: tableName,
		ttl:       DefaultTTL,
	}
}

func (m *DynamoLocker) key(documentID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"document_id": &types.AttributeValueMemberS{Value: documentID},
	}
}

func num(n int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}
}

func conditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// Acquire succeeds if:
// 1. No lock exists for the document.
// 2. The existing lock has expired (TTL < now).
// 3. The existing lock belongs to the same user (refresh).
func (m *DynamoLocker) Acquire(ctx context.Context, documentID, userID string) (*model.EditLock, error) {
	now := time.Now()
	lock := model.EditLock{
		DocumentID: documentID,
		UserID:     userID,
		ExpiresAt:  now.Add(m.ttl).Unix(),
	}

	item, err := attributevalue.MarshalMap(lock)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lock: %w", err)
	}

	_, err = m.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(m.tableName),
		Item:      item,
		ConditionExpression: aws.String(
			"attribute_not_exists(document_id) OR expires_at < :now OR user_id = :user_id",
		),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now":     num(now.Unix()),
			":user_id": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		if conditionFailed(err) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	return &lock, nil
}

// Heartbeat only extends a live lock; an expired one must be re-acquired.
func (m *DynamoLocker) Heartbeat(ctx context.Context, documentID, userID string) (*model.EditLock, error) {
	now := time.Now()
	out, err := m.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(m.tableName),
		Key:                 m.key(documentID),
		UpdateExpression:    aws.String("SET expires_at = :expires_at"),
		ConditionExpression: aws.String("user_id = :user_id AND expires_at >= :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":expires_at": num(now.Add(m.ttl).Unix()),
			":now":        num(now.Unix()),
			":user_id":    &types.AttributeValueMemberS{Value: userID},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		if conditionFailed(err) {
			return nil, ErrNotOwner
		}
		return nil, fmt.Errorf("failed to send heartbeat: %w", err)
	}

	var lock model.EditLock
	if err := attributevalue.UnmarshalMap(out.Attributes, &lock); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lock: %w", err)
	}
	return &lock, nil
}

func (m *DynamoLocker) Release(ctx context.Context, documentID, userID string) error {
	_, err := m.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(m.tableName),
		Key:                 m.key(documentID),
		ConditionExpression: aws.String("user_id = :user_id"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":user_id": &types.AttributeValueMemberS{Value: userID},
		},
	})
	if err != nil {
		if conditionFailed(err) {
			return ErrNotOwner
		}
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

func (m *DynamoLocker) Status(ctx context.Context, documentID string) (*model.EditLock, error) {
	out, err := m.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(m.tableName),
		Key:            m.key(documentID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get lock status: %w", err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var lock model.EditLock
	if err := attributevalue.UnmarshalMap(out.Item, &lock); err != nil {
		return nil, fmt.Errorf("failed to unmarshal lock: %w", err)
	}
	// DynamoDB deletes expired items lazily.
	if lock.ExpiresAt < time.Now().Unix() {
		return nil, nil
	}
	return &lock, nil
}
