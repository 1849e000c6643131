package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/jun/markpad/backend/internal/adapter"
)

// API is the subset of the DynamoDB client used by Store.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Item is the DynamoDB row of one document. The table is keyed by
// (user_id, id).
type Item struct {
	UserID       string    `dynamodbav:"user_id"`
	ID           string    `dynamodbav:"id"`
	Name         string    `dynamodbav:"name"`
	ModifiedTime time.Time `dynamodbav:"modified_time"`
	Size         int64     `dynamodbav:"size"`
	ETag         string    `dynamodbav:"etag"`
	Starred      bool      `dynamodbav:"starred"`
	Content      []byte    `dynamodbav:"content"`
	TTL          int64     `dynamodbav:"ttl,omitempty"`
}

func (it *Item) metadata() adapter.Metadata {
	return adapter.Metadata{
		ID:           it.ID,
		Name:         it.Name,
		ModifiedTime: it.ModifiedTime,
		Size:         it.Size,
		ETag:         it.ETag,
		Starred:      it.Starred,
	}
}

// Store implements adapter.DocumentStore for one user on a DynamoDB table.
type Store struct {
	client API
	table  string
	userID string
	// ttl expires demo documents; zero keeps them forever.
	ttl time.Duration
}

// NewStore creates a Store for userID.
func NewStore(client API, table, userID string, ttl time.Duration) *Store {
	return &Store{client: client, table: table, userID: userID, ttl: ttl}
}

func (s *Store) key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"user_id": &types.AttributeValueMemberS{Value: s.userID},
		"id":      &types.AttributeValueMemberS{Value: id},
	}
}

func (s *Store) expiry(now time.Time) int64 {
	if s.ttl <= 0 {
		return 0
	}
	return now.Add(s.ttl).Unix()
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

func (s *Store) query(ctx context.Context, selectCount bool) ([]Item, int, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: s.userID},
		},
	}
	if selectCount {
		input.Select = types.SelectCount
	}

	var items []Item
	count := 0
	for {
		out, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, 0, fmt.Errorf("query documents: %w", err)
		}
		count += int(out.Count)
		if !selectCount {
			var page []Item
			if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
				return nil, 0, err
			}
			items = append(items, page...)
		}
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
	return items, count, nil
}

func (s *Store) filter(ctx context.Context, keep func(*Item) bool) ([]adapter.Metadata, error) {
	items, _, err := s.query(ctx, false)
	if err != nil {
		return nil, err
	}
	out := make([]adapter.Metadata, 0, len(items))
	for i := range items {
		if keep(&items[i]) {
			out = append(out, items[i].metadata())
		}
	}
	adapter.SortByModified(out)
	return out, nil
}

func (s *Store) List(ctx context.Context) ([]adapter.Metadata, error) {
	return s.filter(ctx, func(*Item) bool { return true })
}

func (s *Store) ListStarred(ctx context.Context) ([]adapter.Metadata, error) {
	return s.filter(ctx, func(it *Item) bool { return it.Starred })
}

func (s *Store) Search(ctx context.Context, query string) ([]adapter.Metadata, error) {
	return s.filter(ctx, func(it *Item) bool { return adapter.Matches(it.Name, it.Content, query) })
}

func (s *Store) getItem(ctx context.Context, id string) (*Item, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	if out.Item == nil {
		return nil, adapter.ErrNotFound
	}
	var item Item
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) Get(ctx context.Context, id string) (*adapter.Document, error) {
	item, err := s.getItem(ctx, id)
	if err != nil {
		return nil, err
	}
	return &adapter.Document{Metadata: item.metadata(), Content: item.Content}, nil
}

func (s *Store) Create(ctx context.Context, name string, content []byte) (*adapter.Metadata, error) {
	if err := adapter.CheckName(name); err != nil {
		return nil, err
	}
	if err := adapter.CheckContent(content); err != nil {
		return nil, err
	}
	return s.insert(ctx, name, content)
}

func (s *Store) insert(ctx context.Context, name string, content []byte) (*adapter.Metadata, error) {
	// Counting first leaves a small race between concurrent creates, which
	// at worst lets a user end one document over the limit.
	_, count, err := s.query(ctx, true)
	if err != nil {
		return nil, err
	}
	if count >= adapter.MaxDocuments {
		return nil, adapter.ErrLimitReached
	}

	now := time.Now()
	item := Item{
		UserID:       s.userID,
		ID:           uuid.New().String(),
		Name:         name,
		ModifiedTime: now,
		Size:         int64(len(content)),
		ETag:         uuid.New().String(),
		Content:      content,
		TTL:          s.expiry(now),
	}
	if err := s.put(ctx, &item, "attribute_not_exists(id)", nil); err != nil {
		return nil, err
	}
	meta := item.metadata()
	return &meta, nil
}

func (s *Store) put(ctx context.Context, item *Item, cond string, values map[string]types.AttributeValue) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return err
	}
	input := &dynamodb.PutItemInput{
		TableName:                 aws.String(s.table),
		Item:                      av,
		ConditionExpression:       aws.String(cond),
		ExpressionAttributeValues: values,
	}
	if _, err := s.client.PutItem(ctx, input); err != nil {
		if isConditionFailed(err) {
			return adapter.ErrPreconditionFailed
		}
		return fmt.Errorf("put document: %w", err)
	}
	return nil
}

func (s *Store) Save(ctx context.Context, id string, content []byte, etag string) (*adapter.Metadata, error) {
	if err := adapter.CheckContent(content); err != nil {
		return nil, err
	}
	item, err := s.getItem(ctx, id)
	if err != nil {
		return nil, err
	}
	if etag != "" && item.ETag != etag {
		return nil, adapter.ErrPreconditionFailed
	}

	// The write is conditioned on the ETag read above so a concurrent save
	// in between is detected.
	prev := item.ETag
	now := time.Now()
	item.Content = content
	item.Size = int64(len(content))
	item.ModifiedTime = now
	item.ETag = uuid.New().String()
	item.TTL = s.expiry(now)
	err = s.put(ctx, item, "etag = :etag", map[string]types.AttributeValue{
		":etag": &types.AttributeValueMemberS{Value: prev},
	})
	if err != nil {
		return nil, err
	}
	meta := item.metadata()
	return &meta, nil
}

func (s *Store) set(ctx context.Context, id, attr string, value types.AttributeValue) (*adapter.Metadata, error) {
	out, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.table),
		Key:                 s.key(id),
		UpdateExpression:    aws.String("SET #attr = :value, modified_time = :now"),
		ConditionExpression: aws.String("attribute_exists(id)"),
		ExpressionAttributeNames: map[string]string{
			"#attr": attr,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":value": value,
			":now":   &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionFailed(err) {
			return nil, adapter.ErrNotFound
		}
		return nil, fmt.Errorf("update document: %w", err)
	}
	var item Item
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		return nil, err
	}
	meta := item.metadata()
	return &meta, nil
}

func (s *Store) Rename(ctx context.Context, id, name string) (*adapter.Metadata, error) {
	if err := adapter.CheckName(name); err != nil {
		return nil, err
	}
	return s.set(ctx, id, "name", &types.AttributeValueMemberS{Value: name})
}

func (s *Store) SetStarred(ctx context.Context, id string, starred bool) (*adapter.Metadata, error) {
	return s.set(ctx, id, "starred", &types.AttributeValueMemberBOOL{Value: starred})
}

func (s *Store) Duplicate(ctx context.Context, id string) (*adapter.Metadata, error) {
	item, err := s.getItem(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.insert(ctx, adapter.CopyName(item.Name), item.Content)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(s.table),
		Key:                 s.key(id),
		ConditionExpression: aws.String("attribute_exists(id)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return adapter.ErrNotFound
		}
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

// Provider hands out DynamoDB-backed stores sharing one table.
type Provider struct {
	client API
	table  string
	ttl    time.Duration
}

// NewProvider creates a Provider. A positive ttl makes documents expire,
// which the demo deployment uses.
func NewProvider(client API, table string, ttl time.Duration) *Provider {
	return &Provider{client: client, table: table, ttl: ttl}
}

func (p *Provider) GetStore(ctx context.Context, userID string) (adapter.DocumentStore, error) {
	return NewStore(p.client, p.table, userID, p.ttl), nil
}
