package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/jun/markpad/backend/internal/adapter"
)

// fakeAPI is an in-memory table understanding the condition expressions
// Store issues.
type fakeAPI struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{items: make(map[string]map[string]types.AttributeValue)}
}

func str(av types.AttributeValue) string {
	if s, ok := av.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

func rowKey(m map[string]types.AttributeValue) string {
	return str(m["user_id"]) + "/" + str(m["id"])
}

var errCondition = &types.ConditionalCheckFailedException{Message: new(string)}

func (f *fakeAPI) check(cond *string, existing map[string]types.AttributeValue, values map[string]types.AttributeValue) error {
	if cond == nil {
		return nil
	}
	switch *cond {
	case "attribute_not_exists(id)":
		if existing != nil {
			return errCondition
		}
	case "attribute_exists(id)":
		if existing == nil {
			return errCondition
		}
	case "etag = :etag":
		if existing == nil || str(existing["etag"]) != str(values[":etag"]) {
			return errCondition
		}
	default:
		return fmt.Errorf("fake: unsupported condition %q", *cond)
	}
	return nil
}

func (f *fakeAPI) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[rowKey(in.Key)]}, nil
}

func (f *fakeAPI) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := rowKey(in.Item)
	if err := f.check(in.ConditionExpression, f.items[k], in.ExpressionAttributeValues); err != nil {
		return nil, err
	}
	f.items[k] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeAPI) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := rowKey(in.Key)
	existing := f.items[k]
	if err := f.check(in.ConditionExpression, existing, in.ExpressionAttributeValues); err != nil {
		return nil, err
	}
	next := make(map[string]types.AttributeValue, len(existing))
	for name, v := range existing {
		next[name] = v
	}
	next[in.ExpressionAttributeNames["#attr"]] = in.ExpressionAttributeValues[":value"]
	next["modified_time"] = in.ExpressionAttributeValues[":now"]
	f.items[k] = next
	return &dynamodb.UpdateItemOutput{Attributes: next}, nil
}

func (f *fakeAPI) DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := rowKey(in.Key)
	if err := f.check(in.ConditionExpression, f.items[k], nil); err != nil {
		return nil, err
	}
	delete(f.items, k)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeAPI) Query(ctx context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	uid := str(in.ExpressionAttributeValues[":uid"])
	out := &dynamodb.QueryOutput{}
	for _, item := range f.items {
		if str(item["user_id"]) != uid {
			continue
		}
		out.Count++
		if in.Select != types.SelectCount {
			out.Items = append(out.Items, item)
		}
	}
	return out, nil
}

func TestStore_CRUD(t *testing.T) {
	api := newFakeAPI()
	p := NewProvider(api, "Documents", time.Hour)
	ctx := context.Background()
	s, _ := p.GetStore(ctx, "user1")

	doc, err := s.Create(ctx, "note", []byte("v1"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := s.Get(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got.Content) != "v1" || got.Name != "note" || got.ETag != doc.ETag {
		t.Errorf("unexpected document: %+v", got)
	}

	var item Item
	if err := attributevalue.UnmarshalMap(api.items["user1/"+doc.ID], &item); err != nil {
		t.Fatalf("stored item does not unmarshal: %v", err)
	}
	if item.TTL == 0 {
		t.Error("Expected a TTL on the stored item")
	}

	saved, err := s.Save(ctx, doc.ID, []byte("v2"), doc.ETag)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := s.Save(ctx, doc.ID, []byte("v3"), doc.ETag); !errors.Is(err, adapter.ErrPreconditionFailed) {
		t.Errorf("Expected ErrPreconditionFailed, got %v", err)
	}

	renamed, err := s.Rename(ctx, doc.ID, "renamed")
	if err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	if renamed.Name != "renamed" || renamed.ETag != saved.ETag {
		t.Errorf("unexpected rename result: %+v", renamed)
	}

	if _, err := s.SetStarred(ctx, doc.ID, true); err != nil {
		t.Fatalf("SetStarred failed: %v", err)
	}
	starred, _ := s.ListStarred(ctx)
	if len(starred) != 1 {
		t.Errorf("Expected 1 starred document, got %d", len(starred))
	}

	cp, err := s.Duplicate(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Duplicate failed: %v", err)
	}
	if cp.Name != "Copy of renamed" {
		t.Errorf("unexpected copy name %q", cp.Name)
	}

	found, _ := s.Search(ctx, "V2")
	if len(found) != 2 {
		t.Errorf("Expected both documents to match, got %d", len(found))
	}

	if err := s.Delete(ctx, doc.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete(ctx, doc.ID); !errors.Is(err, adapter.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := s.Get(ctx, doc.ID); !errors.Is(err, adapter.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := s.SetStarred(ctx, doc.ID, false); !errors.Is(err, adapter.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestStore_IsolatesUsers(t *testing.T) {
	api := newFakeAPI()
	p := NewProvider(api, "Documents", 0)
	ctx := context.Background()

	a, _ := p.GetStore(ctx, "alice")
	b, _ := p.GetStore(ctx, "bob")
	doc, _ := a.Create(ctx, "secret", []byte("x"))

	if _, err := b.Get(ctx, doc.ID); !errors.Is(err, adapter.ErrNotFound) {
		t.Errorf("bob read alice's document: %v", err)
	}
	if docs, _ := b.List(ctx); len(docs) != 0 {
		t.Errorf("bob lists %d documents", len(docs))
	}
}

func TestStore_Limit(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newFakeAPI(), "Documents", "user1", 0)
	for i := 0; i < adapter.MaxDocuments; i++ {
		if _, err := s.Create(ctx, fmt.Sprintf("note %d", i), nil); err != nil {
			t.Fatalf("Create %d failed: %v", i, err)
		}
	}
	if _, err := s.Create(ctx, "overflow", nil); !errors.Is(err, adapter.ErrLimitReached) {
		t.Errorf("Expected ErrLimitReached, got %v", err)
	}
	if _, err := s.Create(ctx, "", nil); !errors.Is(err, adapter.ErrInvalidName) {
		t.Errorf("Expected ErrInvalidName, got %v", err)
	}
}
