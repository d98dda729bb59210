package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/voice-console/internal/domain"
)

const (
	attrSessionID = "session_id"
	attrExpiresAt = "expires_at"
)

// ErrItemTooLarge is returned by Put for a session DynamoDB would reject.
var ErrItemTooLarge = fmt.Errorf("%w: session is too large to store", domain.ErrBadRequest)

// API is the subset of the DynamoDB client the session store uses.
type API interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// SessionStore provides typed DynamoDB operations for the console sessions table.
// DynamoDB deletes expired items lazily, so Get also checks expires_at.
type SessionStore struct {
	client    API
	tableName string
	now       func() time.Time
}

func NewSessionStore(client API, tableName string) *SessionStore {
	return &SessionStore{client: client, tableName: tableName, now: time.Now}
}

func (r *SessionStore) Put(ctx context.Context, s *domain.Session, ttl time.Duration) error {
	if ttl > 0 {
		s.ExpiresAt = r.now().Add(ttl).Unix()
	}
	item, err := attributevalue.MarshalMap(s)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if size := itemSize(item); size > MaxItemBytes {
		return fmt.Errorf("%w (%d bytes, limit %d)", ErrItemTooLarge, size, MaxItemBytes)
	}
	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("dynamo put session: %w", err)
	}
	return nil
}

func (r *SessionStore) Get(ctx context.Context, sessionID string) (*domain.Session, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.tableName),
		Key:            strKey(attrSessionID, sessionID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamo get session: %w", err)
	}
	if out.Item == nil {
		return nil, fmt.Errorf("session not found: %w", domain.ErrNotFound)
	}
	var s domain.Session
	if err := attributevalue.UnmarshalMap(out.Item, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if s.ExpiresAt != 0 && s.ExpiresAt <= r.now().Unix() {
		return nil, fmt.Errorf("session expired: %w", domain.ErrNotFound)
	}
	return &s, nil
}

func (r *SessionStore) Delete(ctx context.Context, sessionID string) error {
	_, err := r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       strKey(attrSessionID, sessionID),
	})
	if err != nil {
		return fmt.Errorf("dynamo delete session: %w", err)
	}
	return nil
}
