package repo

import (
	"context"
	"fmt"
	"time"

	dom "TodoApp/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

type dynamoUser struct {
	Username     string `dynamodbav:"username"`
	ID           string `dynamodbav:"id"`
	Email        string `dynamodbav:"email,omitempty"`
	PasswordHash string `dynamodbav:"password_hash"`
	CreatedAt    int64  `dynamodbav:"created_at"`
}

// DynamoUserRepo stores users in a table keyed by username.
type DynamoUserRepo struct {
	db    DynamoAPI
	table string
}

func NewDynamoUserRepo(db DynamoAPI, table string) *DynamoUserRepo {
	return &DynamoUserRepo{db: db, table: table}
}

func (r *DynamoUserRepo) GetByUsername(ctx context.Context, username string) (dom.User, error) {
	out, err := r.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.table),
		Key:       map[string]types.AttributeValue{"username": &types.AttributeValueMemberS{Value: username}},
	})
	if err != nil {
		return dom.User{}, err
	}
	if len(out.Item) == 0 {
		return dom.User{}, ErrNoRecord
	}
	var u dynamoUser
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return dom.User{}, fmt.Errorf("unmarshal user: %w", err)
	}
	return dom.User{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    time.Unix(0, u.CreatedAt).UTC(),
	}, nil
}

func (r *DynamoUserRepo) Create(ctx context.Context, u dom.User) (dom.User, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	item, err := attributevalue.MarshalMap(dynamoUser{
		Username:     u.Username,
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt.UnixNano(),
	})
	if err != nil {
		return dom.User{}, fmt.Errorf("marshal user: %w", err)
	}
	_, err = r.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(username)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return dom.User{}, ErrDuplicate
		}
		return dom.User{}, err
	}
	return u, nil
}
