package repo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	dom "TodoApp/internal/domain"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// DynamoAPI is the subset of *dynamodb.Client the repositories use.
type DynamoAPI interface {
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Global secondary indexes of the todos table. by_owner_status also serves
// by_owner_status_created since every GSI sorts on created_at.
var dynamoIndexes = map[Index]struct{ name, pk string }{
	IndexByOwner:              {"by_owner", "owner_id"},
	IndexByOwnerStatus:        {"by_owner_status", "owner_status"},
	IndexByOwnerStatusCreated: {"by_owner_status", "owner_status"},
	IndexByOwnerPriority:      {"by_owner_priority", "owner_priority"},
}

const dynamoTxAttempts = 3

// dynamoTodo is the item layout. Times are Unix nanoseconds so that
// created_at sorts numerically; version guards optimistic writes.
type dynamoTodo struct {
	ID            string `dynamodbav:"id"`
	OwnerID       string `dynamodbav:"owner_id"`
	OwnerStatus   string `dynamodbav:"owner_status"`
	OwnerPriority string `dynamodbav:"owner_priority"`
	Title         string `dynamodbav:"title"`
	Description   string `dynamodbav:"description,omitempty"`
	Status        string `dynamodbav:"status"`
	Priority      string `dynamodbav:"priority"`
	DueDate       *int64 `dynamodbav:"due_date,omitempty"`
	CreatedAt     int64  `dynamodbav:"created_at"`
	UpdatedAt     int64  `dynamodbav:"updated_at"`
	Version       int64  `dynamodbav:"version"`
}

func toDynamoTodo(t dom.Todo, version int64) dynamoTodo {
	item := dynamoTodo{
		ID:            t.ID,
		OwnerID:       t.OwnerID,
		OwnerStatus:   indexKey(IndexByOwnerStatus, t),
		OwnerPriority: indexKey(IndexByOwnerPriority, t),
		Title:         t.Title,
		Description:   t.Description,
		Status:        string(t.Status),
		Priority:      string(t.Priority),
		CreatedAt:     t.CreatedAt.UnixNano(),
		UpdatedAt:     t.UpdatedAt.UnixNano(),
		Version:       version,
	}
	if t.DueDate != nil {
		d := t.DueDate.UnixNano()
		item.DueDate = &d
	}
	return item
}

func (d dynamoTodo) todo() dom.Todo {
	t := dom.Todo{
		ID:          d.ID,
		OwnerID:     d.OwnerID,
		Title:       d.Title,
		Description: d.Description,
		Status:      dom.Status(d.Status),
		Priority:    dom.Priority(d.Priority),
		CreatedAt:   time.Unix(0, d.CreatedAt).UTC(),
		UpdatedAt:   time.Unix(0, d.UpdatedAt).UTC(),
	}
	if d.DueDate != nil {
		due := time.Unix(0, *d.DueDate).UTC()
		t.DueDate = &due
	}
	return t
}

// DynamoTodoRepo stores todos in a DynamoDB table keyed by id.
type DynamoTodoRepo struct {
	db    DynamoAPI
	table string
}

func NewDynamoTodoRepo(db DynamoAPI, table string) *DynamoTodoRepo {
	return &DynamoTodoRepo{db: db, table: table}
}

func (r *DynamoTodoRepo) Insert(ctx context.Context, t dom.Todo) (string, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	item, err := attributevalue.MarshalMap(toDynamoTodo(t, 1))
	if err != nil {
		return "", fmt.Errorf("marshal todo: %w", err)
	}
	_, err = r.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		if isConditionFailed(err) {
			return "", ErrDuplicate
		}
		return "", err
	}
	return t.ID, nil
}

func (r *DynamoTodoRepo) Get(ctx context.Context, id string) (dom.Todo, error) {
	item, err := r.get(ctx, id)
	if err != nil {
		return dom.Todo{}, err
	}
	return item.todo(), nil
}

func (r *DynamoTodoRepo) get(ctx context.Context, id string) (dynamoTodo, error) {
	out, err := r.db.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return dynamoTodo{}, err
	}
	if len(out.Item) == 0 {
		return dynamoTodo{}, ErrNoRecord
	}
	var item dynamoTodo
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return dynamoTodo{}, fmt.Errorf("unmarshal todo: %w", err)
	}
	return item, nil
}

func (r *DynamoTodoRepo) Query(ctx context.Context, q IndexQuery) ([]dom.Todo, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	gsi := dynamoIndexes[q.Index]

	p := dynamodb.NewQueryPaginator(r.db, &dynamodb.QueryInput{
		TableName:                aws.String(r.table),
		IndexName:                aws.String(gsi.name),
		KeyConditionExpression:   aws.String("#pk = :pk"),
		ExpressionAttributeNames: map[string]string{"#pk": gsi.pk},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: q.key()},
		},
		ScanIndexForward: aws.Bool(q.Order == OrderAsc),
	})

	var list []dom.Todo
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		var items []dynamoTodo
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &items); err != nil {
			return nil, fmt.Errorf("unmarshal todos: %w", err)
		}
		for _, it := range items {
			list = append(list, it.todo())
		}
	}
	return list, nil
}

// InTx reads with strong consistency and makes every write conditional on the
// version it read. A lost race reruns fn from scratch, up to dynamoTxAttempts.
func (r *DynamoTodoRepo) InTx(ctx context.Context, fn func(ctx context.Context, tx TodoTx) error) error {
	var err error
	for attempt := 0; attempt < dynamoTxAttempts; attempt++ {
		tx := &dynamoTx{repo: r, read: make(map[string]dynamoTodo)}
		err = fn(ctx, tx)
		if !errors.Is(err, ErrConflict) {
			return err
		}
	}
	return err
}

type dynamoTx struct {
	repo *DynamoTodoRepo
	read map[string]dynamoTodo
}

func (tx *dynamoTx) Get(ctx context.Context, id string) (dom.Todo, error) {
	item, err := tx.repo.get(ctx, id)
	if err != nil {
		return dom.Todo{}, err
	}
	tx.read[id] = item
	return item.todo(), nil
}

func (tx *dynamoTx) current(ctx context.Context, id string) (dynamoTodo, error) {
	if item, ok := tx.read[id]; ok {
		return item, nil
	}
	if _, err := tx.Get(ctx, id); err != nil {
		return dynamoTodo{}, err
	}
	return tx.read[id], nil
}

func (tx *dynamoTx) Patch(ctx context.Context, id string, p dom.TodoPatch, at time.Time) (dom.Todo, error) {
	cur, err := tx.current(ctx, id)
	if err != nil {
		return dom.Todo{}, err
	}
	next := p.Apply(cur.todo(), at)
	item, err := attributevalue.MarshalMap(toDynamoTodo(next, cur.Version+1))
	if err != nil {
		return dom.Todo{}, fmt.Errorf("marshal todo: %w", err)
	}
	_, err = tx.repo.db.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(tx.repo.table),
		Item:                item,
		ConditionExpression: aws.String("version = :v"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberN{Value: strconv.FormatInt(cur.Version, 10)},
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			return dom.Todo{}, ErrConflict
		}
		return dom.Todo{}, err
	}
	tx.read[id] = toDynamoTodo(next, cur.Version+1)
	return next, nil
}

func (tx *dynamoTx) Delete(ctx context.Context, id string) error {
	cur, err := tx.current(ctx, id)
	if err != nil {
		return err
	}
	_, err = tx.repo.db.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(tx.repo.table),
		Key:                 map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: id}},
		ConditionExpression: aws.String("version = :v"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberN{Value: strconv.FormatInt(cur.Version, 10)},
		},
	})
	if err != nil {
		if isConditionFailed(err) {
			return ErrConflict
		}
		return err
	}
	delete(tx.read, id)
	return nil
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
