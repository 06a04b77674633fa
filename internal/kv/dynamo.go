package kv

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	"github.com/imrishuroy/pizzafly-storefront/internal/aws"
)

// entry is the shape persisted in the storage table.
type entry struct {
	StorageKey string    `dynamodbav:"storage_key"` // PK
	Value      string    `dynamodbav:"value"`
	UpdatedAt  time.Time `dynamodbav:"updated_at"`
	ExpiresAt  int64     `dynamodbav:"ttl,omitempty"` // epoch seconds, table TTL attribute
}

// absentCondition matches an item that does not exist or whose TTL has passed
// but that DynamoDB has not evicted yet.
const absentCondition = "attribute_not_exists(storage_key) OR #ttl <= :now"

// Dynamo stores each key as one item of a DynamoDB table keyed by storage_key.
// Keys written with ExpiresAt carry a ttl attribute; enable TTL on it so the
// table evicts them.
type Dynamo struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewDynamo returns a Dynamo store bound to tableName.
func NewDynamo(client aws.DynamoDBAPI, tableName string) *Dynamo {
	return &Dynamo{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

// Get fetches key. Returns ("", false, nil) if not found.
func (d *Dynamo) Get(ctx context.Context, key string) (string, bool, error) {
	out, err := d.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &d.tableName,
		Key:            d.key(key),
		ConsistentRead: awsBool(true),
	})
	if err != nil {
		return "", false, wrapAPIError("get item", err)
	}
	if len(out.Item) == 0 {
		return "", false, nil
	}
	var e entry
	if err := attributevalue.UnmarshalMap(out.Item, &e); err != nil {
		return "", false, fmt.Errorf("unmarshal item: %w", err)
	}
	if e.ExpiresAt > 0 && e.ExpiresAt <= d.nowFunc().Unix() {
		return "", false, nil
	}
	return e.Value, true, nil
}

// Apply writes a single key with PutItem/DeleteItem and larger batches with
// TransactWriteItems so they land all-or-nothing.
func (d *Dynamo) Apply(ctx context.Context, writes ...Write) error {
	if err := validate(writes); err != nil {
		return err
	}
	writes = collapse(writes)
	switch len(writes) {
	case 0:
		return nil
	case 1:
		return d.applyOne(ctx, writes[0])
	}

	now := d.nowFunc()
	items := make([]types.TransactWriteItem, 0, len(writes))
	for _, w := range writes {
		if w.Delete {
			items = append(items, types.TransactWriteItem{
				Delete: &types.Delete{TableName: &d.tableName, Key: d.key(w.Key)},
			})
			continue
		}
		item, err := d.marshal(w, now)
		if err != nil {
			return err
		}
		put := &types.Put{TableName: &d.tableName, Item: item}
		if w.IfAbsent {
			put.ConditionExpression, put.ExpressionAttributeNames, put.ExpressionAttributeValues = d.absent(now)
		}
		items = append(items, types.TransactWriteItem{Put: put})
	}

	_, err := d.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		var tce *types.TransactionCanceledException
		if errors.As(err, &tce) {
			return fmt.Errorf("%w: %w", ErrConflict, err)
		}
		return wrapAPIError("transact write", err)
	}
	return nil
}

func (d *Dynamo) applyOne(ctx context.Context, w Write) error {
	if w.Delete {
		_, err := d.client.DeleteItem(ctx, &dyn.DeleteItemInput{
			TableName: &d.tableName,
			Key:       d.key(w.Key),
		})
		if err != nil {
			return wrapAPIError("delete item", err)
		}
		return nil
	}
	now := d.nowFunc()
	item, err := d.marshal(w, now)
	if err != nil {
		return err
	}
	in := &dyn.PutItemInput{
		TableName: &d.tableName,
		Item:      item,
	}
	if w.IfAbsent {
		in.ConditionExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues = d.absent(now)
	}
	_, err = d.client.PutItem(ctx, in)
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("%w: %w", ErrConflict, err)
		}
		return wrapAPIError("put item", err)
	}
	return nil
}

func (d *Dynamo) absent(now time.Time) (*string, map[string]string, map[string]types.AttributeValue) {
	cond := absentCondition
	return &cond,
		map[string]string{"#ttl": "ttl"},
		map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Unix(), 10)},
		}
}

func (d *Dynamo) marshal(w Write, now time.Time) (map[string]types.AttributeValue, error) {
	e := entry{StorageKey: w.Key, Value: w.Value, UpdatedAt: now}
	if !w.ExpiresAt.IsZero() {
		e.ExpiresAt = w.ExpiresAt.Unix()
	}
	item, err := attributevalue.MarshalMap(e)
	if err != nil {
		return nil, fmt.Errorf("marshal item %q: %w", w.Key, err)
	}
	return item, nil
}

func (d *Dynamo) key(k string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"storage_key": &types.AttributeValueMemberS{Value: k},
	}
}

// wrapAPIError prefixes the AWS error code, when there is one, for log readability.
func wrapAPIError(op string, err error) error {
	var ae smithy.APIError
	if errors.As(err, &ae) {
		return fmt.Errorf("%s (%s): %w", op, ae.ErrorCode(), err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func awsBool(b bool) *bool { return &b }
