package database

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var (
	ErrNotFound        = errors.New("item not found")
	ErrConditionFailed = errors.New("condition check failed")
)

func S(value string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: value}
}

func N(value int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(value, 10)}
}

// Condition guards a write. An empty Expression means unconditional.
type Condition struct {
	Expression string
	Values     map[string]types.AttributeValue
	Names      map[string]string
}

type Update struct {
	Key        map[string]types.AttributeValue
	Expression string
	Condition  Condition
	Values     map[string]types.AttributeValue
	Names      map[string]string
}

type Query struct {
	Index     string
	KeyCond   string
	Filter    string
	Values    map[string]types.AttributeValue
	Names     map[string]string
	Ascending bool
}

func (c *DynamoDBClient) PutItem(
	ctx context.Context,
	tableName string,
	item interface{},
	cond Condition,
) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal item: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(tableName),
		Item:      av,
	}
	if cond.Expression != "" {
		input.ConditionExpression = aws.String(cond.Expression)
		input.ExpressionAttributeValues = cond.Values
		input.ExpressionAttributeNames = cond.Names
	}

	if _, err := c.svc.PutItem(ctx, input); err != nil {
		return fmt.Errorf("put item %s: %w", tableName, mapConditionError(err))
	}
	return nil
}

func (c *DynamoDBClient) GetItem(
	ctx context.Context,
	tableName string,
	key map[string]types.AttributeValue,
	out interface{},
) error {
	input := &dynamodb.GetItemInput{
		TableName:      aws.String(tableName),
		Key:            key,
		ConsistentRead: aws.Bool(true),
	}

	res, err := c.svc.GetItem(ctx, input)
	if err != nil {
		return fmt.Errorf("get item %s: %w", tableName, err)
	}
	if res.Item == nil {
		return fmt.Errorf("get item %s: %w", tableName, ErrNotFound)
	}

	if err := attributevalue.UnmarshalMap(res.Item, out); err != nil {
		return fmt.Errorf("unmarshal item: %w", err)
	}
	return nil
}

func (c *DynamoDBClient) UpdateItem(
	ctx context.Context,
	tableName string,
	update Update,
	out interface{},
) error {
	values := mergeValues(update.Values, update.Condition.Values)
	names := mergeNames(update.Names, update.Condition.Names)

	input := &dynamodb.UpdateItemInput{
		TableName:                 aws.String(tableName),
		Key:                       update.Key,
		UpdateExpression:          aws.String(update.Expression),
		ExpressionAttributeValues: values,
		ExpressionAttributeNames:  names,
		ReturnValues:              types.ReturnValueAllNew,
	}
	if update.Condition.Expression != "" {
		input.ConditionExpression = aws.String(update.Condition.Expression)
	}

	res, err := c.svc.UpdateItem(ctx, input)
	if err != nil {
		return fmt.Errorf("update item %s: %w", tableName, mapConditionError(err))
	}

	if out != nil {
		if err := attributevalue.UnmarshalMap(res.Attributes, out); err != nil {
			return fmt.Errorf("unmarshal updated item: %w", err)
		}
	}
	return nil
}

// QueryAll runs a query to completion, following LastEvaluatedKey.
func (c *DynamoDBClient) QueryAll(
	ctx context.Context,
	tableName string,
	q Query,
) ([]map[string]types.AttributeValue, error) {
	var allItems []map[string]types.AttributeValue
	var lastEvaluatedKey map[string]types.AttributeValue

	for {
		input := &dynamodb.QueryInput{
			TableName:                 aws.String(tableName),
			KeyConditionExpression:    aws.String(q.KeyCond),
			ExpressionAttributeValues: q.Values,
			ScanIndexForward:          aws.Bool(q.Ascending),
		}
		if q.Index != "" {
			input.IndexName = aws.String(q.Index)
		}
		if q.Filter != "" {
			input.FilterExpression = aws.String(q.Filter)
		}
		if q.Names != nil {
			input.ExpressionAttributeNames = q.Names
		}
		if lastEvaluatedKey != nil {
			input.ExclusiveStartKey = lastEvaluatedKey
		}

		result, err := c.svc.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("query all %s[%s]: %w", tableName, q.Index, err)
		}

		allItems = append(allItems, result.Items...)

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		lastEvaluatedKey = result.LastEvaluatedKey
	}

	return allItems, nil
}

func (c *DynamoDBClient) ScanAllWithFilter(
	ctx context.Context,
	tableName string,
	filterExpr string,
	exprAttrValues map[string]types.AttributeValue,
	exprAttrNames map[string]string,
) ([]map[string]types.AttributeValue, error) {
	var allItems []map[string]types.AttributeValue
	var lastEvaluatedKey map[string]types.AttributeValue

	for {
		input := &dynamodb.ScanInput{
			TableName: aws.String(tableName),
		}
		if filterExpr != "" {
			input.FilterExpression = aws.String(filterExpr)
			input.ExpressionAttributeValues = exprAttrValues
		}
		if exprAttrNames != nil {
			input.ExpressionAttributeNames = exprAttrNames
		}
		if lastEvaluatedKey != nil {
			input.ExclusiveStartKey = lastEvaluatedKey
		}

		result, err := c.svc.Scan(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("scan all with filter %s: %w", tableName, err)
		}

		allItems = append(allItems, result.Items...)

		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		lastEvaluatedKey = result.LastEvaluatedKey
	}
	return allItems, nil
}

// TxPut and TxUpdate are the write operations accepted by TransactWrite.
type TxPut struct {
	Table     string
	Item      interface{}
	Condition Condition
}

type TxUpdate struct {
	Table  string
	Update Update
}

// TransactWrite commits every put and update or none of them. A failed
// condition on any member is reported as ErrConditionFailed.
func (c *DynamoDBClient) TransactWrite(ctx context.Context, puts []TxPut, updates []TxUpdate) error {
	items := make([]types.TransactWriteItem, 0, len(puts)+len(updates))

	for _, p := range puts {
		av, err := attributevalue.MarshalMap(p.Item)
		if err != nil {
			return fmt.Errorf("marshal transact item: %w", err)
		}
		put := &types.Put{
			TableName: aws.String(p.Table),
			Item:      av,
		}
		if p.Condition.Expression != "" {
			put.ConditionExpression = aws.String(p.Condition.Expression)
			put.ExpressionAttributeValues = p.Condition.Values
			put.ExpressionAttributeNames = p.Condition.Names
		}
		items = append(items, types.TransactWriteItem{Put: put})
	}

	for _, u := range updates {
		upd := &types.Update{
			TableName:                 aws.String(u.Table),
			Key:                       u.Update.Key,
			UpdateExpression:          aws.String(u.Update.Expression),
			ExpressionAttributeValues: mergeValues(u.Update.Values, u.Update.Condition.Values),
			ExpressionAttributeNames:  mergeNames(u.Update.Names, u.Update.Condition.Names),
		}
		if u.Update.Condition.Expression != "" {
			upd.ConditionExpression = aws.String(u.Update.Condition.Expression)
		}
		items = append(items, types.TransactWriteItem{Update: upd})
	}

	if len(items) == 0 {
		return nil
	}

	_, err := c.svc.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		return fmt.Errorf("transact write: %w", mapConditionError(err))
	}
	return nil
}

func mapConditionError(err error) error {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return fmt.Errorf("%w: %v", ErrConditionFailed, err)
	}
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for _, reason := range tce.CancellationReasons {
			if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
				return fmt.Errorf("%w: %v", ErrConditionFailed, err)
			}
		}
	}
	return err
}

func mergeValues(a, b map[string]types.AttributeValue) map[string]types.AttributeValue {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func mergeNames(a, b map[string]string) map[string]string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	out := make(map[string]string, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}
