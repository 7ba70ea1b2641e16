package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// maxUpdateAttempts bounds optimistic retries for a contended document.
const maxUpdateAttempts = 5

// ErrConflict is returned when an optimistic update keeps losing races.
var ErrConflict = errors.New("document changed concurrently")

// DynamoStore keeps documents in one table keyed by (collection, id).
type DynamoStore struct {
	client    *dynamodb.Client
	tableName string
}

type dynamoDocument struct {
	Collection string `dynamodbav:"collection"`
	ID         string `dynamodbav:"id"`
	Data       string `dynamodbav:"data"`
	Version    int64  `dynamodbav:"version"`
	UpdatedAt  string `dynamodbav:"updated_at"`
}

func NewDynamoStore(client *dynamodb.Client, tableName string) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName}
}

// NewDynamoClient loads the default AWS config. A non-empty endpoint points the
// client at a local DynamoDB.
func NewDynamoClient(ctx context.Context, region, endpoint string) (*dynamodb.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	}), nil
}

func (s *DynamoStore) key(collection, id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"collection": &types.AttributeValueMemberS{Value: collection},
		"id":         &types.AttributeValueMemberS{Value: id},
	}
}

func (s *DynamoStore) load(ctx context.Context, collection, id string) (*dynamoDocument, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.key(collection, id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}
	var doc dynamoDocument
	if err := attributevalue.UnmarshalMap(result.Item, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal %s/%s: %w", collection, id, err)
	}
	return &doc, nil
}

func (s *DynamoStore) Get(ctx context.Context, collection, id string) ([]byte, error) {
	doc, err := s.load(ctx, collection, id)
	if err != nil {
		return nil, err
	}
	return []byte(doc.Data), nil
}

func (s *DynamoStore) Create(ctx context.Context, collection, id string, doc []byte) error {
	item, err := attributevalue.MarshalMap(dynamoDocument{
		Collection: collection,
		ID:         id,
		Data:       string(doc),
		Version:    1,
		UpdatedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("marshal %s/%s: %w", collection, id, err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("create %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *DynamoStore) Put(ctx context.Context, collection, id string, doc []byte) error {
	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:        aws.String(s.tableName),
		Key:              s.key(collection, id),
		UpdateExpression: aws.String("SET #d = :d, updated_at = :u ADD #v :one"),
		ExpressionAttributeNames: map[string]string{
			"#d": "data",
			"#v": "version",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":d":   &types.AttributeValueMemberS{Value: string(doc)},
			":u":   &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
			":one": &types.AttributeValueMemberN{Value: "1"},
		},
	})
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *DynamoStore) Delete(ctx context.Context, collection, id string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.key(collection, id),
	})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *DynamoStore) List(ctx context.Context, collection string) ([][]byte, error) {
	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("#c = :c"),
		ExpressionAttributeNames: map[string]string{
			"#c": "collection",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":c": &types.AttributeValueMemberS{Value: collection},
		},
	})

	var docs [][]byte
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", collection, err)
		}
		for _, item := range page.Items {
			var doc dynamoDocument
			if err := attributevalue.UnmarshalMap(item, &doc); err != nil {
				return nil, fmt.Errorf("unmarshal %s: %w", collection, err)
			}
			docs = append(docs, []byte(doc.Data))
		}
	}
	return docs, nil
}

// Update is optimistic: the write is conditioned on the version that was read
// and retried when another writer got there first.
func (s *DynamoStore) Update(ctx context.Context, collection, id string, fn UpdateFunc) error {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		doc, err := s.load(ctx, collection, id)
		if err != nil {
			return err
		}

		next, err := fn([]byte(doc.Data))
		if err != nil {
			return err
		}

		_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
			TableName:           aws.String(s.tableName),
			Key:                 s.key(collection, id),
			UpdateExpression:    aws.String("SET #d = :d, updated_at = :u, #v = :next"),
			ConditionExpression: aws.String("#v = :v"),
			ExpressionAttributeNames: map[string]string{
				"#d": "data",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":d":    &types.AttributeValueMemberS{Value: string(next)},
				":u":    &types.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339Nano)},
				":v":    &types.AttributeValueMemberN{Value: strconv.FormatInt(doc.Version, 10)},
				":next": &types.AttributeValueMemberN{Value: strconv.FormatInt(doc.Version+1, 10)},
			},
		})
		if err == nil {
			return nil
		}
		var conditionFailed *types.ConditionalCheckFailedException
		if !errors.As(err, &conditionFailed) {
			return fmt.Errorf("update %s/%s: %w", collection, id, err)
		}
	}
	return fmt.Errorf("update %s/%s: %w", collection, id, ErrConflict)
}
