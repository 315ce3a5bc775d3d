package dynamodb

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// API is the subset of the DynamoDB client used by the connection store
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// ConnectionIndex is the GSI keyed by connection id
const ConnectionIndex = "ConnectionIndex"

// connectionTTL bounds how long a forgotten connection lingers
const connectionTTL = 24 * time.Hour

// ConnectionRecord is one WebSocket connection attached to a view
type ConnectionRecord struct {
	PK           string `dynamodbav:"PK"` // VIEW#<view_id>
	SK           string `dynamodbav:"SK"` // CONN#<connection_id>
	ViewID       string `dynamodbav:"ViewID"`
	ConnectionID string `dynamodbav:"ConnectionID"`
	ConnectedAt  string `dynamodbav:"ConnectedAt"`
	TTL          int64  `dynamodbav:"TTL,omitempty"`
}

// ConnectionStore maps views to WebSocket connections
type ConnectionStore struct {
	client    API
	tableName string
	logger    *zap.Logger
	now       func() time.Time
}

// NewConnectionStore creates a new connection store
func NewConnectionStore(client API, tableName string, logger *zap.Logger) *ConnectionStore {
	return &ConnectionStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
		now:       time.Now,
	}
}

func viewKey(viewID string) string { return "VIEW#" + viewID }
func connKey(connID string) string { return "CONN#" + connID }

// Save attaches a connection to a view
func (s *ConnectionStore) Save(ctx context.Context, viewID, connectionID string) error {
	now := s.now()
	item, err := attributevalue.MarshalMap(ConnectionRecord{
		PK:           viewKey(viewID),
		SK:           connKey(connectionID),
		ViewID:       viewID,
		ConnectionID: connectionID,
		ConnectedAt:  now.UTC().Format(time.RFC3339),
		TTL:          now.Add(connectionTTL).Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal connection: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save connection: %w", err)
	}
	return nil
}

// Delete removes a connection from whichever view holds it
func (s *ConnectionStore) Delete(ctx context.Context, connectionID string) error {
	keyCond := expression.Key("ConnectionID").Equal(expression.Value(connectionID))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return fmt.Errorf("failed to build expression: %w", err)
	}

	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		IndexName:                 aws.String(ConnectionIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return fmt.Errorf("failed to find connection: %w", err)
	}

	var records []ConnectionRecord
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &records); err != nil {
		return fmt.Errorf("failed to unmarshal connections: %w", err)
	}

	for _, r := range records {
		_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(s.tableName),
			Key: map[string]types.AttributeValue{
				"PK": &types.AttributeValueMemberS{Value: r.PK},
				"SK": &types.AttributeValueMemberS{Value: r.SK},
			},
		})
		if err != nil {
			return fmt.Errorf("failed to delete connection: %w", err)
		}
	}

	s.logger.Debug("Connection removed",
		zap.String("connectionID", connectionID),
		zap.Int("views", len(records)),
	)
	return nil
}

// ListByView returns the connections attached to a view
func (s *ConnectionStore) ListByView(ctx context.Context, viewID string) ([]string, error) {
	keyCond := expression.Key("PK").Equal(expression.Value(viewKey(viewID))).
		And(expression.Key("SK").BeginsWith("CONN#"))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	var ids []string
	for {
		out, err := s.client.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to list connections: %w", err)
		}

		var records []ConnectionRecord
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &records); err != nil {
			return nil, fmt.Errorf("failed to unmarshal connections: %w", err)
		}
		for _, r := range records {
			ids = append(ids, r.ConnectionID)
		}

		if len(out.LastEvaluatedKey) == 0 {
			return ids, nil
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}
}
