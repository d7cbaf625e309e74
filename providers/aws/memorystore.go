package aws

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamotypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/agentrig/agentrig/internal/provider"
	"github.com/agentrig/agentrig/internal/resource"
)

// tableReadyTimeout bounds the wait for a new table to become ACTIVE.
const tableReadyTimeout = 5 * time.Minute

// MemoryStoreClient provisions the DynamoDB table backing the agent's
// long-lived memory: actor-keyed items with a session sort key and optional
// TTL expiry.
type MemoryStoreClient struct {
	dynamo *dynamodb.Client
}

var _ provider.Client = (*MemoryStoreClient)(nil)

func (c *MemoryStoreClient) Create(ctx context.Context, key string, spec map[string]any) (*resource.Handle, error) {
	desc, err := c.dynamo.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(key)})
	if err == nil {
		if err := c.waitReady(ctx, key); err != nil {
			return nil, err
		}
		return &resource.Handle{
			ID: key,
			Metadata: map[string]string{
				"arn":     aws.ToString(desc.Table.TableArn),
				"adopted": "true",
			},
		}, nil
	}
	if !isDynamoNotFound(err) {
		return nil, classify(key, "create", err)
	}

	out, err := c.dynamo.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(key),
		AttributeDefinitions: []dynamotypes.AttributeDefinition{
			{AttributeName: aws.String("actorId"), AttributeType: dynamotypes.ScalarAttributeTypeS},
			{AttributeName: aws.String("sessionId"), AttributeType: dynamotypes.ScalarAttributeTypeS},
		},
		KeySchema: []dynamotypes.KeySchemaElement{
			{AttributeName: aws.String("actorId"), KeyType: dynamotypes.KeyTypeHash},
			{AttributeName: aws.String("sessionId"), KeyType: dynamotypes.KeyTypeRange},
		},
		BillingMode: dynamotypes.BillingModePayPerRequest,
		Tags: []dynamotypes.Tag{
			{Key: aws.String("managed-by"), Value: aws.String("agentrig")},
		},
	})
	if err != nil {
		return nil, classify(key, "create", err)
	}

	if err := c.waitReady(ctx, key); err != nil {
		return nil, err
	}

	if ttl, ok := spec["ttlDays"]; ok && ttl != nil {
		_, err = c.dynamo.UpdateTimeToLive(ctx, &dynamodb.UpdateTimeToLiveInput{
			TableName: aws.String(key),
			TimeToLiveSpecification: &dynamotypes.TimeToLiveSpecification{
				AttributeName: aws.String("expiresAt"),
				Enabled:       aws.Bool(true),
			},
		})
		if err != nil {
			return nil, classify(key, "create", err)
		}
	}

	return &resource.Handle{
		ID: key,
		Metadata: map[string]string{
			"arn": aws.ToString(out.TableDescription.TableArn),
		},
	}, nil
}

func (c *MemoryStoreClient) waitReady(ctx context.Context, key string) error {
	waiter := dynamodb.NewTableExistsWaiter(c.dynamo)
	err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(key)}, tableReadyTimeout)
	if err != nil {
		return provider.Transientf(key, "create", "table did not become active: %v", err)
	}
	return nil
}

func (c *MemoryStoreClient) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.dynamo.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(key)})
	if err == nil {
		return true, nil
	}
	if isDynamoNotFound(err) {
		return false, nil
	}
	return false, classify(key, "exists", err)
}

func (c *MemoryStoreClient) Delete(ctx context.Context, key string) error {
	_, err := c.dynamo.DeleteTable(ctx, &dynamodb.DeleteTableInput{TableName: aws.String(key)})
	if err != nil && !isDynamoNotFound(err) {
		return classify(key, "delete", err)
	}
	return nil
}

func isDynamoNotFound(err error) bool {
	var nf *dynamotypes.ResourceNotFoundException
	return errors.As(err, &nf)
}
