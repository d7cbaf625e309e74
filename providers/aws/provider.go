// Package aws implements the resource adapters against the AWS management
// APIs: IAM for roles, Cognito for the OAuth authorizer, Lambda for the
// execution endpoint, API Gateway v2 for the gateway and DynamoDB for the
// memory store. Each adapter is the only place that knows its API's
// request/response shape.
package aws

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/apigatewayv2"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/lambda"

	"github.com/agentrig/agentrig/internal/provider"
	"github.com/agentrig/agentrig/internal/resource"
)

// Provider bundles the service clients and hands out one adapter per
// resource type.
type Provider struct {
	region  string
	iam     *iam.Client
	cognito *cognitoidentityprovider.Client
	lambda  *lambda.Client
	apigw   *apigatewayv2.Client
	dynamo  *dynamodb.Client
}

// New loads the default AWS configuration chain and builds the service
// clients. An empty region defers to the environment/profile.
func New(ctx context.Context, region string) (*Provider, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return &Provider{
		region:  cfg.Region,
		iam:     iam.NewFromConfig(cfg),
		cognito: cognitoidentityprovider.NewFromConfig(cfg),
		lambda:  lambda.NewFromConfig(cfg),
		apigw:   apigatewayv2.NewFromConfig(cfg),
		dynamo:  dynamodb.NewFromConfig(cfg),
	}, nil
}

// Register installs an adapter for every supported resource type.
func (p *Provider) Register(reg *provider.Registry) {
	reg.Register(resource.TypeRole, &RoleClient{iam: p.iam})
	reg.Register(resource.TypeAuthorizer, &AuthorizerClient{cognito: p.cognito, region: p.region})
	reg.Register(resource.TypeEndpoint, &EndpointClient{lambda: p.lambda})
	reg.Register(resource.TypeGateway, &GatewayClient{apigw: p.apigw, lambda: p.lambda})
	reg.Register(resource.TypeMemoryStore, &MemoryStoreClient{dynamo: p.dynamo})
}

// specString reads a string field from an opaque spec blob.
func specString(spec map[string]any, field, fallback string) string {
	if v, ok := spec[field].(string); ok && v != "" {
		return v
	}
	return fallback
}
