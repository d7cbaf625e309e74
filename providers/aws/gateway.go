package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewayv2"
	apigwtypes "github.com/aws/aws-sdk-go-v2/service/apigatewayv2/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/agentrig/agentrig/internal/provider"
	"github.com/agentrig/agentrig/internal/resource"
)

// invokeRouteKey is the single protected route the gateway exposes.
const invokeRouteKey = "POST /invoke"

// GatewayClient provisions the HTTP API in front of the endpoint: the API
// itself, a JWT authorizer bound to the Cognito issuer, the Lambda proxy
// integration, the protected route and the auto-deployed default stage.
type GatewayClient struct {
	apigw  *apigatewayv2.Client
	lambda *lambda.Client
}

var _ provider.Client = (*GatewayClient)(nil)

func (c *GatewayClient) Create(ctx context.Context, key string, spec map[string]any) (*resource.Handle, error) {
	if apiID, endpoint, err := c.findAPI(ctx, key); err != nil {
		return nil, classify(key, "create", err)
	} else if apiID != "" {
		return &resource.Handle{
			ID: apiID,
			Metadata: map[string]string{
				"endpoint":  endpoint,
				"invokeUrl": endpoint + "/invoke",
				"adopted":   "true",
			},
		}, nil
	}

	functionArn := specString(spec, "functionArn", "")
	issuer := specString(spec, "issuer", "")
	audience := specString(spec, "audience", "")
	if functionArn == "" || issuer == "" || audience == "" {
		return nil, provider.Permanentf(key, "create", "spec requires functionArn, issuer and audience")
	}

	api, err := c.apigw.CreateApi(ctx, &apigatewayv2.CreateApiInput{
		Name:         aws.String(key),
		ProtocolType: apigwtypes.ProtocolTypeHttp,
	})
	if err != nil {
		return nil, classify(key, "create", err)
	}
	apiID := aws.ToString(api.ApiId)
	endpoint := aws.ToString(api.ApiEndpoint)

	authorizer, err := c.apigw.CreateAuthorizer(ctx, &apigatewayv2.CreateAuthorizerInput{
		ApiId:          aws.String(apiID),
		Name:           aws.String(key),
		AuthorizerType: apigwtypes.AuthorizerTypeJwt,
		IdentitySource: []string{"$request.header.Authorization"},
		JwtConfiguration: &apigwtypes.JWTConfiguration{
			Issuer:   aws.String(issuer),
			Audience: []string{audience},
		},
	})
	if err != nil {
		return nil, classify(key, "create", err)
	}

	integration, err := c.apigw.CreateIntegration(ctx, &apigatewayv2.CreateIntegrationInput{
		ApiId:                aws.String(apiID),
		IntegrationType:      apigwtypes.IntegrationTypeAwsProxy,
		IntegrationUri:       aws.String(functionArn),
		PayloadFormatVersion: aws.String("2.0"),
	})
	if err != nil {
		return nil, classify(key, "create", err)
	}

	_, err = c.apigw.CreateRoute(ctx, &apigatewayv2.CreateRouteInput{
		ApiId:             aws.String(apiID),
		RouteKey:          aws.String(invokeRouteKey),
		Target:            aws.String("integrations/" + aws.ToString(integration.IntegrationId)),
		AuthorizationType: apigwtypes.AuthorizationTypeJwt,
		AuthorizerId:      authorizer.AuthorizerId,
	})
	if err != nil {
		return nil, classify(key, "create", err)
	}

	_, err = c.apigw.CreateStage(ctx, &apigatewayv2.CreateStageInput{
		ApiId:      aws.String(apiID),
		StageName:  aws.String("$default"),
		AutoDeploy: aws.Bool(true),
	})
	if err != nil {
		return nil, classify(key, "create", err)
	}

	if err := c.allowInvoke(ctx, key, functionArn); err != nil {
		return nil, err
	}

	return &resource.Handle{
		ID: apiID,
		Metadata: map[string]string{
			"endpoint":     endpoint,
			"invokeUrl":    endpoint + "/invoke",
			"authorizerId": aws.ToString(authorizer.AuthorizerId),
		},
	}, nil
}

// allowInvoke grants the API permission to call the backing function.
// Re-granting on a later run is tolerated.
func (c *GatewayClient) allowInvoke(ctx context.Context, key, functionArn string) error {
	_, err := c.lambda.AddPermission(ctx, &lambda.AddPermissionInput{
		FunctionName: aws.String(functionArn),
		StatementId:  aws.String(key),
		Action:       aws.String("lambda:InvokeFunction"),
		Principal:    aws.String("apigateway.amazonaws.com"),
	})
	var conflict *lambdatypes.ResourceConflictException
	if err != nil && !errors.As(err, &conflict) {
		return classify(key, "create", fmt.Errorf("failed to grant invoke permission: %w", err))
	}
	return nil
}

func (c *GatewayClient) Exists(ctx context.Context, key string) (bool, error) {
	apiID, _, err := c.findAPI(ctx, key)
	if err != nil {
		return false, classify(key, "exists", err)
	}
	return apiID != "", nil
}

// Delete removes the API; authorizers, routes, integrations and stages go
// with it.
func (c *GatewayClient) Delete(ctx context.Context, key string) error {
	apiID, _, err := c.findAPI(ctx, key)
	if err != nil {
		return classify(key, "delete", err)
	}
	if apiID == "" {
		return nil
	}
	_, err = c.apigw.DeleteApi(ctx, &apigatewayv2.DeleteApiInput{ApiId: aws.String(apiID)})
	if err != nil && !isAPIGWNotFound(err) {
		return classify(key, "delete", err)
	}
	return nil
}

// findAPI resolves an API id by name, or "" if absent.
func (c *GatewayClient) findAPI(ctx context.Context, name string) (apiID, endpoint string, err error) {
	var next *string
	for {
		out, err := c.apigw.GetApis(ctx, &apigatewayv2.GetApisInput{
			MaxResults: aws.String("100"),
			NextToken:  next,
		})
		if err != nil {
			return "", "", err
		}
		for _, item := range out.Items {
			if aws.ToString(item.Name) == name {
				return aws.ToString(item.ApiId), aws.ToString(item.ApiEndpoint), nil
			}
		}
		if out.NextToken == nil {
			return "", "", nil
		}
		next = out.NextToken
	}
}

func isAPIGWNotFound(err error) bool {
	var nf *apigwtypes.NotFoundException
	return errors.As(err, &nf)
}
