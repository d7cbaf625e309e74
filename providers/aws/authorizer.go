package aws

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	cognitotypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"

	"github.com/agentrig/agentrig/internal/provider"
	"github.com/agentrig/agentrig/internal/resource"
)

// AuthorizerClient provisions the Cognito machine-to-machine OAuth setup:
// a user pool, a hosted domain, a resource server with one scope, and an
// app client with the client-credentials flow. The captured metadata
// (issuer, token endpoint, client id/secret, scope) is everything a caller
// needs for a client-credentials token request.
type AuthorizerClient struct {
	cognito *cognitoidentityprovider.Client
	region  string
}

var _ provider.Client = (*AuthorizerClient)(nil)

func (c *AuthorizerClient) Create(ctx context.Context, key string, spec map[string]any) (*resource.Handle, error) {
	scope := specString(spec, "scope", "invoke")

	poolID, err := c.findPool(ctx, key)
	if err != nil {
		return nil, classify(key, "create", err)
	}
	if poolID != "" {
		h, err := c.describe(ctx, key, poolID, scope)
		if err != nil {
			return nil, err
		}
		h.Metadata["adopted"] = "true"
		return h, nil
	}

	pool, err := c.cognito.CreateUserPool(ctx, &cognitoidentityprovider.CreateUserPoolInput{
		PoolName: aws.String(key),
	})
	if err != nil {
		return nil, classify(key, "create", err)
	}
	poolID = aws.ToString(pool.UserPool.Id)

	_, err = c.cognito.CreateUserPoolDomain(ctx, &cognitoidentityprovider.CreateUserPoolDomainInput{
		Domain:     aws.String(key),
		UserPoolId: aws.String(poolID),
	})
	if err != nil {
		return nil, classify(key, "create", err)
	}

	_, err = c.cognito.CreateResourceServer(ctx, &cognitoidentityprovider.CreateResourceServerInput{
		UserPoolId: aws.String(poolID),
		Identifier: aws.String(key),
		Name:       aws.String(key),
		Scopes: []cognitotypes.ResourceServerScopeType{
			{
				ScopeName:        aws.String(scope),
				ScopeDescription: aws.String("invoke the protected endpoint"),
			},
		},
	})
	if err != nil {
		return nil, classify(key, "create", err)
	}

	client, err := c.cognito.CreateUserPoolClient(ctx, &cognitoidentityprovider.CreateUserPoolClientInput{
		UserPoolId:                      aws.String(poolID),
		ClientName:                      aws.String(key),
		GenerateSecret:                  true,
		AllowedOAuthFlowsUserPoolClient: true,
		AllowedOAuthFlows:               []cognitotypes.OAuthFlowType{cognitotypes.OAuthFlowTypeClientCredentials},
		AllowedOAuthScopes:              []string{fmt.Sprintf("%s/%s", key, scope)},
	})
	if err != nil {
		return nil, classify(key, "create", err)
	}

	return &resource.Handle{
		ID: poolID,
		Metadata: map[string]string{
			"poolId":        poolID,
			"clientId":      aws.ToString(client.UserPoolClient.ClientId),
			"clientSecret":  aws.ToString(client.UserPoolClient.ClientSecret),
			"issuer":        c.issuerURL(poolID),
			"tokenEndpoint": c.tokenEndpoint(key),
			"scope":         fmt.Sprintf("%s/%s", key, scope),
			"domain":        key,
		},
	}, nil
}

func (c *AuthorizerClient) Exists(ctx context.Context, key string) (bool, error) {
	poolID, err := c.findPool(ctx, key)
	if err != nil {
		return false, classify(key, "exists", err)
	}
	return poolID != "", nil
}

func (c *AuthorizerClient) Delete(ctx context.Context, key string) error {
	poolID, err := c.findPool(ctx, key)
	if err != nil {
		return classify(key, "delete", err)
	}
	if poolID == "" {
		return nil
	}

	// The hosted domain blocks pool deletion while it exists.
	_, err = c.cognito.DeleteUserPoolDomain(ctx, &cognitoidentityprovider.DeleteUserPoolDomainInput{
		Domain:     aws.String(key),
		UserPoolId: aws.String(poolID),
	})
	if err != nil && !isCognitoNotFound(err) {
		return classify(key, "delete", err)
	}

	_, err = c.cognito.DeleteUserPool(ctx, &cognitoidentityprovider.DeleteUserPoolInput{
		UserPoolId: aws.String(poolID),
	})
	if err != nil && !isCognitoNotFound(err) {
		return classify(key, "delete", err)
	}
	return nil
}

// findPool resolves a pool id by pool name, or "" if absent. Pool names are
// not unique in Cognito, but the deterministic keys this tool mints are.
func (c *AuthorizerClient) findPool(ctx context.Context, name string) (string, error) {
	var next *string
	for {
		out, err := c.cognito.ListUserPools(ctx, &cognitoidentityprovider.ListUserPoolsInput{
			MaxResults: aws.Int32(60),
			NextToken:  next,
		})
		if err != nil {
			return "", err
		}
		for _, pool := range out.UserPools {
			if aws.ToString(pool.Name) == name {
				return aws.ToString(pool.Id), nil
			}
		}
		if out.NextToken == nil {
			return "", nil
		}
		next = out.NextToken
	}
}

// describe rebuilds the handle for an adopted pool from the live resources.
// The client secret is re-read from the app client, so adoption after a lost
// state file still yields a usable credential.
func (c *AuthorizerClient) describe(ctx context.Context, key, poolID, scope string) (*resource.Handle, error) {
	clients, err := c.cognito.ListUserPoolClients(ctx, &cognitoidentityprovider.ListUserPoolClientsInput{
		UserPoolId: aws.String(poolID),
		MaxResults: aws.Int32(1),
	})
	if err != nil {
		return nil, classify(key, "create", err)
	}
	if len(clients.UserPoolClients) == 0 {
		return nil, provider.Permanentf(key, "create", "user pool %s exists but has no app client; delete it or force recreation", poolID)
	}

	desc, err := c.cognito.DescribeUserPoolClient(ctx, &cognitoidentityprovider.DescribeUserPoolClientInput{
		UserPoolId: aws.String(poolID),
		ClientId:   clients.UserPoolClients[0].ClientId,
	})
	if err != nil {
		return nil, classify(key, "create", err)
	}

	return &resource.Handle{
		ID: poolID,
		Metadata: map[string]string{
			"poolId":        poolID,
			"clientId":      aws.ToString(desc.UserPoolClient.ClientId),
			"clientSecret":  aws.ToString(desc.UserPoolClient.ClientSecret),
			"issuer":        c.issuerURL(poolID),
			"tokenEndpoint": c.tokenEndpoint(key),
			"scope":         fmt.Sprintf("%s/%s", key, scope),
			"domain":        key,
		},
	}, nil
}

func (c *AuthorizerClient) issuerURL(poolID string) string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", c.region, poolID)
}

func (c *AuthorizerClient) tokenEndpoint(domain string) string {
	return fmt.Sprintf("https://%s.auth.%s.amazoncognito.com/oauth2/token", domain, c.region)
}

func isCognitoNotFound(err error) bool {
	var nf *cognitotypes.ResourceNotFoundException
	return errors.As(err, &nf)
}
