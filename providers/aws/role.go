package aws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/agentrig/agentrig/internal/provider"
	"github.com/agentrig/agentrig/internal/resource"
)

const executionPolicyName = "execution"

// RoleClient provisions the IAM execution role the endpoint assumes.
type RoleClient struct {
	iam *iam.Client
}

var _ provider.Client = (*RoleClient)(nil)

// Create builds the role with its trust and inline execution policies. If a
// role with this name already exists it is adopted as-is.
func (c *RoleClient) Create(ctx context.Context, key string, spec map[string]any) (*resource.Handle, error) {
	existing, err := c.iam.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(key)})
	if err == nil {
		return &resource.Handle{
			ID: key,
			Metadata: map[string]string{
				"arn":     aws.ToString(existing.Role.Arn),
				"adopted": "true",
			},
		}, nil
	}
	if !isNoSuchEntity(err) {
		return nil, classify(key, "create", err)
	}

	service := specString(spec, "service", "lambda.amazonaws.com")
	trust, err := json.Marshal(map[string]any{
		"Version": "2012-10-17",
		"Statement": []map[string]any{{
			"Effect":    "Allow",
			"Principal": map[string]any{"Service": service},
			"Action":    "sts:AssumeRole",
		}},
	})
	if err != nil {
		return nil, provider.Permanentf(key, "create", "failed to build trust policy: %v", err)
	}

	out, err := c.iam.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(key),
		AssumeRolePolicyDocument: aws.String(string(trust)),
		Tags: []iamtypes.Tag{
			{Key: aws.String("managed-by"), Value: aws.String("agentrig")},
		},
	})
	if err != nil {
		return nil, classify(key, "create", err)
	}

	policy, err := json.Marshal(map[string]any{
		"Version": "2012-10-17",
		"Statement": []map[string]any{{
			"Effect": "Allow",
			"Action": []string{
				"logs:CreateLogGroup",
				"logs:CreateLogStream",
				"logs:PutLogEvents",
			},
			"Resource": "*",
		}},
	})
	if err != nil {
		return nil, provider.Permanentf(key, "create", "failed to build execution policy: %v", err)
	}
	_, err = c.iam.PutRolePolicy(ctx, &iam.PutRolePolicyInput{
		RoleName:       aws.String(key),
		PolicyName:     aws.String(executionPolicyName),
		PolicyDocument: aws.String(string(policy)),
	})
	if err != nil {
		return nil, classify(key, "create", err)
	}

	return &resource.Handle{
		ID: key,
		Metadata: map[string]string{
			"arn": aws.ToString(out.Role.Arn),
		},
	}, nil
}

func (c *RoleClient) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.iam.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(key)})
	if err == nil {
		return true, nil
	}
	if isNoSuchEntity(err) {
		return false, nil
	}
	return false, classify(key, "exists", err)
}

// Delete detaches the inline policies first; IAM refuses to delete a role
// that still carries any.
func (c *RoleClient) Delete(ctx context.Context, key string) error {
	policies, err := c.iam.ListRolePolicies(ctx, &iam.ListRolePoliciesInput{RoleName: aws.String(key)})
	if err != nil {
		if isNoSuchEntity(err) {
			return nil
		}
		return classify(key, "delete", err)
	}
	for _, name := range policies.PolicyNames {
		_, err := c.iam.DeleteRolePolicy(ctx, &iam.DeleteRolePolicyInput{
			RoleName:   aws.String(key),
			PolicyName: aws.String(name),
		})
		if err != nil && !isNoSuchEntity(err) {
			return classify(key, "delete", fmt.Errorf("failed to delete inline policy %s: %w", name, err))
		}
	}

	_, err = c.iam.DeleteRole(ctx, &iam.DeleteRoleInput{RoleName: aws.String(key)})
	if err != nil && !isNoSuchEntity(err) {
		return classify(key, "delete", err)
	}
	return nil
}

func isNoSuchEntity(err error) bool {
	var nse *iamtypes.NoSuchEntityException
	return errors.As(err, &nse)
}
