package aws

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/agentrig/agentrig/internal/provider"
	"github.com/agentrig/agentrig/internal/resource"
)

// EndpointClient provisions the Lambda function that hosts the agent's
// protected execution endpoint. The function body is an external
// collaborator: the spec may point at a prebuilt zip (codeFile); without one
// a placeholder package is uploaded so the surrounding wiring can be
// provisioned and verified first.
type EndpointClient struct {
	lambda *lambda.Client
}

var _ provider.Client = (*EndpointClient)(nil)

func (c *EndpointClient) Create(ctx context.Context, key string, spec map[string]any) (*resource.Handle, error) {
	existing, err := c.lambda.GetFunction(ctx, &lambda.GetFunctionInput{FunctionName: aws.String(key)})
	if err == nil {
		return &resource.Handle{
			ID: key,
			Metadata: map[string]string{
				"arn":     aws.ToString(existing.Configuration.FunctionArn),
				"adopted": "true",
			},
		}, nil
	}
	if !isLambdaNotFound(err) {
		return nil, classify(key, "create", err)
	}

	roleArn := specString(spec, "roleArn", "")
	if roleArn == "" {
		return nil, provider.Permanentf(key, "create", "spec is missing roleArn")
	}

	code, err := c.codePackage(spec)
	if err != nil {
		return nil, provider.Permanentf(key, "create", "failed to load code package: %v", err)
	}

	out, err := c.lambda.CreateFunction(ctx, &lambda.CreateFunctionInput{
		FunctionName: aws.String(key),
		Role:         aws.String(roleArn),
		Runtime:      lambdatypes.Runtime(specString(spec, "runtime", "provided.al2023")),
		Handler:      aws.String(specString(spec, "handler", "bootstrap")),
		Code:         &lambdatypes.FunctionCode{ZipFile: code},
		Tags:         map[string]string{"managed-by": "agentrig"},
	})
	if err != nil {
		// A fresh role takes a few seconds to become assumable; classify
		// knows the resulting error code is retryable.
		return nil, classify(key, "create", err)
	}

	return &resource.Handle{
		ID: key,
		Metadata: map[string]string{
			"arn": aws.ToString(out.FunctionArn),
		},
	}, nil
}

func (c *EndpointClient) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.lambda.GetFunction(ctx, &lambda.GetFunctionInput{FunctionName: aws.String(key)})
	if err == nil {
		return true, nil
	}
	if isLambdaNotFound(err) {
		return false, nil
	}
	return false, classify(key, "exists", err)
}

func (c *EndpointClient) Delete(ctx context.Context, key string) error {
	_, err := c.lambda.DeleteFunction(ctx, &lambda.DeleteFunctionInput{FunctionName: aws.String(key)})
	if err != nil && !isLambdaNotFound(err) {
		return classify(key, "delete", err)
	}
	return nil
}

func (c *EndpointClient) codePackage(spec map[string]any) ([]byte, error) {
	if path := specString(spec, "codeFile", ""); path != "" {
		return os.ReadFile(path)
	}
	return placeholderZip()
}

// placeholderZip builds a minimal deployment package in memory: a bootstrap
// that exits cleanly, enough for the function to be created and replaced by
// a real build later.
func placeholderZip() ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("bootstrap")
	if err != nil {
		return nil, err
	}
	if _, err := f.Write([]byte("#!/bin/sh\nexit 0\n")); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func isLambdaNotFound(err error) bool {
	var nf *lambdatypes.ResourceNotFoundException
	return errors.As(err, &nf)
}
