package aws

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"

	"github.com/agentrig/agentrig/internal/provider"
)

// Error codes the SDK surfaces for throttling, server trouble and
// eventual-consistency lag. All of these deserve a retry.
var transientCodes = map[string]bool{
	"Throttling":                      true,
	"ThrottlingException":             true,
	"TooManyRequestsException":        true,
	"RequestLimitExceeded":            true,
	"ServiceUnavailable":              true,
	"ServiceUnavailableException":     true,
	"InternalFailure":                 true,
	"InternalError":                   true,
	"InternalServerError":             true,
	"RequestTimeout":                  true,
	"RequestTimeoutException":         true,
	"ConcurrentModificationException": true,
	"ResourceInUseException":          true,
	// IAM role propagation: a just-created role cannot be assumed for a
	// few seconds, and dependent creates report it as a parameter error.
	"InvalidParameterValueException": true,
}

// classify wraps an AWS SDK error with the resource key, the attempted
// operation and a transient/permanent classification.
func classify(key, op string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		kind := provider.KindPermanent
		if transientCodes[apiErr.ErrorCode()] {
			kind = provider.KindTransient
		}
		return provider.Wrap(kind, key, op, err)
	}

	// Raw transport errors carry no code; fall back to message matching.
	if isTransientMessage(err.Error()) {
		return provider.Wrap(provider.KindTransient, key, op, err)
	}
	return provider.Wrap(provider.KindPermanent, key, op, err)
}

func isTransientMessage(msg string) bool {
	msg = strings.ToLower(msg)
	patterns := []string{
		"throttl",
		"rate exceed",
		"too many requests",
		"request limit",
		"service unavailable",
		"internal server error",
		"connection reset",
		"connection refused",
		"timeout",
		"tls handshake",
		"i/o timeout",
		"temporary failure",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
