// Package provider defines the uniform contract every resource adapter
// implements and the registry the engine dispatches through.
package provider

import (
	"context"

	"github.com/agentrig/agentrig/internal/resource"
)

// Client is the uniform adapter contract, regardless of backing resource.
//
// Create must be idempotent: invoked for a key whose remote counterpart
// already exists, it adopts and returns the existing handle instead of
// erroring or duplicating. Delete must be a no-op for an absent key.
// Each concrete adapter is the only place that knows one management API's
// request/response shape; the engine only ever sees a Handle or a
// classified *Error.
type Client interface {
	Create(ctx context.Context, key string, spec map[string]any) (*resource.Handle, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}
