// Package mem implements the adapter contract against an in-process map.
// It backs the engine tests: creates mint deterministic-but-unique ids, and
// call counts per operation let tests assert idempotency and crash-resume
// behavior.
package mem

import (
	"context"
	"fmt"
	"sync"

	"github.com/agentrig/agentrig/internal/provider"
	"github.com/agentrig/agentrig/internal/resource"
)

// Client is an in-memory resource adapter.
type Client struct {
	mu      sync.Mutex
	seq     int
	remote  map[string]*resource.Handle
	creates map[string]int
	deletes map[string]int
	ops     []string // "create:key" / "delete:key" in call order

	// FailCreate makes Create return the given error for a key, n times.
	failErr   map[string]error
	failCount map[string]int
}

func New() *Client {
	return &Client{
		remote:    make(map[string]*resource.Handle),
		creates:   make(map[string]int),
		deletes:   make(map[string]int),
		failErr:   make(map[string]error),
		failCount: make(map[string]int),
	}
}

// FailCreate arranges for the next n Create calls on key to fail with err.
func (c *Client) FailCreate(key string, err error, n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failErr[key] = err
	c.failCount[key] = n
}

// Create returns the existing handle when the key is already present,
// mirroring the adoption behavior real adapters implement.
func (c *Client) Create(ctx context.Context, key string, spec map[string]any) (*resource.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creates[key]++
	c.ops = append(c.ops, "create:"+key)

	if n := c.failCount[key]; n > 0 {
		c.failCount[key] = n - 1
		return nil, c.failErr[key]
	}

	if h, ok := c.remote[key]; ok {
		adopted := &resource.Handle{ID: h.ID, Metadata: map[string]string{"adopted": "true"}}
		for k, v := range h.Metadata {
			adopted.Metadata[k] = v
		}
		return adopted, nil
	}

	c.seq++
	h := &resource.Handle{
		ID:       fmt.Sprintf("mem-%s-%d", key, c.seq),
		Metadata: map[string]string{"arn": fmt.Sprintf("arn:mem:%s", key)},
	}
	c.remote[key] = h
	return h, nil
}

func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.remote[key]
	return ok, nil
}

// Delete is a no-op for absent keys.
func (c *Client) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes[key]++
	c.ops = append(c.ops, "delete:"+key)
	delete(c.remote, key)
	return nil
}

// Ops returns every create/delete call in invocation order.
func (c *Client) Ops() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.ops))
	copy(out, c.ops)
	return out
}

// CreateCalls reports how many times Create ran for key.
func (c *Client) CreateCalls(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creates[key]
}

// DeleteCalls reports how many times Delete ran for key.
func (c *Client) DeleteCalls(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deletes[key]
}

// Remove drops the remote counterpart without counting a delete, simulating
// an out-of-band deletion.
func (c *Client) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.remote, key)
}

// Live reports the number of remote resources currently present.
func (c *Client) Live() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.remote)
}

var _ provider.Client = (*Client)(nil)
