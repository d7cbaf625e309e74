package agent

import (
	"context"
	"errors"
)

// Session is a remote conversational session: acquired, used, released.
type Session interface {
	ID() string
	Close(ctx context.Context) error
}

// Starter acquires a session against the remote endpoint.
type Starter interface {
	Start(ctx context.Context) (Session, error)
}

// WithSession runs fn inside a session scope: the session is acquired, fn
// runs, and the session is released on every exit path, including when fn
// fails. A release failure is joined onto fn's error rather than masking it.
func WithSession(ctx context.Context, starter Starter, fn func(ctx context.Context, s Session) error) (err error) {
	s, err := starter.Start(ctx)
	if err != nil {
		return err
	}
	defer func() {
		// Release must run even when ctx is already cancelled.
		closeErr := s.Close(context.WithoutCancel(ctx))
		err = errors.Join(err, closeErr)
	}()
	return fn(ctx, s)
}
