package engine

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrTimeout marks a probe whose call did not finish within the configured
// timeout. Its text is the error detail recorded for the probe.
var ErrTimeout = errors.New("timeout")

// TransportError is any other failure to complete the HTTP exchange:
// connection refused, DNS, TLS, a cancelled run.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// classify maps a client or body-read error onto the probe error taxonomy.
// ctx is the per-request context.
func classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return ErrTimeout
	}
	return &TransportError{Err: err}
}
