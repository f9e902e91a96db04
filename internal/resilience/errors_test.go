package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"explicit", NewTransientError(errors.New("server overloaded"), 503), true},
		{"wrapped", fmt.Errorf("download: %w", NewTransientError(errors.New("rate limited"), 429)), true},
		{"regular", errors.New("invalid input"), false},
		{"connection reset", fmt.Errorf("write tcp: %w", syscall.ECONNRESET), true},
		{"connection refused", fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED), true},
		{"dns timeout", &net.DNSError{IsTimeout: true, Err: "timeout"}, true},
		{"broken pipe text", errors.New("write: broken pipe"), true},
		{"tls text", errors.New("net/http: TLS handshake timeout"), true},
		{"timed out errno", fmt.Errorf("read tcp: %w", syscall.ETIMEDOUT), true},
		{"truncated body", errors.New("fetcher: read body: unexpected EOF"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "HTTP %d", code)
	}
	for _, code := range []int{200, 301, 400, 401, 403, 404, 410} {
		assert.False(t, IsTransientHTTPStatus(code), "HTTP %d", code)
	}
}

func TestTransientError(t *testing.T) {
	inner := errors.New("root cause")
	te := NewTransientError(inner, 500)

	assert.ErrorIs(t, te, inner)
	assert.Equal(t, 500, te.StatusCode)
	assert.Equal(t, "root cause", te.Error())
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, ClassTransient, ClassifyError(NewTransientError(errors.New("x"), 503)))
	assert.Equal(t, ClassPermanent, ClassifyError(errors.New("http 404")))
	assert.Equal(t, ClassCancelled, ClassifyError(fmt.Errorf("download: %w", context.Canceled)))
	assert.Equal(t, ClassCancelled, ClassifyError(context.DeadlineExceeded))
	assert.Equal(t, ErrorClass(""), ClassifyError(nil))
}
