package resilience

import (
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
		{"explicit", NewTransientError(errors.New("overloaded"), 503), true},
		{"wrapped explicit", fmt.Errorf("call: %w", NewTransientError(errors.New("rate limited"), 429)), true},
		{"plain", errors.New("invalid api key"), false},
		{"conn reset", fmt.Errorf("write tcp: %w", syscall.ECONNRESET), true},
		{"conn refused", fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED), true},
		{"dns timeout", &net.DNSError{IsTimeout: true, Err: "timeout"}, true},
		{"tls pattern", errors.New("net/http: TLS handshake timeout"), true},
		{"overloaded pattern", errors.New("529 Overloaded"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504, 529} {
		assert.True(t, IsTransientHTTPStatus(code), "HTTP %d", code)
	}
	for _, code := range []int{200, 400, 401, 403, 404, 422} {
		assert.False(t, IsTransientHTTPStatus(code), "HTTP %d", code)
	}
}

func TestFromStatus(t *testing.T) {
	base := errors.New("boom")

	err := FromStatus(base, 503)
	assert.True(t, IsTransient(err))
	assert.Equal(t, 503, StatusCode(err))
	assert.ErrorIs(t, err, base)

	err = FromStatus(base, 401)
	assert.Same(t, base, err)
	assert.Equal(t, 0, StatusCode(err))

	assert.NoError(t, FromStatus(nil, 500))
}

func TestTransientError_Message(t *testing.T) {
	te := NewTransientError(errors.New("something went wrong"), 503)
	assert.Equal(t, "something went wrong", te.Error())
}
