package source

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/korean"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testClient(attempts int) *Client {
	return NewClient(ClientConfig{
		Timeout:        2 * time.Second,
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}, testLogger())
}

func TestClientGet_RetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	body, err := testClient(3).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestClientGet_GivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := testClient(2).Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Contains(t, err.Error(), "unexpected status: 404")
}

func TestClientGet_DecodesEUCKR(t *testing.T) {
	encoded, err := korean.EUCKR.NewEncoder().Bytes([]byte("<p>공지사항</p>"))
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=euc-kr")
		_, _ = w.Write(encoded)
	}))
	defer srv.Close()

	body, err := testClient(1).Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "<p>공지사항</p>", string(body))
}

func TestCalculateBackoff(t *testing.T) {
	c := NewClient(ClientConfig{
		MaxAttempts:    5,
		InitialBackoff: time.Second,
		MaxBackoff:     3 * time.Second,
	}, testLogger())

	assert.Equal(t, time.Second, c.calculateBackoff(1))
	assert.Equal(t, 2*time.Second, c.calculateBackoff(2))
	assert.Equal(t, 3*time.Second, c.calculateBackoff(3))
}
