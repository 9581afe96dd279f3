package http_test

import (
	"context"
	"encoding/json"
	gohttp "net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	shophttp "github.com/shashiranjanraj/kashvi-shop/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostJSONSendsBodyAndHeaders(t *testing.T) {
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "order.placed", r.Header.Get("X-Shop-Event"))
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "o-1", body["order_id"])
		w.WriteHeader(gohttp.StatusAccepted)
	}))
	defer srv.Close()

	resp, err := shophttp.NewClient().PostJSON(context.Background(), srv.URL,
		map[string]string{"order_id": "o-1"}, map[string]string{"X-Shop-Event": "order.placed"})
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.NoError(t, resp.Throw())
}

func TestPostJSONRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		if calls.Add(1) < 3 {
			gohttp.Error(w, "busy", gohttp.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(gohttp.StatusOK)
	}))
	defer srv.Close()

	c := shophttp.NewClient(shophttp.WithRetry(3, time.Millisecond))
	resp, err := c.PostJSON(context.Background(), srv.URL, struct{}{}, nil)
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Equal(t, int32(3), calls.Load())
}

func TestPostJSONDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		calls.Add(1)
		gohttp.Error(w, "nope", gohttp.StatusUnauthorized)
	}))
	defer srv.Close()

	c := shophttp.NewClient(shophttp.WithRetry(3, time.Millisecond))
	resp, err := c.PostJSON(context.Background(), srv.URL, struct{}{}, nil)
	require.NoError(t, err)
	assert.Error(t, resp.Throw())
	assert.Equal(t, int32(1), calls.Load())
}

func TestPostJSONTransportFailure(t *testing.T) {
	srv := httptest.NewServer(gohttp.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := shophttp.NewClient(shophttp.WithRetry(2, time.Millisecond), shophttp.WithTimeout(time.Second))
	_, err := c.PostJSON(context.Background(), url, struct{}{}, nil)
	assert.ErrorContains(t, err, "2 attempts failed")
}
