package autoria

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		APIKey:    "key-1",
		BaseURL:   srv.URL + "/",
		RetryWait: time.Millisecond,
		Location:  time.UTC,
	}, zap.NewNop())
}

func TestGetAdInfo(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auto/info", r.URL.Path)
		assert.Equal(t, "key-1", r.URL.Query().Get("api_key"))
		assert.Equal(t, "35123456", r.URL.Query().Get("auto_id"))
		io.WriteString(w, `{
			"autoId": 35123456,
			"title": "BMW X5 2018",
			"linkToView": "/uk/auto_bmw_x5_35123456.html",
			"expireDate": "2025-06-02 14:30:00",
			"USD": 27500,
			"stateData": {"statusId": 1, "status": "active"}
		}`)
	})

	info, err := c.GetAdInfo(context.Background(), 35123456)
	require.NoError(t, err)

	assert.Equal(t, int64(35123456), info.AutoID)
	assert.Equal(t, "BMW X5 2018", info.Title)
	assert.Equal(t, "https://auto.ria.com/uk/auto_bmw_x5_35123456.html", info.Link)
	assert.Equal(t, time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC), info.ExpireAt)
	assert.Equal(t, int64(27500), info.PriceUSD)
	assert.True(t, info.Active())
}

func TestGetAdInfo_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := c.GetAdInfo(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetAdInfo_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, `{"autoId": 7, "expireDate": "2025-06-02 00:00:00", "stateData": {"statusId": 0}}`)
	})

	info, err := c.GetAdInfo(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.False(t, info.Active())
}

func TestGetAdInfo_RateLimitExhausted(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.GetAdInfo(context.Background(), 7)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetAdInfo_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, "upstream down")
	})

	_, err := c.GetAdInfo(context.Background(), 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API error 500: upstream down")
}

func TestGetAdInfo_BadExpireDate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"autoId": 7, "expireDate": "02.06.2025"}`)
	})

	_, err := c.GetAdInfo(context.Background(), 7)
	assert.ErrorContains(t, err, "invalid expireDate")
}

func TestGetAdInfo_ContextCancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()
	c := NewClient(Config{BaseURL: srv.URL, RetryWait: time.Hour}, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.GetAdInfo(ctx, 7)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGetAdInfo_TransportErrorHidesAPIKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := NewClient(Config{APIKey: "SECRETKEY", BaseURL: srv.URL}, zap.NewNop())

	_, err := c.GetAdInfo(context.Background(), 42)
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRETKEY")
	assert.NotContains(t, err.Error(), "api_key")
	assert.Contains(t, err.Error(), "/auto/info")
}

func TestFullLink(t *testing.T) {
	assert.Equal(t, "https://auto.ria.com/uk/auto_1.html", FullLink("/uk/auto_1.html"))
	assert.Equal(t, "https://auto.ria.com/uk/auto_1.html", FullLink("uk/auto_1.html"))
	assert.Equal(t, "https://auto.ria.com/uk/auto_1.html", FullLink("https://auto.ria.com/uk/auto_1.html"))
	assert.Equal(t, "", FullLink(""))
}
