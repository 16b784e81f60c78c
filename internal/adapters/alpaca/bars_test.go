package alpaca_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/revertbot/internal/adapters/alpaca"
	"github.com/alejandrodnm/revertbot/internal/domain"
)

var (
	start = time.Date(2025, 6, 2, 13, 30, 0, 0, time.UTC)
	end   = time.Date(2025, 6, 3, 20, 0, 0, 0, time.UTC)
)

func newTestClient(srv *httptest.Server) *alpaca.Client {
	return alpaca.NewClient(srv.URL, "key-id", "secret", "",
		alpaca.WithRetryWait(time.Millisecond),
		alpaca.WithRateLimit(1000, 10),
	)
}

func request() domain.BarRequest {
	return domain.BarRequest{Symbols: []string{"SPY", "QQQ"}, Start: start, End: end, Timeframe: domain.TimeframeMinute}
}

func TestFetchBars_Paginates(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/stocks/bars", r.URL.Path)
		assert.Equal(t, "key-id", r.Header.Get("APCA-API-KEY-ID"))
		assert.Equal(t, "secret", r.Header.Get("APCA-API-SECRET-KEY"))
		q := r.URL.Query()
		assert.Equal(t, "SPY,QQQ", q.Get("symbols"))
		assert.Equal(t, "1Min", q.Get("timeframe"))
		assert.Equal(t, "iex", q.Get("feed"))
		assert.Equal(t, "2025-06-02T13:30:00Z", q.Get("start"))

		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			assert.Empty(t, q.Get("page_token"))
			w.Write([]byte(`{
				"bars": {
					"SPY": [{"t":"2025-06-02T13:31:00Z","o":1,"h":2,"l":0.5,"c":1.5,"v":100}],
					"QQQ": [{"t":"2025-06-02T13:30:00Z","o":3,"h":3,"l":3,"c":3,"v":10}]
				},
				"next_page_token": "abc"
			}`))
			return
		}
		assert.Equal(t, "abc", q.Get("page_token"))
		w.Write([]byte(`{
			"bars": {"SPY": [{"t":"2025-06-02T13:30:00Z","o":1,"h":1,"l":1,"c":1,"v":50}]},
			"next_page_token": null
		}`))
	}))
	defer srv.Close()

	bars, err := newTestClient(srv).FetchBars(context.Background(), request())
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Equal(t, int32(2), calls.Load())

	assert.Equal(t, "QQQ", bars[0].Symbol)
	assert.Equal(t, "SPY", bars[1].Symbol)
	assert.Equal(t, 1.0, bars[1].Close, "SPY bars sorted by timestamp across pages")
	assert.Equal(t, 1.5, bars[2].Close)
	assert.Equal(t, 100.0, bars[2].Volume)
}

func TestFetchBars_RetriesServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"bars": map[string]any{}})
	}))
	defer srv.Close()

	bars, err := newTestClient(srv).FetchBars(context.Background(), request())
	require.NoError(t, err)
	assert.Empty(t, bars)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchBars_ServerErrorExhaustsRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchBars(context.Background(), request())
	assert.ErrorContains(t, err, "server error 500")
}

func TestFetchBars_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"forbidden"}`))
	}))
	defer srv.Close()

	_, err := newTestClient(srv).FetchBars(context.Background(), request())
	assert.ErrorContains(t, err, "client error 403")
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchBars_NoSymbols(t *testing.T) {
	c := alpaca.NewClient("http://127.0.0.1:0", "", "", "")
	_, err := c.FetchBars(context.Background(), domain.BarRequest{})
	assert.Error(t, err)
}

func TestFetchBars_PageLimitIsAnError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"bars": {"SPY": [{"t":"2025-06-02T13:30:00Z","o":1,"h":1,"l":1,"c":1,"v":1}]},
			"next_page_token": "again"
		}`))
	}))
	defer srv.Close()

	c := alpaca.NewClient(srv.URL, "key-id", "secret", "",
		alpaca.WithRetryWait(time.Millisecond),
		alpaca.WithRateLimit(1000, 10),
		alpaca.WithMaxPages(3),
	)
	bars, err := c.FetchBars(context.Background(), request())
	assert.ErrorIs(t, err, alpaca.ErrTooManyPages)
	assert.Nil(t, bars)
	assert.Equal(t, int32(3), calls.Load())
}
