package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amirphl/Kusanagi/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeolocationLookup(t *testing.T) {
	t.Run("SuccessfulLookup", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/203.0.113.7", r.URL.Path)
			assert.Equal(t, "status,message,country,city", r.URL.Query().Get("fields"))
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"success","country":"Germany","city":"Berlin"}`))
		}))
		defer server.Close()

		svc := NewGeolocationService(config.GeolocationConfig{BaseURL: server.URL, Timeout: 2 * time.Second})

		info, err := svc.Lookup(context.Background(), "203.0.113.7")
		require.NoError(t, err)
		require.NotNil(t, info)
		assert.Equal(t, "Germany", info.Country)
		assert.Equal(t, "Berlin", info.City)
	})

	t.Run("FailedStatus", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"fail","message":"private range"}`))
		}))
		defer server.Close()

		svc := NewGeolocationService(config.GeolocationConfig{BaseURL: server.URL})

		info, err := svc.Lookup(context.Background(), "192.168.1.1")
		assert.Error(t, err)
		assert.Nil(t, info)
		assert.Contains(t, err.Error(), "private range")
	})

	t.Run("NonOKHTTPStatus", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		svc := NewGeolocationService(config.GeolocationConfig{BaseURL: server.URL})

		info, err := svc.Lookup(context.Background(), "203.0.113.7")
		assert.Error(t, err)
		assert.Nil(t, info)
	})

	t.Run("ContextCancellation", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer server.Close()

		svc := NewGeolocationService(config.GeolocationConfig{BaseURL: server.URL})

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		info, err := svc.Lookup(ctx, "203.0.113.7")
		assert.Error(t, err)
		assert.Nil(t, info)
	})
}
