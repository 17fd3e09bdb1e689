package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"tripcast-service/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAmadeusOAuth_AuthorizesRequestsAndCachesToken(t *testing.T) {
	var tokenCalls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case amadeusTokenPath:
			atomic.AddInt32(&tokenCalls, 1)
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
			assert.Equal(t, "id", r.PostForm.Get("client_id"))
			assert.Equal(t, "secret", r.PostForm.Get("client_secret"))
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"type":         "amadeusOAuth2Token",
				"access_token": "tok-123",
				"token_type":   "Bearer",
				"expires_in":   1799,
			})
		default:
			assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	auth := NewAmadeusOAuth(srv.URL+"/", "id", "secret", logger.NewNopLogger())
	require.True(t, auth.IsConfigured())

	client := auth.HTTPClient(context.Background(), 5*time.Second)
	for i := 0; i < 3; i++ {
		resp, err := client.Get(srv.URL + "/v1/reference-data/locations/cities")
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&tokenCalls))

	token, err := auth.FetchToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token.AccessToken)

	js, err := auth.TokenToJSON(token)
	require.NoError(t, err)
	assert.Contains(t, js, "tok-123")
}

func TestAmadeusOAuth_NotConfigured(t *testing.T) {
	auth := NewAmadeusOAuth("https://test.api.amadeus.com", "", "", logger.NewNopLogger())
	assert.False(t, auth.IsConfigured())
}
