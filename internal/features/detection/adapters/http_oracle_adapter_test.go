package adapters

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Seryozh/logiscan/internal/core/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func oracleConfig(url string) config.VisionConfig {
	return config.VisionConfig{
		Provider:       "http",
		URL:            url,
		APIKey:         "vk_test",
		TimeoutSeconds: 2,
	}
}

// TestHTTPOracleAdapter_ExtractReadings verifies request shape and response mapping.
func TestHTTPOracleAdapter_ExtractReadings(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/readings", r.URL.Path)
		assert.Equal(t, "Bearer vk_test", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"readings": [
				{
					"text": "C01K 1/30 MG 9679",
					"apartment": "C01K",
					"tracking_last4": "9679",
					"date": "1/30",
					"initials": "MG",
					"confidence": 0.92,
					"box": [0.1, 0.2, 0.4, 0.5]
				},
				{
					"text": "smudged",
					"confidence": 0.15,
					"box": [0.5, 0.5, 0.9, 0.9]
				}
			]
		}`))
	}))
	defer ts.Close()

	adapter, err := NewHTTPOracleAdapter(oracleConfig(ts.URL))
	require.NoError(t, err)

	readings, err := adapter.ExtractReadings(context.Background(), []byte("fake image"))
	require.NoError(t, err)
	require.Len(t, readings, 2)

	first := readings[0]
	assert.Equal(t, "C01K 1/30 MG 9679", first.RawText)
	require.NotNil(t, first.Apartment)
	assert.Equal(t, "C01K", *first.Apartment)
	require.NotNil(t, first.Last4)
	assert.Equal(t, "9679", *first.Last4)
	assert.Equal(t, 0.92, first.Confidence)
	assert.Equal(t, [4]float64{0.1, 0.2, 0.4, 0.5}, first.Box)

	second := readings[1]
	assert.Nil(t, second.Apartment)
	assert.Nil(t, second.Last4)
}

// TestHTTPOracleAdapter_ErrorStatus verifies non-200 handling.
func TestHTTPOracleAdapter_ErrorStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	adapter, err := NewHTTPOracleAdapter(oracleConfig(ts.URL))
	require.NoError(t, err)

	_, err = adapter.ExtractReadings(context.Background(), []byte("img"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned status: 502")
}

// TestHTTPOracleAdapter_MalformedResponse verifies decode failure handling.
func TestHTTPOracleAdapter_MalformedResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer ts.Close()

	adapter, err := NewHTTPOracleAdapter(oracleConfig(ts.URL))
	require.NoError(t, err)

	_, err = adapter.ExtractReadings(context.Background(), []byte("img"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode oracle response")
}

// TestHTTPOracleAdapter_HealthCheck verifies the health endpoint probe.
func TestHTTPOracleAdapter_HealthCheck(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/healthz", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	adapter, err := NewHTTPOracleAdapter(oracleConfig(ts.URL))
	require.NoError(t, err)

	assert.NoError(t, adapter.HealthCheck())
}

// TestHTTPOracleAdapter_Name verifies the provider identifier.
func TestHTTPOracleAdapter_Name(t *testing.T) {
	adapter, err := NewHTTPOracleAdapter(oracleConfig("http://oracle.test"))
	require.NoError(t, err)
	assert.Equal(t, "http", adapter.Name())
}
