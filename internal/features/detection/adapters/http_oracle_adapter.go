package adapters

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Seryozh/logiscan/internal/core/config"
	"github.com/Seryozh/logiscan/internal/core/httpclient"
	"github.com/Seryozh/logiscan/internal/core/logger"
	"github.com/Seryozh/logiscan/internal/features/detection/domain"

	"go.uber.org/zap"
)

// HTTPOracleAdapter implements the VisionProvider interface against a remote
// vision oracle exposing a JSON readings endpoint.
type HTTPOracleAdapter struct {
	// client is the HTTP client used for oracle requests.
	client *http.Client
	// config holds the oracle connection details.
	config config.VisionConfig
	logger *zap.Logger
}

// NewHTTPOracleAdapter creates a new instance of HTTPOracleAdapter.
func NewHTTPOracleAdapter(cfg config.VisionConfig) (*HTTPOracleAdapter, error) {
	client, err := httpclient.NewClientWithProxy(time.Duration(cfg.TimeoutSeconds)*time.Second, cfg.ProxyURL)
	if err != nil {
		return nil, fmt.Errorf("failed to build oracle client: %w", err)
	}

	return &HTTPOracleAdapter{
		client: client,
		config: cfg,
		logger: logger.Named("vision.http"),
	}, nil
}

// oracleReading represents one record in the oracle's JSON response.
type oracleReading struct {
	Text          string     `json:"text"`
	Apartment     *string    `json:"apartment"`
	TrackingLast4 *string    `json:"tracking_last4"`
	Date          *string    `json:"date"`
	Initials      *string    `json:"initials"`
	Confidence    float64    `json:"confidence"`
	Box           [4]float64 `json:"box"`
}

// oracleResponse represents the JSON structure returned by the oracle.
type oracleResponse struct {
	Readings []oracleReading `json:"readings"`
}

// ExtractReadings posts the image to the oracle and maps its response.
func (a *HTTPOracleAdapter) ExtractReadings(ctx context.Context, image []byte) ([]domain.RawReading, error) {
	url := fmt.Sprintf("%s/v1/readings", a.config.URL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(image))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	if a.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.config.APIKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vision oracle returned status: %d", resp.StatusCode)
	}

	var parsed oracleResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode oracle response: %w", err)
	}

	readings := make([]domain.RawReading, 0, len(parsed.Readings))
	for _, r := range parsed.Readings {
		readings = append(readings, domain.RawReading{
			RawText:    r.Text,
			Apartment:  r.Apartment,
			Last4:      r.TrackingLast4,
			Date:       r.Date,
			Initials:   r.Initials,
			Confidence: r.Confidence,
			Box:        r.Box,
		})
	}

	a.logger.Debug("Oracle readings received", zap.Int("count", len(readings)))

	return readings, nil
}

// HealthCheck verifies that the oracle endpoint is reachable.
func (a *HTTPOracleAdapter) HealthCheck() error {
	url := fmt.Sprintf("%s/healthz", a.config.URL)

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("health check failed to create request: %w", err)
	}
	if a.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.config.APIKey)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %d", resp.StatusCode)
	}

	return nil
}

// Name returns the configuration identifier of this provider.
func (a *HTTPOracleAdapter) Name() string {
	return "http"
}
