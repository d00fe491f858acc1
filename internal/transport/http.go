package transport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/checkout-gateway/internal/telemetry"
)

// HTTPStrategy is the primary transport, backed by net/http.
type HTTPStrategy struct {
	client *http.Client
}

func NewHTTPStrategy(client *http.Client) *HTTPStrategy {
	return &HTTPStrategy{client: client}
}

func (s *HTTPStrategy) Name() string { return "http" }

func (s *HTTPStrategy) Available() bool { return s != nil && s.client != nil }

func (s *HTTPStrategy) Post(ctx context.Context, endpoint, body, userAgent string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
	if err != nil {
		return nil, &Error{Strategy: s.Name(), Detail: "failed to initialise communications", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, &Error{Strategy: s.Name(), Detail: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Strategy: s.Name(), Detail: fmt.Sprintf("unexpected status %s", resp.Status)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Strategy: s.Name(), Detail: err.Error(), Err: err}
	}
	return data, nil
}

// LoggingTransport logs outbound gateway calls. Bodies are never logged
// because direct requests carry card data.
type LoggingTransport struct {
	Transport http.RoundTripper
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	transport := t.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}

	start := time.Now()
	resp, err := transport.RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		telemetry.Logger.Warn("Gateway HTTP error",
			zap.String("method", req.Method),
			zap.String("host", req.URL.Host),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, err
	}

	telemetry.Logger.Debug("Gateway HTTP response",
		zap.String("method", req.Method),
		zap.String("host", req.URL.Host),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", duration),
	)
	return resp, nil
}

// NewHTTPClient returns an http.Client with gateway call logging. Redirects
// are followed.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &LoggingTransport{
			Transport: http.DefaultTransport,
		},
	}
}
