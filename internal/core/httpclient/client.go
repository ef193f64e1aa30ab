package httpclient

import (
	"net/http"
	"time"

	"kmerzone/internal/core/logger"

	"go.uber.org/zap"
)

// UserAgent identifies this service to collaborators.
const UserAgent = "kmerzone-order-core/1.0"

// LoggingRoundTripper logs every outbound call made to a collaborator.
type LoggingRoundTripper struct {
	// Proxied is the underlying RoundTripper to execute the request.
	Proxied http.RoundTripper
	// Collaborator names the remote system in log lines (e.g. "vendor-directory").
	Collaborator string
}

// RoundTrip executes the request and logs details.
func (lrt *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	log := logger.Named("httpclient").With(
		zap.String("collaborator", lrt.Collaborator),
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
	)

	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", UserAgent)
	}

	resp, err := lrt.Proxied.RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		log.Error("Collaborator request failed", zap.Duration("duration", duration), zap.Error(err))
		return nil, err
	}

	log.Debug("Collaborator request completed",
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("duration", duration),
	)

	return resp, nil
}

// NewClient returns an http.Client with logging middleware for the named collaborator.
func NewClient(collaborator string, timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &LoggingRoundTripper{
			Proxied:      http.DefaultTransport,
			Collaborator: collaborator,
		},
		Timeout: timeout,
	}
}
