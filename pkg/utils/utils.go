package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sigweihq/rafflemint/pkg/constants"
)

// CreateHTTPClientWithTimeouts returns an HTTP client for backend services.
// Redirects are not followed.
func CreateHTTPClientWithTimeouts(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = constants.IssuanceTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			TLSHandshakeTimeout:   constants.TLSHandshakeTimeout,
			ResponseHeaderTimeout: constants.ResponseHeaderTimeout,
			ExpectContinueTimeout: constants.ExpectContinueTimeout,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse // Disable redirects to prevent redirect-based SSRF
		},
	}
}

// ValidateServiceURL validates that a backend service URL is secure.
// Plain HTTP is accepted only for loopback hosts.
func ValidateServiceURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return fmt.Errorf("invalid service URL: %q", rawURL)
	}
	switch u.Scheme {
	case "https":
		return nil
	case "http":
		switch u.Hostname() {
		case "localhost", "127.0.0.1", "::1":
			return nil
		}
	}
	return fmt.Errorf("service URL must use HTTPS: %s", rawURL)
}

// MakeJSONRequest is a generic helper for making HTTP requests with JSON payloads.
// Non-2xx responses are returned as *HTTPError carrying the (size limited) body.
func MakeJSONRequest[T any](
	ctx context.Context,
	client *http.Client,
	method string,
	endpoint string,
	requestBody any,
	headers map[string]string,
	endpointName string, // e.g., "mint" - used in error messages
) (*T, error) {
	var bodyReader io.Reader
	if requestBody != nil {
		jsonBody, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send %s request: %w", endpointName, err)
	}
	defer resp.Body.Close()

	limitedReader := io.LimitReader(resp.Body, int64(constants.MaxResponseBodySize))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(limitedReader)
		return nil, &HTTPError{
			Endpoint:   endpointName,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       body,
		}
	}

	var result T
	if err := json.NewDecoder(limitedReader).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", endpointName, err)
	}

	return &result, nil
}

// HTTPError represents an HTTP error with status code and response body
type HTTPError struct {
	Endpoint   string
	StatusCode int
	Status     string
	Body       []byte
}

// Error implements the error interface
func (e *HTTPError) Error() string {
	prefix := fmt.Sprintf("%s request failed: HTTP %d", e.Endpoint, e.StatusCode)
	if len(e.Body) > 0 {
		// Try to parse as JSON error
		var errResp struct {
			Error   string `json:"error"`
			Details string `json:"details"`
		}
		if err := json.Unmarshal(e.Body, &errResp); err == nil {
			if errResp.Details != "" {
				return fmt.Sprintf("%s: %s - %s", prefix, errResp.Error, errResp.Details)
			}
			if errResp.Error != "" {
				return fmt.Sprintf("%s: %s", prefix, errResp.Error)
			}
		}
		return fmt.Sprintf("%s: %s", prefix, strings.TrimSpace(string(e.Body)))
	}
	return fmt.Sprintf("%s: %s", prefix, e.Status)
}

// IsServerError returns true for 5xx responses
func (e *HTTPError) IsServerError() bool {
	return e.StatusCode >= http.StatusInternalServerError
}
