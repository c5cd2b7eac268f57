package issuance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sigweihq/rafflemint/pkg/constants"
	"github.com/sigweihq/rafflemint/pkg/types"
	"github.com/sigweihq/rafflemint/pkg/utils"
)

// IdempotencyKeyHeader carries the mint attempt ID so the backend can drop duplicates
const IdempotencyKeyHeader = "Idempotency-Key"

// Client calls the backend issuance service that mints tickets after payment
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an issuance client for baseURL.
// A nil httpClient gets the default timeouts; baseURL must be HTTPS except on loopback.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	if err := utils.ValidateServiceURL(baseURL); err != nil {
		return nil, err
	}
	if httpClient == nil {
		httpClient = utils.CreateHTTPClientWithTimeouts(constants.IssuanceTimeout)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

// BaseURL returns the service base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Mint sends exactly one issuance request.
// A non-2xx reply whose JSON body names an error is returned as an unsuccessful
// response rather than an error; anything else that is not a decodable reply is an error.
func (c *Client) Mint(ctx context.Context, req *types.MintRequest, idempotencyKey string) (*types.MintResponse, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	headers := map[string]string{}
	if idempotencyKey != "" {
		headers[IdempotencyKeyHeader] = idempotencyKey
	}

	c.logger.Debug("sending issuance request",
		"address", req.Address,
		"quantity", req.Quantity,
		"paymentMethod", req.PaymentMethod.String(),
		"transactionHash", req.TransactionHash)

	resp, err := utils.MakeJSONRequest[types.MintResponse](
		ctx,
		c.httpClient,
		http.MethodPost,
		c.baseURL+constants.MintPath,
		req,
		headers,
		"mint",
	)
	if err != nil {
		var httpErr *utils.HTTPError
		if errors.As(err, &httpErr) {
			if decoded, ok := decodeErrorResponse(httpErr.Body); ok {
				c.logger.Warn("issuance rejected", "status", httpErr.StatusCode, "error", decoded.Error)
				return decoded, nil
			}
		}
		return nil, err
	}

	if resp.Success {
		c.logger.Info("issuance succeeded", "address", req.Address, "tokenIds", resp.TokenIDs)
	} else {
		c.logger.Warn("issuance rejected", "error", resp.Error)
	}
	return resp, nil
}

func validateRequest(req *types.MintRequest) error {
	if req == nil {
		return fmt.Errorf("mint request is required")
	}
	if req.Address == "" {
		return fmt.Errorf("mint request address is required")
	}
	if !req.Quantity.Valid() {
		return fmt.Errorf("invalid quantity %d", req.Quantity)
	}
	if !req.PaymentMethod.Valid() {
		return fmt.Errorf("invalid payment method %d", int(req.PaymentMethod))
	}
	return nil
}

// decodeErrorResponse reads a service error body shaped like a MintResponse
func decodeErrorResponse(body []byte) (*types.MintResponse, bool) {
	if len(body) == 0 {
		return nil, false
	}
	var resp types.MintResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Error == "" {
		return nil, false
	}
	resp.Success = false
	return &resp, true
}
