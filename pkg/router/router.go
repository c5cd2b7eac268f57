package router

import (
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/sigweihq/rafflemint/pkg/constants"
)

// TokenIDsParam is the query parameter carrying minted ticket IDs
const TokenIDsParam = "tokenIds"

// MissingTicketsMessage is alerted when a success reaches the router without ticket IDs
const MissingTicketsMessage = "Mint reported success but no ticket IDs were returned. Contact support."

// Navigator moves the user to another view
type Navigator interface {
	Navigate(path string) error
}

// Notifier shows a blocking message to the user
type Notifier interface {
	Alert(message string)
}

// Outcome is what a finished mint hands to the router
type Outcome struct {
	Success  bool
	TokenIDs []uint64
	// Message is the user-facing failure text; ignored on success
	Message string
}

// Router turns a mint outcome into exactly one user-visible effect
type Router struct {
	navigator Navigator
	notifier  Notifier
	logger    *slog.Logger
}

func New(navigator Navigator, notifier Notifier, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{navigator: navigator, notifier: notifier, logger: logger}
}

// Route navigates to the success view or raises an alert.
// A navigation error is downgraded to an alert so the user always sees the result.
// A success without ticket IDs is alerted, never navigated.
func (r *Router) Route(outcome Outcome) {
	if !outcome.Success {
		r.notifier.Alert(outcome.Message)
		return
	}
	if len(outcome.TokenIDs) == 0 {
		r.logger.Error("successful outcome carried no token ids")
		r.notifier.Alert(MissingTicketsMessage)
		return
	}

	path := SuccessPath(outcome.TokenIDs)
	if err := r.navigator.Navigate(path); err != nil {
		r.logger.Error("navigation failed", "path", path, "error", err)
		r.notifier.Alert(fmt.Sprintf("Mint succeeded. Your tickets: %s", joinIDs(outcome.TokenIDs)))
	}
}

// SuccessPath builds "/success?tokenIds=42,43"; ID order is preserved
func SuccessPath(ids []uint64) string {
	return constants.SuccessPath + "?" + TokenIDsParam + "=" + joinIDs(ids)
}

// ParseSuccessPath extracts the ticket IDs from a success path
func ParseSuccessPath(path string) ([]uint64, error) {
	u, err := url.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("invalid success path: %w", err)
	}
	if u.Path != constants.SuccessPath {
		return nil, fmt.Errorf("not a success path: %s", u.Path)
	}
	query, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return nil, fmt.Errorf("invalid success query: %w", err)
	}
	raw := query.Get(TokenIDsParam)
	if raw == "" {
		return []uint64{}, nil
	}

	parts := strings.Split(raw, ",")
	ids := make([]uint64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid token id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func joinIDs(ids []uint64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(id, 10)
	}
	return strings.Join(parts, ",")
}

// WriterNavigator prints the destination path to a writer
type WriterNavigator struct {
	W io.Writer
}

func (n WriterNavigator) Navigate(path string) error {
	_, err := fmt.Fprintf(n.W, "→ %s\n", path)
	return err
}

// WriterNotifier prints alerts to a writer
type WriterNotifier struct {
	W io.Writer
}

func (n WriterNotifier) Alert(message string) {
	fmt.Fprintf(n.W, "! %s\n", message)
}
