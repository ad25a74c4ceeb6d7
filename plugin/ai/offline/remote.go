package offline

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

	"github.com/pkg/errors"

	"github.com/hrygo/babywise/plugin/ai/summary"
	"github.com/hrygo/babywise/plugin/ai/timeout"
)

var (
	// ErrStoreUnavailable reports that the server could not be reached or failed.
	ErrStoreUnavailable = errors.New("routine store unavailable")
	// ErrRejected reports that the server refused a request as invalid.
	ErrRejected = errors.New("request rejected by server")
)

// Remote is the server as seen by the offline client.
type Remote interface {
	// CreateEvent submits an entry and returns the server id.
	CreateEvent(ctx context.Context, e *Entry) (int32, error)
	// Summary fetches the server side summary and its rendered text.
	Summary(ctx context.Context, threadID string, period summary.Period, locale string) (*RemoteSummary, error)
	// Chat sends a conversational message and returns the reply.
	Chat(ctx context.Context, threadID, message, locale string) (string, error)
	// Healthy probes connectivity.
	Healthy(ctx context.Context) bool
}

// RemoteSummary is a summary as returned by the server.
type RemoteSummary struct {
	Summary *summary.Summary `json:"summary"`
	Text    string           `json:"text"`
	Locale  string           `json:"locale"`
	RTL     bool             `json:"rtl"`
}

type createEventRequest struct {
	ThreadID  string    `json:"thread_id"`
	EventType string    `json:"event_type"`
	StartTime time.Time `json:"start_time"`
	Notes     string    `json:"notes,omitempty"`
	LocalID   string    `json:"local_id"`
}

type eventResponse struct {
	ID int32 `json:"id"`
}

type chatRequest struct {
	ThreadID string `json:"thread_id"`
	Message  string `json:"message"`
	Language string `json:"language"`
}

type chatResponse struct {
	Response string `json:"response"`
}

// HTTPRemote talks to the babywise HTTP API.
type HTTPRemote struct {
	baseURL string
	client  *http.Client
}

// NewHTTPRemote creates a remote for the server at baseURL, e.g. http://localhost:8081.
func NewHTTPRemote(baseURL string) *HTTPRemote {
	return &HTTPRemote{
		baseURL: strings.TrimRight(baseURL, "/") + "/api/v1",
		client:  &http.Client{Timeout: timeout.SyncRequestTimeout},
	}
}

func (r *HTTPRemote) CreateEvent(ctx context.Context, e *Entry) (int32, error) {
	var resp eventResponse
	err := r.do(ctx, http.MethodPost, "/routines/events", createEventRequest{
		ThreadID:  e.ThreadID,
		EventType: string(e.EventType),
		StartTime: e.StartTime,
		Notes:     e.Notes,
		LocalID:   e.LocalID,
	}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.ID, nil
}

func (r *HTTPRemote) Summary(ctx context.Context, threadID string, period summary.Period, locale string) (*RemoteSummary, error) {
	query := url.Values{}
	query.Set("period", string(period))
	query.Set("locale", locale)
	path := fmt.Sprintf("/routines/summary/%s?%s", url.PathEscape(threadID), query.Encode())

	var resp RemoteSummary
	if err := r.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *HTTPRemote) Chat(ctx context.Context, threadID, message, locale string) (string, error) {
	var resp chatResponse
	if err := r.do(ctx, http.MethodPost, "/chat", chatRequest{ThreadID: threadID, Message: message, Language: locale}, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

func (r *HTTPRemote) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, timeout.HealthProbeTimeout)
	defer cancel()
	return r.do(ctx, http.MethodGet, "/health", nil, nil) == nil
}

// do sends a JSON request. Transport failures and 5xx responses wrap
// ErrStoreUnavailable; other non-2xx responses wrap ErrRejected.
func (r *HTTPRemote) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "failed to marshal request")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return errors.Wrap(ErrStoreUnavailable, err.Error())
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return errors.Wrapf(ErrStoreUnavailable, "%s %s: status %d", method, path, resp.StatusCode)
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Wrapf(ErrRejected, "%s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(msg))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(ErrStoreUnavailable, "invalid response: "+err.Error())
	}
	return nil
}

var _ Remote = (*HTTPRemote)(nil)
