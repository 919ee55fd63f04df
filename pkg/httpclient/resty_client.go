package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	headerAccept      = "Accept"
	headerContentType = "Content-Type"
	mimeJSON          = "application/json"
)

// Options tunes the underlying transport. The zero value means no timeout and no logging.
type Options struct {
	Timeout time.Duration
	Logger  Logger
}

// RestyClient adapts resty.Client to the httpclient.Client interface.
// It holds no per-call state and is safe for concurrent use.
type RestyClient struct {
	baseURL string
	client  *resty.Client
	log     Logger
}

var _ Client = (*RestyClient)(nil)

// NewRestyClient creates a client that prefixes baseURL onto every endpoint.
func NewRestyClient(baseURL string, opts Options) *RestyClient {
	log := opts.Logger
	if log == nil {
		log = noopLogger{}
	}
	return &RestyClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  newRestyBaseClient(opts.Timeout),
		log:     log,
	}
}

// NewRestyHTTPClient exposes a configured resty.Client for callers needing custom verbs.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	return newRestyBaseClient(timeout)
}

// newRestyBaseClient creates a resty.Client; a non-positive timeout leaves requests unbounded.
func newRestyBaseClient(timeout time.Duration) *resty.Client {
	c := resty.New()
	if timeout > 0 {
		c.SetTimeout(timeout)
	}
	return c
}

// BaseURL returns the backend root every endpoint is appended to.
func (r *RestyClient) BaseURL() string { return r.baseURL }

// Get performs a GET against baseURL+endpoint and returns the JSON body.
func (r *RestyClient) Get(ctx context.Context, endpoint string) (json.RawMessage, error) {
	req := r.client.R().
		SetContext(ctx).
		SetHeader(headerAccept, mimeJSON)
	return r.execute(req, http.MethodGet, endpoint)
}

// PostJSON sends payload as a JSON body and returns the JSON response.
func (r *RestyClient) PostJSON(ctx context.Context, endpoint string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	req := r.client.R().
		SetContext(ctx).
		SetHeader(headerAccept, mimeJSON).
		SetHeader(headerContentType, mimeJSON).
		SetBody(body)
	return r.execute(req, http.MethodPost, endpoint)
}

// UploadFile posts file as multipart/form-data under fieldName (DefaultUploadField when empty).
// Content-Type is left to resty so the header carries the generated boundary.
func (r *RestyClient) UploadFile(ctx context.Context, endpoint string, file File, fieldName string) (json.RawMessage, error) {
	if file.Reader == nil {
		return nil, errors.New("upload file: reader is nil")
	}
	field := strings.TrimSpace(fieldName)
	if field == "" {
		field = DefaultUploadField
	}
	name := strings.TrimSpace(file.Name)
	if name == "" {
		name = field
	}

	req := r.client.R().
		SetContext(ctx).
		SetHeader(headerAccept, mimeJSON).
		SetFileReader(field, name, file.Reader)
	return r.execute(req, http.MethodPost, endpoint)
}

func (r *RestyClient) execute(req *resty.Request, method, endpoint string) (json.RawMessage, error) {
	url := r.baseURL + endpoint
	r.log.DebugObj("backend request", "request", map[string]any{
		"method": method,
		"url":    url,
	})

	resp, err := req.Execute(method, url)
	if err != nil {
		r.log.WarnObj("backend request failed", "transport_error", map[string]any{
			"method": method,
			"url":    url,
			"error":  err.Error(),
		})
		return nil, &TransportError{Method: method, URL: url, Cause: err}
	}

	if !resp.IsSuccess() {
		failure := &RequestFailedError{
			Method:     method,
			URL:        url,
			Status:     resp.StatusCode(),
			StatusText: statusText(resp.StatusCode(), resp.Status()),
			Body:       string(resp.Body()),
		}
		r.log.WarnObj("backend responded with error", "response_error", map[string]any{
			"method": method,
			"url":    url,
			"status": failure.Status,
			"body":   readBodySnippet(resp.Body()),
		})
		return nil, failure
	}

	body := resp.Body()
	if !json.Valid(body) {
		return nil, fmt.Errorf("%s %s: %w", method, url, ErrInvalidJSON)
	}

	r.log.DebugObj("backend response", "response", map[string]any{
		"method":     method,
		"url":        url,
		"status":     resp.StatusCode(),
		"elapsed_ms": resp.Time().Milliseconds(),
	})
	return json.RawMessage(body), nil
}

func readBodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > 512 {
		body = body[:512]
	}
	return strings.TrimSpace(string(body))
}
