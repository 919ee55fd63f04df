package publishers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/samvad-hq/samvad-uplink/pkg/httpclient"
)

// Webhook headers describing the upload event. Receivers dedupe redeliveries on
// Idempotency-Key and can match the uploaded content on X-Upload-Digest.
const (
	headerEventType      = "X-Event-Type"
	headerIdempotencyKey = "Idempotency-Key"
	headerUploadDigest   = "X-Upload-Digest"
)

// httpPublisher posts upload events to a webhook.
type httpPublisher struct {
	id      string
	method  string
	url     string
	headers map[string]string
	client  *resty.Client
	log     Logger
}

func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}

	return &httpPublisher{
		id:      cfg.ID,
		method:  cfg.HTTP.Method,
		url:     cfg.HTTP.URL,
		headers: cfg.HTTP.Headers,
		client:  httpclient.NewRestyHTTPClient(time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second),
		log:     ensureLogger(log),
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return TypeHTTP }

// Publish delivers evt as a JSON body. Configured headers never override the event headers.
func (h *httpPublisher) Publish(ctx context.Context, evt Event) error {
	req := h.client.R().
		SetContext(ctx).
		SetHeaders(h.headers).
		SetHeaders(eventHeaders(evt)).
		SetHeader("Content-Type", "application/json").
		SetBody(evt)

	resp, err := req.Execute(h.method, h.url)
	if err != nil {
		return fmt.Errorf("deliver upload event %s: %w", evt.ID, err)
	}
	if resp.IsError() {
		h.log.ErrorObj("webhook rejected upload event", "publisher_http_error", map[string]any{
			"publisher_id": h.id,
			"event_id":     evt.ID,
			"file_name":    evt.FileName,
			"status":       resp.StatusCode(),
		})
		return fmt.Errorf("webhook status %d for upload event %s: %s", resp.StatusCode(), evt.ID, bodySnippet(resp.Body()))
	}

	h.log.DebugObj("webhook accepted upload event", "publisher_http_delivery", map[string]any{
		"publisher_id": h.id,
		"event_id":     evt.ID,
		"digest":       evt.Digest,
		"status":       resp.StatusCode(),
	})
	return nil
}

// eventHeaders maps the event onto webhook headers, skipping empty values.
func eventHeaders(evt Event) map[string]string {
	out := make(map[string]string, 3)
	for k, v := range map[string]string{
		headerEventType:      evt.Type,
		headerIdempotencyKey: evt.ID,
		headerUploadDigest:   evt.Digest,
	} {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

func bodySnippet(body []byte) string {
	const limit = 512
	if len(body) > limit {
		body = body[:limit]
	}
	return strings.TrimSpace(string(body))
}
