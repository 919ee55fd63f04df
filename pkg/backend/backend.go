// Package backend exposes the endpoints of the upload backend as typed calls.
package backend

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samvad-hq/samvad-uplink/pkg/httpclient"
)

const (
	RootEndpoint        = "/"
	HealthEndpoint      = "/api/health"
	UploadImageEndpoint = "/api/upload-image"
)

// MessageResponse is returned by GET / and POST /api/upload-image.
type MessageResponse struct {
	Message string `json:"message" yaml:"message"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status string `json:"status" yaml:"status"`
}

// Service calls the backend through an httpclient.Client.
type Service struct {
	client httpclient.Client
	field  string
}

// NewService wraps client. An empty uploadField falls back to httpclient.DefaultUploadField.
func NewService(client httpclient.Client, uploadField string) *Service {
	if uploadField == "" {
		uploadField = httpclient.DefaultUploadField
	}
	return &Service{client: client, field: uploadField}
}

// Root fetches the greeting served at the backend root.
func (s *Service) Root(ctx context.Context) (MessageResponse, error) {
	raw, err := s.client.Get(ctx, RootEndpoint)
	if err != nil {
		return MessageResponse{}, fmt.Errorf("get root: %w", err)
	}
	return MessageResponse{Message: messageField(raw)}, nil
}

// Health fetches the backend health status.
func (s *Service) Health(ctx context.Context) (HealthResponse, error) {
	raw, err := s.client.Get(ctx, HealthEndpoint)
	if err != nil {
		return HealthResponse{}, fmt.Errorf("get health: %w", err)
	}
	return httpclient.Decode[HealthResponse](raw)
}

// UploadImage posts file to the image upload endpoint.
func (s *Service) UploadImage(ctx context.Context, file httpclient.File) (MessageResponse, error) {
	raw, err := s.client.UploadFile(ctx, UploadImageEndpoint, file, s.field)
	if err != nil {
		return MessageResponse{}, fmt.Errorf("upload image: %w", err)
	}
	return MessageResponse{Message: messageField(raw)}, nil
}

// messageField returns the string "message" of a JSON object body.
// Any other shape is a successful response without a message.
func messageField(raw json.RawMessage) string {
	var body struct {
		Message any `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	msg, _ := body.Message.(string)
	return msg
}
