package httpclient

import (
	"context"
	"encoding/json"
	"io"
)

// DefaultUploadField is the multipart field used when UploadFile gets an empty field name.
const DefaultUploadField = "image"

// File is a binary blob sent as one multipart part.
type File struct {
	Name   string
	Reader io.Reader
}

// Client abstracts backend calls so callers can inject mocks or different transports.
type Client interface {
	Get(ctx context.Context, endpoint string) (json.RawMessage, error)
	PostJSON(ctx context.Context, endpoint string, payload any) (json.RawMessage, error)
	UploadFile(ctx context.Context, endpoint string, file File, fieldName string) (json.RawMessage, error)
}

// Logger defines the logging surface the client relies on.
type Logger interface {
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}
