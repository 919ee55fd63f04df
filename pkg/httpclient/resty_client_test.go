package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingLogger struct {
	mu    sync.Mutex
	debug []string
	warn  []string
}

func (l *recordingLogger) DebugObj(msg, _ string, _ interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.debug = append(l.debug, msg)
}

func (l *recordingLogger) WarnObj(msg, _ string, _ interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warn = append(l.warn, msg)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*RestyClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewRestyClient(srv.URL, Options{Timeout: 5 * time.Second}), srv
}

// unreachableURL returns the address of a server that has already been shut down.
func unreachableURL(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func TestGetReturnsBodyVerbatim(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"message":"hello"}`))
	})

	got, err := client.Get(context.Background(), "/")
	require.NoError(t, err)
	assert.JSONEq(t, `{"message":"hello"}`, string(got))
	assert.Equal(t, `{"message":"hello"}`, string(got))
}

func TestGetNon2xxCarriesStatusAndBody(t *testing.T) {
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("server error"))
	})

	got, err := client.Get(context.Background(), "/api/health")
	require.Error(t, err)
	assert.Nil(t, got)

	failure, ok := IsRequestFailed(err)
	require.True(t, ok, "expected RequestFailedError, got %T", err)
	assert.Equal(t, http.StatusInternalServerError, failure.Status)
	assert.Equal(t, "Internal Server Error", failure.StatusText)
	assert.Equal(t, "server error", failure.Body)
	assert.Equal(t, srv.URL+"/api/health", failure.URL)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "server error")

	_, isTransport := IsTransport(err)
	assert.False(t, isTransport)
}

func TestNon2xxStatusesAcrossMethods(t *testing.T) {
	statuses := []int{
		http.StatusBadRequest,
		http.StatusUnauthorized,
		http.StatusNotFound,
		http.StatusUnprocessableEntity,
		http.StatusServiceUnavailable,
	}

	for _, status := range statuses {
		status := status
		t.Run(http.StatusText(status), func(t *testing.T) {
			body := `{"detail":"` + http.StatusText(status) + `"}`
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.Copy(io.Discard, r.Body)
				w.WriteHeader(status)
				_, _ = w.Write([]byte(body))
			})

			calls := map[string]func() (json.RawMessage, error){
				"get": func() (json.RawMessage, error) {
					return client.Get(context.Background(), "/x")
				},
				"post": func() (json.RawMessage, error) {
					return client.PostJSON(context.Background(), "/x", map[string]string{"k": "v"})
				},
				"upload": func() (json.RawMessage, error) {
					return client.UploadFile(context.Background(), "/x", File{Name: "a.png", Reader: strings.NewReader("png")}, "")
				},
			}
			for name, call := range calls {
				_, err := call()
				failure, ok := IsRequestFailed(err)
				require.True(t, ok, "%s: expected RequestFailedError, got %v", name, err)
				assert.Equal(t, status, failure.Status, name)
				assert.Equal(t, body, failure.Body, name)
			}
		})
	}
}

func TestPostJSONSendsEncodedBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var in map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "ping", in["name"])
		assert.EqualValues(t, 3, in["count"])

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true,"echo":"ping"}`))
	})

	got, err := client.PostJSON(context.Background(), "/api/items", map[string]any{"name": "ping", "count": 3})
	require.NoError(t, err)

	out, err := Decode[map[string]any](got)
	require.NoError(t, err)
	assert.Equal(t, true, out["ok"])
	assert.Equal(t, "ping", out["echo"])
}

func TestPostJSONRejectsUnencodablePayload(t *testing.T) {
	var hits int
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		hits++
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := client.PostJSON(context.Background(), "/api/items", map[string]any{"bad": make(chan int)})
	require.Error(t, err)
	assert.Zero(t, hits)

	_, isTransport := IsTransport(err)
	assert.False(t, isTransport)
}

func TestUploadFileUsesGeneratedBoundary(t *testing.T) {
	content := []byte("\x89PNG\r\n\x1a\nfake image bytes")
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/upload-image", r.URL.Path)

		ct := r.Header.Get("Content-Type")
		assert.True(t, strings.HasPrefix(ct, "multipart/form-data"), "content type %q", ct)
		assert.Contains(t, ct, "boundary=")

		f, hdr, err := r.FormFile("image")
		require.NoError(t, err)
		defer f.Close()
		data, err := io.ReadAll(f)
		require.NoError(t, err)
		assert.Equal(t, content, data)
		assert.Equal(t, "cat.png", hdr.Filename)

		_, _ = w.Write([]byte(`{"message":"stored cat.png"}`))
	})

	got, err := client.UploadFile(context.Background(), "/api/upload-image", File{Name: "cat.png", Reader: bytes.NewReader(content)}, "")
	require.NoError(t, err)
	assert.Equal(t, `{"message":"stored cat.png"}`, string(got))
}

func TestUploadFileCustomField(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _, err := r.FormFile("avatar")
		require.NoError(t, err)
		_, _, err = r.FormFile("image")
		assert.Error(t, err)
		_, _ = w.Write([]byte(`{"message":"ok"}`))
	})

	_, err := client.UploadFile(context.Background(), "/upload", File{Name: "me.jpg", Reader: strings.NewReader("jpg")}, "avatar")
	require.NoError(t, err)
}

func TestUploadFileRequiresReader(t *testing.T) {
	client := NewRestyClient("http://127.0.0.1:1", Options{})
	_, err := client.UploadFile(context.Background(), "/api/upload-image", File{Name: "x.png"}, "")
	require.Error(t, err)
}

func TestUploadFileUnreachableHostIsTransportError(t *testing.T) {
	client := NewRestyClient(unreachableURL(t), Options{Timeout: 5 * time.Second})

	_, err := client.UploadFile(context.Background(), "/api/upload-image", File{Name: "img.png", Reader: strings.NewReader("img")}, "")
	require.Error(t, err)

	transport, ok := IsTransport(err)
	require.True(t, ok, "expected TransportError, got %T: %v", err, err)
	assert.Equal(t, http.MethodPost, transport.Method)
	assert.NotNil(t, errors.Unwrap(err))

	_, isFailed := IsRequestFailed(err)
	assert.False(t, isFailed)
}

func TestGetInvalidJSONOnSuccess(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>not json</html>"))
	})

	_, err := client.Get(context.Background(), "/")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidJSON)
}

func TestGetCancelledContextIsTransportError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Get(ctx, "/")
	_, ok := IsTransport(err)
	require.True(t, ok, "expected TransportError, got %v", err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBaseURLTrailingSlashTrimmed(t *testing.T) {
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/health", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	client = NewRestyClient(srv.URL+"/", Options{})
	assert.Equal(t, srv.URL, client.BaseURL())

	_, err := client.Get(context.Background(), "/api/health")
	require.NoError(t, err)
}

func TestConcurrentCallsAreIndependent(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream"))
			return
		}
		_, _ = w.Write([]byte(`{"path":"` + r.URL.Path + `"}`))
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				got, err := client.Get(context.Background(), "/ok")
				assert.NoError(t, err)
				assert.Equal(t, `{"path":"/ok"}`, string(got))
				return
			}
			_, err := client.Get(context.Background(), "/fail")
			failure, ok := IsRequestFailed(err)
			if assert.True(t, ok) {
				assert.Equal(t, "upstream", failure.Body)
			}
		}(i)
	}
	wg.Wait()
}

func TestClientLogsRequestsAndFailures(t *testing.T) {
	log := &recordingLogger{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := NewRestyClient(srv.URL, Options{Logger: log})
	_, err := client.Get(context.Background(), "/good")
	require.NoError(t, err)
	_, err = client.Get(context.Background(), "/bad")
	require.Error(t, err)

	assert.Contains(t, log.debug, "backend request")
	assert.Contains(t, log.debug, "backend response")
	assert.Contains(t, log.warn, "backend responded with error")
}
