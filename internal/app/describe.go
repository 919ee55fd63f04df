package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/samvad-hq/samvad-uplink/pkg/httpclient"
)

const maxSummaryLen = 200

// Describe turns a client error into a one-line message for the terminal.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	if failure, ok := httpclient.IsRequestFailed(err); ok {
		msg := fmt.Sprintf("Backend returned %d %s", failure.Status, failure.StatusText)
		if summary := summarizeBody(failure.Body); summary != "" {
			msg += ": " + summary
		}
		return msg
	}
	if transport, ok := httpclient.IsTransport(err); ok {
		return fmt.Sprintf("Could not connect to server: %v", transport.Cause)
	}
	if errors.Is(err, httpclient.ErrInvalidJSON) {
		return "Backend returned a response that is not JSON"
	}
	return err.Error()
}

// summarizeBody picks the most readable part of an error body:
// the FastAPI style detail/message field, the HTML page title, or the trimmed text.
func summarizeBody(body string) string {
	body = strings.TrimSpace(body)
	if body == "" {
		return ""
	}

	var fields struct {
		Detail  any    `json:"detail"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal([]byte(body), &fields) == nil {
		switch d := fields.Detail.(type) {
		case string:
			if d != "" {
				return truncate(d)
			}
		case nil:
		default:
			if raw, err := json.Marshal(d); err == nil {
				return truncate(string(raw))
			}
		}
		if v := firstNonEmpty(fields.Message, fields.Error); v != "" {
			return truncate(v)
		}
	}

	if looksLikeHTML(body) {
		if title := htmlTitle(body); title != "" {
			return truncate(title)
		}
	}
	return truncate(body)
}

func looksLikeHTML(body string) bool {
	lower := strings.ToLower(body)
	return strings.Contains(lower, "<html") || strings.Contains(lower, "<title") || strings.Contains(lower, "<!doctype html")
}

// htmlTitle returns the page title, falling back to the first heading.
func htmlTitle(body string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}
	return firstNonEmpty(
		doc.Find("title").First().Text(),
		doc.Find("h1").First().Text(),
	)
}

func truncate(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > maxSummaryLen {
		return s[:maxSummaryLen] + "..."
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
