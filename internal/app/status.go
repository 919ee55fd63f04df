package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/samvad-hq/samvad-uplink/pkg/backend"
)

const noBackendMessage = "No message from backend"

// StatusReport summarizes a connection attempt against the backend root.
type StatusReport struct {
	BaseURL   string `json:"base_url" yaml:"base_url"`
	Connected bool   `json:"connected" yaml:"connected"`
	Message   string `json:"message,omitempty" yaml:"message,omitempty"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
	Hint      string `json:"hint,omitempty" yaml:"hint,omitempty"`
}

// HealthReport carries the backend health status.
type HealthReport struct {
	Status string `json:"status" yaml:"status"`
}

// Status calls GET / and reports whether the backend is reachable.
// Failures are folded into the report rather than returned.
func (a *App) Status(ctx context.Context) StatusReport {
	return checkStatus(ctx, a.backend, a.BaseURL())
}

func checkStatus(ctx context.Context, svc *backend.Service, baseURL string) StatusReport {
	report := StatusReport{BaseURL: baseURL}

	resp, err := svc.Root(ctx)
	if err != nil {
		report.Error = Describe(err)
		report.Hint = fmt.Sprintf("Make sure the backend server is running on %s", baseURL)
		return report
	}

	report.Connected = true
	report.Message = strings.TrimSpace(resp.Message)
	if report.Message == "" {
		report.Message = noBackendMessage
	}
	return report
}

// HealthCheck calls GET /api/health.
func (a *App) HealthCheck(ctx context.Context) (HealthReport, error) {
	resp, err := a.backend.Health(ctx)
	if err != nil {
		a.log.WarnObj("health check failed", "error", err.Error())
		return HealthReport{}, err
	}
	return HealthReport{Status: resp.Status}, nil
}
