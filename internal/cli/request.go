package cli

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/spf13/cobra"
)

func newGetCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "get <endpoint>",
		Short: "Send a GET request and print the JSON response",
		Example: `  uplink get /
  uplink get api/health -o yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := rt.app.Client().Get(cmd.Context(), normalizeEndpoint(args[0]))
			if err != nil {
				return backendError(err)
			}
			return renderRaw(cmd.OutOrStdout(), rt.output, raw)
		},
	}
}

func newPostCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:     "post <endpoint> <json>",
		Short:   "Send a JSON POST request and print the JSON response",
		Example: `  uplink post /api/items '{"name":"ping"}'`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := strings.TrimSpace(args[1])
			if !json.Valid([]byte(body)) {
				return &exitError{code: ExitGeneralError, err: errors.New("request body is not valid JSON")}
			}
			raw, err := rt.app.Client().PostJSON(cmd.Context(), normalizeEndpoint(args[0]), json.RawMessage(body))
			if err != nil {
				return backendError(err)
			}
			return renderRaw(cmd.OutOrStdout(), rt.output, raw)
		},
	}
}

// normalizeEndpoint makes sure the path joins cleanly onto the base URL.
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return endpoint
}
