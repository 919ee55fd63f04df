package httpclient

import (
	"encoding/json"
	"fmt"
)

// Decode unmarshals a payload returned by Client into T.
func Decode[T any](raw json.RawMessage) (T, error) {
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode payload: %w", err)
	}
	return out, nil
}
