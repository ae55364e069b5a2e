package negotiator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

type sessionResponse struct {
	ClientSecret struct {
		Value     string `json:"value"`
		ExpiresAt int64  `json:"expires_at,omitempty"`
	} `json:"client_secret"`
}

const maxErrorBody = 4096

// RequestCredential mints a short-lived credential for one call from the
// signaling endpoint.
func RequestCredential(ctx context.Context, client *http.Client, signalingURL string) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	endpoint := strings.TrimRight(signalingURL, "/") + "/session"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return "", &CredentialError{Err: err}
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", &CredentialError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &CredentialError{Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &CredentialError{Status: resp.StatusCode, Body: truncate(string(body))}
	}

	var parsed sessionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &CredentialError{Status: resp.StatusCode, Body: truncate(string(body)), Err: fmt.Errorf("decode: %w", err)}
	}
	if parsed.ClientSecret.Value == "" {
		return "", &CredentialError{Status: resp.StatusCode, Err: fmt.Errorf("response missing client_secret.value")}
	}
	return parsed.ClientSecret.Value, nil
}

func truncate(s string) string {
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
