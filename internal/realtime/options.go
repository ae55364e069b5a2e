package realtime

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
)

const (
	EnvEndpoint   = "MOCKROOM_AOAI_ENDPOINT"
	EnvDeployment = "MOCKROOM_AOAI_DEPLOYMENT"
	EnvAPIKey     = "MOCKROOM_AOAI_KEY"

	DefaultAPIVersion = "2024-10-01-preview"
	DefaultLanguage   = "en"
	DefaultPrompt     = "You are a transcription assistant. Transcribe all speech in English only. Do not translate or interpret, just transcribe exactly what is said in English."

	// StreamRate is the PCM16 rate the service expects.
	StreamRate = 24000
)

type Options struct {
	Endpoint   string
	Deployment string
	APIKey     string
	// WSURL replaces the URL derived from Endpoint; api-key is added when absent.
	WSURL      string
	APIVersion string
	Prompt     string
	Language   string

	PreferWorklet bool

	// Getenv resolves fallbacks; nil means os.Getenv.
	Getenv func(string) string
}

type resolved struct {
	url        string
	deployment string
	prompt     string
	language   string
}

func (o Options) resolve() (resolved, error) {
	getenv := o.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	pick := func(v, env string) string {
		if v != "" {
			return v
		}
		return getenv(env)
	}

	endpoint := pick(o.Endpoint, EnvEndpoint)
	deployment := pick(o.Deployment, EnvDeployment)
	apiKey := pick(o.APIKey, EnvAPIKey)

	var missing []string
	if endpoint == "" && o.WSURL == "" {
		missing = append(missing, EnvEndpoint)
	}
	if deployment == "" {
		missing = append(missing, EnvDeployment)
	}
	if apiKey == "" {
		missing = append(missing, EnvAPIKey)
	}
	if len(missing) > 0 {
		return resolved{}, &ConfigurationError{Missing: missing}
	}

	apiVersion := o.APIVersion
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	u, err := buildURL(endpoint, deployment, apiKey, apiVersion, o.WSURL)
	if err != nil {
		return resolved{}, err
	}

	r := resolved{url: u, deployment: deployment, prompt: o.Prompt, language: o.Language}
	if r.prompt == "" {
		r.prompt = DefaultPrompt
	}
	if r.language == "" {
		r.language = DefaultLanguage
	}
	return r, nil
}

var httpScheme = regexp.MustCompile(`^https?://`)

func buildURL(endpoint, deployment, apiKey, apiVersion, override string) (string, error) {
	raw := override
	if raw == "" {
		base := httpScheme.ReplaceAllString(endpoint, "wss://")
		raw = fmt.Sprintf("%s/openai/realtime?api-version=%s&deployment=%s",
			base, url.QueryEscape(apiVersion), url.QueryEscape(deployment))
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse websocket url: %w", err)
	}
	q := u.Query()
	if !q.Has("api-key") {
		q.Set("api-key", apiKey)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

var apiKeyParam = regexp.MustCompile(`api-key=[^&]+`)

func redact(u string) string { return apiKeyParam.ReplaceAllString(u, "api-key=***") }
