package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/BgsDevelopment/salesforce-bulk-md-integration/internal/config"
)

// Token is a bearer token paired with the org instance it belongs to.
type Token struct {
	AccessToken string
	InstanceURL string
}

// Provider resolves credentials into a usable access token. The orchestration
// layer treats this as opaque; how the token was obtained is not its concern.
type Provider interface {
	Token(ctx context.Context) (Token, error)
}

// ConfigurationError reports a required credential setting that could not be
// resolved from the environment or config file.
type ConfigurationError struct {
	Setting string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing setting %s: set it in the environment or the config file", e.Setting)
}

// ClientCredentials obtains tokens via the OAuth2 client-credentials flow.
type ClientCredentials struct {
	cfg  config.SalesforceConfig
	http *http.Client
}

func NewClientCredentials(cfg config.SalesforceConfig) *ClientCredentials {
	return &ClientCredentials{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// Token resolves credentials (env over config), requests an access token and
// determines the instance URL from the response, the config, or the token URL
// host, in that order.
func (p *ClientCredentials) Token(ctx context.Context) (Token, error) {
	loadEnvFile()

	clientID := firstOf(os.Getenv("SF_CLIENT_ID"), p.cfg.ClientID)
	clientSecret := firstOf(os.Getenv("SF_CLIENT_SECRET"), p.cfg.ClientSecret)
	tokenURL := firstOf(os.Getenv("SF_TOKEN_URL"), p.cfg.TokenURL)
	if tokenURL == "" {
		if domain := firstOf(os.Getenv("SF_DOMAIN"), p.cfg.Domain); domain != "" {
			tokenURL = "https://" + domain + "/services/oauth2/token"
		}
	}

	if clientID == "" {
		return Token{}, &ConfigurationError{Setting: "SF_CLIENT_ID"}
	}
	if clientSecret == "" {
		return Token{}, &ConfigurationError{Setting: "SF_CLIENT_SECRET"}
	}
	if tokenURL == "" {
		return Token{}, &ConfigurationError{Setting: "SF_TOKEN_URL or SF_DOMAIN"}
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {clientID},
		"client_secret": {clientSecret},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return Token{}, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.http.Do(req)
	if err != nil {
		return Token{}, fmt.Errorf("token request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Token{}, fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode >= 300 {
		// The client-id prefix makes misfiled credentials diagnosable without
		// leaking the full consumer key into logs.
		return Token{}, fmt.Errorf("token request failed: status=%d body=%s (token_url=%s, client_id_prefix=%s)",
			resp.StatusCode, body, tokenURL, prefix(clientID, 6))
	}

	var data struct {
		AccessToken string `json:"access_token"`
		InstanceURL string `json:"instance_url"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return Token{}, fmt.Errorf("parse token response: %w", err)
	}
	if data.AccessToken == "" {
		return Token{}, fmt.Errorf("token response carried no access_token: %s", body)
	}

	instanceURL := firstOf(os.Getenv("SF_INSTANCE_URL"), p.cfg.InstanceURL, data.InstanceURL)
	if instanceURL == "" {
		u, err := url.Parse(tokenURL)
		if err != nil || u.Hostname() == "" {
			return Token{}, &ConfigurationError{Setting: "SF_INSTANCE_URL"}
		}
		instanceURL = "https://" + u.Hostname()
	}

	return Token{AccessToken: data.AccessToken, InstanceURL: instanceURL}, nil
}

// Static wraps a pre-resolved token as a Provider.
type Static struct {
	Tok Token
}

func (s Static) Token(context.Context) (Token, error) { return s.Tok, nil }

// loadEnvFile loads the first env file found. Values already present in the
// environment are never overridden.
func loadEnvFile() {
	candidates := []string{os.Getenv("SFB_ENV_FILE"), ".env", ".env.local", ".env.dev"}
	for _, name := range candidates {
		if name == "" {
			continue
		}
		if _, err := os.Stat(name); err != nil {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			log.Warn().Err(err).Str("file", name).Msg("env file load failed")
			continue
		}
		log.Debug().Str("file", name).Msg("env file loaded")
		return
	}
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func prefix(s string, n int) string {
	if len(s) < n {
		return s
	}
	return s[:n]
}
