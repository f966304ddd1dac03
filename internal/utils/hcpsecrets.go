package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// Overridden via ldflags at build time.
var (
	HCPOrgID     string
	HCPProjectID string
)

// ErrHCPNotConfigured is returned when the deployment carries no HCP token,
// in which case configuration falls back to plain environment variables.
var ErrHCPNotConfigured = errors.New("hcp_not_configured")

const hcpSecretsURL = "https://api.cloud.hashicorp.com/secrets/2023-11-28/organizations/%s/projects/%s/apps/%s/secrets:open"

type HCPSecretsClient struct {
	orgID       string
	projectID   string
	hcpAPIToken string
	httpClient  *http.Client
	baseURL     string
}

// NewHCPSecretsClient decrypts HCP_ENCRYPTED_API_TOKEN with HCP_TOKEN_ENC_KEY.
func NewHCPSecretsClient() (*HCPSecretsClient, error) {
	hcpEncryptedAPIToken := os.Getenv("HCP_ENCRYPTED_API_TOKEN")
	if hcpEncryptedAPIToken == "" {
		return nil, ErrHCPNotConfigured
	}
	if HCPOrgID == "" || HCPProjectID == "" {
		return nil, errors.New("HCPOrgID/HCPProjectID were not overridden with ldflags at build time")
	}
	encryptionKey := os.Getenv("HCP_TOKEN_ENC_KEY")
	if encryptionKey == "" {
		return nil, errors.New("HCP_TOKEN_ENC_KEY env var is missing")
	}

	decryptedToken, err := DecryptOpenSSLSalted([]byte(encryptionKey), hcpEncryptedAPIToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt HCP token: %w", err)
	}

	return &HCPSecretsClient{
		orgID:       HCPOrgID,
		projectID:   HCPProjectID,
		hcpAPIToken: decryptedToken,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		baseURL:     hcpSecretsURL,
	}, nil
}

type hcpSecretsResponse struct {
	Secrets []struct {
		Name          string `json:"name"`
		StaticVersion *struct {
			Value string `json:"value"`
		} `json:"static_version"`
	} `json:"secrets"`
}

// GetHCPSecrets returns secretName -> value for an HCP app such as
// "phone-auth-service-dev". Only static secrets are supported.
func (c *HCPSecretsClient) GetHCPSecrets(ctx context.Context, hcpAppName string) (map[string]string, error) {
	url := fmt.Sprintf(c.baseURL, c.orgID, c.projectID, hcpAppName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating HCP secrets request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.hcpAPIToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		Logger.WithError(err).Error("Failed to perform HCP secrets request")
		return nil, fmt.Errorf("performing HCP secrets request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading HCP secrets response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from HCP: %s", resp.StatusCode, string(body))
	}

	var payload hcpSecretsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decoding HCP secrets response: %w", err)
	}

	result := make(map[string]string, len(payload.Secrets))
	for _, s := range payload.Secrets {
		if s.Name == "" {
			return nil, errors.New("HCP secret is missing 'name'")
		}
		if s.StaticVersion == nil || s.StaticVersion.Value == "" {
			return nil, fmt.Errorf("HCP secret '%s' has no static value", s.Name)
		}
		result[s.Name] = s.StaticVersion.Value
	}
	return result, nil
}

// GetHCPSecretsFromSecretsJSON expands the single "SECRETS_JSON" secret of an
// app into a flat map.
func (c *HCPSecretsClient) GetHCPSecretsFromSecretsJSON(ctx context.Context, hcpAppName string) (map[string]string, error) {
	all, err := c.GetHCPSecrets(ctx, hcpAppName)
	if err != nil {
		return nil, err
	}
	raw, ok := all["SECRETS_JSON"]
	if !ok {
		return nil, errors.New("SECRETS_JSON not found among secrets from HCP")
	}
	var parsed map[string]string
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse 'SECRETS_JSON' as JSON: %w", err)
	}
	return parsed, nil
}
