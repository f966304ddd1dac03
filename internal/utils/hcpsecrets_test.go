package utils

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewHCPSecretsClientNotConfigured(t *testing.T) {
	t.Setenv("HCP_ENCRYPTED_API_TOKEN", "")
	_, err := NewHCPSecretsClient()
	require.ErrorIs(t, err, ErrHCPNotConfigured)
}

func TestGetHCPSecretsFromSecretsJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.Contains(t, r.URL.Path, "/apps/phone-auth-service-dev/")
		_, _ = w.Write([]byte(`{"secrets":[{"name":"SECRETS_JSON","static_version":{"value":"{\"DB_URL\":\"postgres://x\"}"}}]}`))
	}))
	defer srv.Close()

	c := &HCPSecretsClient{
		orgID:       "org",
		projectID:   "proj",
		hcpAPIToken: "tok",
		httpClient:  srv.Client(),
		baseURL:     srv.URL + "/organizations/%s/projects/%s/apps/%s/secrets:open",
	}
	secrets, err := c.GetHCPSecretsFromSecretsJSON(context.Background(), "phone-auth-service-dev")
	require.NoError(t, err)
	require.Equal(t, "postgres://x", secrets["DB_URL"])
}

func TestGetHCPSecretsBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := &HCPSecretsClient{httpClient: srv.Client(), baseURL: srv.URL + "/%s/%s/%s"}
	_, err := c.GetHCPSecrets(context.Background(), "app")
	require.Error(t, err)
}
