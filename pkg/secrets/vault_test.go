package secrets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newVaultServer(t *testing.T, wantPath, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != wantPath {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("X-Vault-Token") != "root" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestLoad_KVv2OnlyAllowedKeys(t *testing.T) {
	server := newVaultServer(t, "/v1/secret/data/first-responder/api",
		`{"data":{"data":{"OPENAI_API_KEY":"sk-test","DB_PASSWORD":"pw","UNRELATED":"x","REDIS_PASSWORD":null}}}`)

	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("DB_PASSWORD", "already-set")
	t.Setenv("REDIS_PASSWORD", "")
	t.Setenv("UNRELATED", "")

	res, err := Load(context.Background(), Source{
		Enabled:   true,
		Addr:      server.URL,
		Token:     "root",
		Mount:     "secret",
		Path:      "/first-responder/api",
		KVVersion: 2,
		Keys:      CredentialKeys,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"OPENAI_API_KEY", "REDIS_PASSWORD"}, res.Loaded)
	assert.Equal(t, []string{"DB_PASSWORD"}, res.Skipped)
	assert.Equal(t, "sk-test", os.Getenv("OPENAI_API_KEY"))
	assert.Equal(t, "already-set", os.Getenv("DB_PASSWORD"))
	assert.Empty(t, os.Getenv("UNRELATED"))
}

func TestLoad_OverwriteAndKVv1(t *testing.T) {
	server := newVaultServer(t, "/v1/kv/triage", `{"data":{"OPENAI_API_KEY":"sk-vault"}}`)
	t.Setenv("OPENAI_API_KEY", "sk-env")

	res, err := Load(context.Background(), Source{
		Enabled:   true,
		Addr:      server.URL + "/",
		Token:     "root",
		Mount:     "kv",
		Path:      "triage",
		KVVersion: 1,
		Overwrite: true,
		Keys:      CredentialKeys,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"OPENAI_API_KEY"}, res.Loaded)
	assert.Equal(t, "sk-vault", os.Getenv("OPENAI_API_KEY"))
}

func TestLoad_Errors(t *testing.T) {
	server := newVaultServer(t, "/v1/secret/data/api", `{"data":{}}`)

	tests := []struct {
		name string
		src  Source
	}{
		{name: "incomplete", src: Source{Enabled: true, Addr: server.URL}},
		{name: "forbidden", src: Source{Enabled: true, Addr: server.URL, Token: "bad", Mount: "secret", Path: "api", KVVersion: 2}},
		{name: "missing kv2 data", src: Source{Enabled: true, Addr: server.URL, Token: "root", Mount: "secret", Path: "api", KVVersion: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(context.Background(), tt.src)
			assert.Error(t, err)
		})
	}
}

func TestLoad_Disabled(t *testing.T) {
	res, err := Load(context.Background(), Source{Path: "api"})
	require.NoError(t, err)
	assert.Empty(t, res.Loaded)
}

func TestSourceFromEnv(t *testing.T) {
	t.Setenv("VAULT_ENABLED", "TRUE")
	t.Setenv("VAULT_ADDR", "http://vault:8200")
	t.Setenv("VAULT_TOKEN", "root")
	t.Setenv("VAULT_PATH", "first-responder/api")
	t.Setenv("VAULT_MOUNT", "")
	t.Setenv("VAULT_KV_VERSION", "1")
	t.Setenv("VAULT_TIMEOUT_MS", "250")

	src := SourceFromEnv("")
	assert.True(t, src.Enabled)
	assert.Equal(t, "secret", src.Mount)
	assert.Equal(t, "first-responder/api", src.Path)
	assert.Equal(t, 1, src.KVVersion)
	assert.Equal(t, int64(250), src.Timeout.Milliseconds())

	assert.Equal(t, "first-responder/triage", SourceFromEnv("first-responder/triage").Path)
}
