package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// CredentialKeys are the settings the dispatch and triage binaries accept
// from Vault. Anything else stored at the path is ignored.
var CredentialKeys = []string{
	"DB_PASSWORD",
	"REDIS_PASSWORD",
	"OPENAI_API_KEY",
	"WHATSAPP_ACCESS_TOKEN",
	"WHATSAPP_PHONE_NUMBER_ID",
}

// Source describes where credentials live in Vault
type Source struct {
	Enabled   bool
	Addr      string
	Token     string
	Namespace string
	Mount     string
	Path      string
	KVVersion int
	Timeout   time.Duration
	Overwrite bool
	Keys      []string
}

// Result reports what Load placed into the environment
type Result struct {
	Path    string
	Loaded  []string
	Skipped []string
}

// SourceFromEnv reads the VAULT_* settings. An empty path falls back to
// VAULT_PATH so each binary can keep its own secret.
func SourceFromEnv(path string) Source {
	if path == "" {
		path = os.Getenv("VAULT_PATH")
	}

	src := Source{
		Enabled:   strings.EqualFold(os.Getenv("VAULT_ENABLED"), "true"),
		Addr:      os.Getenv("VAULT_ADDR"),
		Token:     os.Getenv("VAULT_TOKEN"),
		Namespace: os.Getenv("VAULT_NAMESPACE"),
		Mount:     "secret",
		Path:      path,
		KVVersion: 2,
		Timeout:   5 * time.Second,
		Overwrite: strings.EqualFold(os.Getenv("VAULT_OVERWRITE"), "true"),
		Keys:      CredentialKeys,
	}
	if mount := os.Getenv("VAULT_MOUNT"); mount != "" {
		src.Mount = mount
	}
	if v, err := strconv.Atoi(os.Getenv("VAULT_KV_VERSION")); err == nil {
		src.KVVersion = v
	}
	if ms, err := strconv.Atoi(os.Getenv("VAULT_TIMEOUT_MS")); err == nil && ms > 0 {
		src.Timeout = time.Duration(ms) * time.Millisecond
	}
	return src
}

// Load copies the allowed keys from the Vault secret into the process
// environment so config.Load picks them up. Values already set in the
// environment win unless Overwrite is on.
func Load(ctx context.Context, src Source) (Result, error) {
	res := Result{Path: src.Path}
	if !src.Enabled {
		return res, nil
	}
	if src.Addr == "" || src.Token == "" || src.Path == "" {
		return res, errors.New("vault configuration incomplete (VAULT_ADDR, VAULT_TOKEN, VAULT_PATH)")
	}

	data, err := fetch(ctx, src)
	if err != nil {
		return res, err
	}

	allowed := make(map[string]bool, len(src.Keys))
	for _, k := range src.Keys {
		allowed[k] = true
	}

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if len(allowed) > 0 && !allowed[key] {
			continue
		}
		if !src.Overwrite && os.Getenv(key) != "" {
			res.Skipped = append(res.Skipped, key)
			continue
		}
		if err := os.Setenv(key, stringify(data[key])); err != nil {
			return res, fmt.Errorf("set %s: %w", key, err)
		}
		res.Loaded = append(res.Loaded, key)
	}
	return res, nil
}

func fetch(ctx context.Context, src Source) (map[string]interface{}, error) {
	url, err := secretURL(src.Addr, src.Mount, src.Path, src.KVVersion)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Vault-Token", src.Token)
	if src.Namespace != "" {
		req.Header.Set("X-Vault-Namespace", src.Namespace)
	}

	client := &http.Client{Timeout: src.Timeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vault request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vault fetch failed: %s %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Data map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode vault response: %w", err)
	}
	if payload.Data == nil {
		return nil, errors.New("vault response missing data")
	}
	if src.KVVersion == 1 {
		return payload.Data, nil
	}

	// KV v2 nests the secret under data.data
	inner, ok := payload.Data["data"].(map[string]interface{})
	if !ok {
		return nil, errors.New("vault response missing data for KV v2")
	}
	return inner, nil
}

func secretURL(addr, mount, path string, kvVersion int) (string, error) {
	addr = strings.TrimRight(addr, "/")
	mount = strings.Trim(mount, "/")
	path = strings.Trim(path, "/")
	if addr == "" || mount == "" || path == "" {
		return "", errors.New("vault address, mount, and path must be set")
	}
	if kvVersion == 1 {
		return fmt.Sprintf("%s/v1/%s/%s", addr, mount, path), nil
	}
	return fmt.Sprintf("%s/v1/%s/data/%s", addr, mount, path), nil
}

func stringify(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(encoded)
	}
}
