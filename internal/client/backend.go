// Package client talks to a running remixexp server.
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/Fwea-Go/remix-exp/pkg/api"
)

var (
	BaseURL = "http://localhost:3000" // -ldflags -X github.com/Fwea-Go/remix-exp/internal/client.BaseURL=<default URL>
)

const (
	configDir   = ".remixexp" // inside the user's home directory
	baseURLFile = "base_url"
	tokenFile   = "token"
)

// LoadBaseURL picks the server address: an explicit value first, then the
// base_url file in the config directory, then the built-in default.
func LoadBaseURL(explicit string) error {
	if explicit != "" {
		return SetBaseURL(explicit)
	}
	path, err := configPath(baseURLFile)
	if err != nil {
		return nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return SetBaseURL(string(data))
}

// SetBaseURL validates and stores the server address.
func SetBaseURL(raw string) error {
	raw = strings.TrimSuffix(strings.TrimSpace(raw), "/")
	if _, err := url.ParseRequestURI(raw); err != nil {
		return fmt.Errorf("client: invalid base url %q: %w", raw, err)
	}
	BaseURL = raw
	return nil
}

// GetHTTPClient returns an HTTP client that respects proxy environment variables
// (HTTP_PROXY, HTTPS_PROXY, NO_PROXY)
func GetHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
		},
	}
}

func configPath(name string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configDir, name), nil
}

// ReadToken returns the saved admin token, or an empty string.
func ReadToken() string {
	path, err := configPath(tokenFile)
	if err != nil {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func WriteToken(token string) error {
	path, err := configPath(tokenFile)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(token), 0o600)
}

func RemoveToken() error {
	path, err := configPath(tokenFile)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// do sends req with the admin token when one is given and decodes a JSON
// answer into out.
func do(req *http.Request, token string, wantStatus int, out any) error {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := GetHTTPClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		var e api.ErrorResponse
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return fmt.Errorf("server returned %s: %s", resp.Status, e.Error)
		}
		return fmt.Errorf("server returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
