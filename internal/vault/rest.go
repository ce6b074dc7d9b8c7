package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	restConfigPath = ".obsidian/plugins/obsidian-local-rest-api/data.json"
	dailyNoteURI   = "/periodic/daily"
)

// ErrRESTUnavailable is returned when the vault has no Local REST API
// plugin configuration.
var ErrRESTUnavailable = errors.New("the vault doesn't contain the obsidian-local-rest-api plugin")

type restConfig struct {
	Port                 int    `json:"port"`
	InsecurePort         int    `json:"insecurePort"`
	EnableInsecureServer bool   `json:"enableInsecureServer"`
	APIKey               string `json:"apiKey"`
}

// RESTClient talks to the Obsidian Local REST API plugin of a running
// Obsidian instance.
type RESTClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	// settle is how long to wait after creating a daily note so template
	// plugins can finish rewriting it.
	settle time.Duration
}

// NewRESTClient reads the plugin configuration from the vault. The
// returned client reports Available() == false when there is none.
func NewRESTClient(vault string) *RESTClient {
	c := &RESTClient{
		client: &http.Client{Timeout: 10 * time.Second},
		settle: 100 * time.Millisecond,
	}

	data, err := os.ReadFile(filepath.Join(vault, restConfigPath))
	if err != nil {
		return c
	}
	var cfg restConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return c
	}

	if cfg.EnableInsecureServer {
		c.baseURL = fmt.Sprintf("http://localhost:%d", cfg.InsecurePort)
	} else {
		c.baseURL = fmt.Sprintf("https://localhost:%d", cfg.Port)
	}
	c.apiKey = cfg.APIKey
	return c
}

// Available reports whether the plugin is configured.
func (c *RESTClient) Available() bool {
	return c.baseURL != ""
}

// AppendToDailyNote appends text to today's daily note, creating the note
// first when it does not exist yet.
func (c *RESTClient) AppendToDailyNote(ctx context.Context, text string) error {
	if !c.Available() {
		return ErrRESTUnavailable
	}

	resp, err := c.do(ctx, http.MethodGet, dailyNoteURI, "")
	if err == nil {
		resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			created, err := c.do(ctx, http.MethodPost, dailyNoteURI, "")
			if err != nil {
				return fmt.Errorf("create daily note: %w", err)
			}
			created.Body.Close()

			select {
			case <-time.After(c.settle):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	resp, err = c.do(ctx, http.MethodPost, dailyNoteURI, text)
	if err != nil {
		return fmt.Errorf("append to daily note: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("obsidian REST API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func (c *RESTClient) do(ctx context.Context, method, uri, body string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+uri, strings.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "text/markdown")
	return c.client.Do(req)
}
