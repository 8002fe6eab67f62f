package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) Login(ctx context.Context, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	err := c.jsonRequest(ctx, http.MethodPost, "/api/admin/login", "", map[string]any{
		"password": password,
	}, &out)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out.Token) == "" {
		return "", fmt.Errorf("login response contained no token")
	}
	return out.Token, nil
}

func (c *Client) Logout(ctx context.Context, token string) error {
	return c.jsonRequest(ctx, http.MethodPost, "/api/admin/logout", token, nil, nil)
}

func (c *Client) State(ctx context.Context, token string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/api/admin/state", token, nil, &out)
	return out, err
}

func (c *Client) Items(ctx context.Context) ([]map[string]any, error) {
	var out []map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/api/items", "", nil, &out)
	return out, err
}

func (c *Client) Leaderboard(ctx context.Context) ([]map[string]any, error) {
	var out []map[string]any
	err := c.jsonRequest(ctx, http.MethodGet, "/api/leaderboard", "", nil, &out)
	return out, err
}

func (c *Client) StartGame(ctx context.Context, token string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/api/admin/start-game", token, nil, &out)
	return out, err
}

func (c *Client) StopGame(ctx context.Context, token string) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, "/api/admin/stop-game", token, nil, &out)
	return out, err
}

func (c *Client) ResetGame(ctx context.Context, token string, topN int) (map[string]any, error) {
	path := "/api/admin/reset-game"
	if topN > 0 {
		path = fmt.Sprintf("%s?top_n=%d", path, topN)
	}
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPost, path, token, nil, &out)
	return out, err
}

func (c *Client) UpdateItem(ctx context.Context, token string, itemID int64, patch map[string]any) (map[string]any, error) {
	var out map[string]any
	err := c.jsonRequest(ctx, http.MethodPatch, fmt.Sprintf("/api/admin/update-item/%d", itemID), token, patch, &out)
	return out, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path, token string, in any, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("api status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
