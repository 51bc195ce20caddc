// File: internal/services/memory/client.go
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Client is the HTTP implementation of MemoryService.
type Client struct {
	config *Config
	client *http.Client
	retry  *retrier
	logger Logger
}

func NewClient(config *Config, logger Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, NewConfigError(err.Error())
	}
	return &Client{
		config: config,
		client: &http.Client{Timeout: config.Timeout},
		retry:  &retrier{config: config, logger: logger},
		logger: logger,
	}, nil
}

// RecordExchange pushes one completed user/assistant exchange into the memory
// store.
func (c *Client) RecordExchange(ctx context.Context, userID, chatID, userText, assistantText string) error {
	payload := map[string]interface{}{
		"user_id": userID,
		"chat_id": chatID,
		"messages": []map[string]string{
			{"role": "user", "content": userText},
			{"role": "assistant", "content": assistantText},
		},
	}

	return c.retry.do(ctx, func(ctx context.Context) error {
		return c.post(ctx, "/v1/memories", payload)
	})
}

// FetchUserMemory returns the condensed memory summary for a user, empty when
// none exists yet.
func (c *Client) FetchUserMemory(ctx context.Context, userID string) (string, error) {
	var result struct {
		Summary string `json:"summary"`
	}

	err := c.retry.do(ctx, func(ctx context.Context) error {
		endpoint := c.config.APIURL + "/v1/memories/" + url.PathEscape(userID)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return NewNetworkError("failed to create request", err)
		}
		c.setHeaders(req)

		resp, err := c.client.Do(req)
		if err != nil {
			return NewNetworkError("request failed", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			result.Summary = ""
			return nil
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return NewAPIError(fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), nil)
		}
		return json.NewDecoder(resp.Body).Decode(&result)
	})
	if err != nil {
		return "", err
	}
	return result.Summary, nil
}

// DeleteChatMemories drops every memory entry recorded for one chat, called
// when the chat is deleted. A 404 means nothing was ever recorded.
func (c *Client) DeleteChatMemories(ctx context.Context, userID, chatID string) error {
	return c.retry.do(ctx, func(ctx context.Context) error {
		endpoint := c.config.APIURL + "/v1/memories?user_id=" + url.QueryEscape(userID) +
			"&chat_id=" + url.QueryEscape(chatID)
		req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
		if err != nil {
			return NewNetworkError("failed to create request", err)
		}
		c.setHeaders(req)

		resp, err := c.client.Do(req)
		if err != nil {
			return NewNetworkError("request failed", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return nil
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return NewAPIError(fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(body)), nil)
		}
		return nil
	})
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return NewAPIError("invalid payload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.APIURL+path, bytes.NewBuffer(body))
	if err != nil {
		return NewNetworkError("failed to create request", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return NewNetworkError("request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return NewAPIError(fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, string(respBody)), nil)
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
}
