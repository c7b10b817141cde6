package chatlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clipforge/internal/signals"
)

// maxChatPages bounds pagination so a misbehaving cursor cannot spin forever.
const maxChatPages = 500

// Client fetches chat replay messages and viewer clip metadata for a
// recording. Either source may be left unconfigured; its fetcher then
// returns empty results so analysis can proceed on the signals that exist.
type Client struct {
	chatURL    string
	clipsURL   string
	token      string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// New creates a metadata client for the given chat and clips endpoints.
func New(chatURL, clipsURL string, opts ...Option) *Client {
	client := &Client{
		chatURL:    strings.TrimRight(strings.TrimSpace(chatURL), "/"),
		clipsURL:   strings.TrimRight(strings.TrimSpace(clipsURL), "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// ChatConfigured reports whether a chat replay source is set.
func (c *Client) ChatConfigured() bool {
	return c.chatURL != ""
}

// ClipsConfigured reports whether a viewer clips source is set.
func (c *Client) ClipsConfigured() bool {
	return c.clipsURL != ""
}

type chatPage struct {
	Messages   []signals.ChatMessage `json:"messages"`
	NextCursor string                `json:"next_cursor"`
}

// FetchMessages retrieves the full chat replay for a VOD, following the
// source's pagination cursor. A recording without chat yields an empty
// slice, not an error.
func (c *Client) FetchMessages(ctx context.Context, vodID string) ([]signals.ChatMessage, error) {
	vodID = strings.TrimSpace(vodID)
	if vodID == "" {
		return nil, errors.New("vod id must not be empty")
	}
	if !c.ChatConfigured() {
		return nil, nil
	}

	var messages []signals.ChatMessage
	cursor := ""
	for page := 0; page < maxChatPages; page++ {
		endpoint, err := url.Parse(fmt.Sprintf("%s/v1/vods/%s/chat", c.chatURL, url.PathEscape(vodID)))
		if err != nil {
			return nil, fmt.Errorf("parse chat url: %w", err)
		}
		if cursor != "" {
			params := url.Values{}
			params.Set("cursor", cursor)
			endpoint.RawQuery = params.Encode()
		}

		payload, found, err := c.getChatPage(ctx, endpoint.String())
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, nil
		}
		messages = append(messages, payload.Messages...)
		if payload.NextCursor == "" || payload.NextCursor == cursor {
			return messages, nil
		}
		cursor = payload.NextCursor
	}
	return messages, nil
}

func (c *Client) getChatPage(ctx context.Context, endpoint string) (chatPage, bool, error) {
	var payload chatPage

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return payload, false, fmt.Errorf("build request: %w", err)
	}
	c.authorize(req)

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return payload, false, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return payload, false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return payload, false, fmt.Errorf("chat source returned %d (latency=%v)", resp.StatusCode, latency)
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return payload, false, fmt.Errorf("decode chat response: %w", err)
	}
	return payload, true, nil
}

type clipsResponse struct {
	Clips []signals.ViewerClip `json:"clips"`
}

// FetchViewerClips retrieves viewer-created clip markers for a VOD. A
// recording nobody clipped yields an empty slice, not an error.
func (c *Client) FetchViewerClips(ctx context.Context, vodID string) ([]signals.ViewerClip, error) {
	vodID = strings.TrimSpace(vodID)
	if vodID == "" {
		return nil, errors.New("vod id must not be empty")
	}
	if !c.ClipsConfigured() {
		return nil, nil
	}

	endpoint, err := url.Parse(fmt.Sprintf("%s/v1/vods/%s/clips", c.clipsURL, url.PathEscape(vodID)))
	if err != nil {
		return nil, fmt.Errorf("parse clips url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.authorize(req)

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("clips source returned %d (latency=%v)", resp.StatusCode, latency)
	}

	var payload clipsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode clips response: %w", err)
	}
	return payload.Clips, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}
