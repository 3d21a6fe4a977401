// Package api is the REST client for the chat server's channel, message and
// user routes.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/petervdpas/goopchat/internal/chat"
	"github.com/petervdpas/goopchat/internal/metrics"
	"github.com/petervdpas/goopchat/internal/proto"
)

// HTTPError is a non-2xx response.
type HTTPError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.Status, e.Body)
	}
	return fmt.Sprintf("%s %s: %d", e.Method, e.Path, e.Status)
}

type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Token:   token,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// CreateChannelRequest is the body of POST /channels.
type CreateChannelRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Type        string   `json:"type"`
	Members     []string `json:"members"`
}

type updateChannelRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type editMessageRequest struct {
	Content string `json:"content"`
}

func (c *Client) ListChannels(ctx context.Context) ([]chat.Channel, error) {
	var out []proto.ChannelPayload
	if err := c.do(ctx, http.MethodGet, "/channels", "channels", nil, &out); err != nil {
		return nil, err
	}
	return channelsFromWire(out)
}

func (c *Client) CreateChannel(ctx context.Context, in CreateChannelRequest) (chat.Channel, error) {
	if in.Type == "" {
		in.Type = string(chat.VisibilityPublic)
	}
	if in.Members == nil {
		in.Members = []string{}
	}
	return c.channelCall(ctx, http.MethodPost, "/channels", "channels.create", in)
}

func (c *Client) JoinChannel(ctx context.Context, channelID string) (chat.Channel, error) {
	return c.channelCall(ctx, http.MethodPost, "/channels/"+url.PathEscape(channelID)+"/join", "channels.join", nil)
}

func (c *Client) LeaveChannel(ctx context.Context, channelID string) (chat.Channel, error) {
	return c.channelCall(ctx, http.MethodPost, "/channels/"+url.PathEscape(channelID)+"/leave", "channels.leave", nil)
}

func (c *Client) UpdateChannel(ctx context.Context, channelID, name, description string) (chat.Channel, error) {
	return c.channelCall(ctx, http.MethodPut, "/channels/"+url.PathEscape(channelID), "channels.update",
		updateChannelRequest{Name: name, Description: description})
}

func (c *Client) DeleteChannel(ctx context.Context, channelID string) error {
	return c.do(ctx, http.MethodDelete, "/channels/"+url.PathEscape(channelID), "channels.delete", nil, nil)
}

// FetchMessages returns one history page, newest first as the server sends it.
func (c *Client) FetchMessages(ctx context.Context, channelID string, page, limit int) ([]chat.Message, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	var out []proto.MessagePayload
	path := "/messages/" + url.PathEscape(channelID) + "?" + q.Encode()
	if err := c.do(ctx, http.MethodGet, path, "messages", nil, &out); err != nil {
		return nil, err
	}
	return messagesFromWire(out)
}

func (c *Client) EditMessage(ctx context.Context, messageID, content string) error {
	return c.do(ctx, http.MethodPut, "/messages/"+url.PathEscape(messageID), "messages.edit",
		editMessageRequest{Content: content}, nil)
}

func (c *Client) DeleteMessage(ctx context.Context, messageID string) error {
	return c.do(ctx, http.MethodDelete, "/messages/"+url.PathEscape(messageID), "messages.delete", nil, nil)
}

// Search runs a full-text query, optionally scoped to one channel.
func (c *Client) Search(ctx context.Context, query, channelID string) ([]chat.Message, error) {
	q := url.Values{}
	q.Set("query", query)
	if channelID != "" {
		q.Set("channelId", channelID)
	}
	var out []proto.MessagePayload
	if err := c.do(ctx, http.MethodGet, "/messages/search?"+q.Encode(), "messages.search", nil, &out); err != nil {
		return nil, err
	}
	return messagesFromWire(out)
}

func (c *Client) Users(ctx context.Context) ([]proto.UserSummary, error) {
	var out []proto.UserSummary
	if err := c.do(ctx, http.MethodGet, "/auth/users", "users", nil, &out); err != nil {
		return nil, err
	}
	if err := proto.Validate(&out); err != nil {
		return nil, fmt.Errorf("users: %w", err)
	}
	return out, nil
}

func (c *Client) channelCall(ctx context.Context, method, path, route string, body any) (chat.Channel, error) {
	var out proto.ChannelPayload
	if err := c.do(ctx, method, path, route, body, &out); err != nil {
		return chat.Channel{}, err
	}
	if err := proto.Validate(&out); err != nil {
		return chat.Channel{}, fmt.Errorf("%s: %w", route, err)
	}
	return chat.ChannelFromWire(out), nil
}

// do sends one request with bearer auth and decodes a JSON response into
// out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path, route string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	setAuthHeader(req, c.Token)

	start := time.Now()
	resp, err := c.HTTP.Do(req)
	metrics.APILatency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.APIRequests.WithLabelValues(route, "error").Inc()
		log.Printf("API: %s %s: %v", method, route, err)
		return err
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()
	metrics.APIRequests.WithLabelValues(route, strconv.Itoa(resp.StatusCode/100)+"xx").Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &HTTPError{Method: method, Path: req.URL.Path, Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	return readJSON(resp, out)
}

func readJSON(resp *http.Response, v any) error {
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", resp.Request.URL.Path, err)
	}
	return nil
}

func setAuthHeader(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func channelsFromWire(in []proto.ChannelPayload) ([]chat.Channel, error) {
	if err := proto.Validate(&in); err != nil {
		return nil, fmt.Errorf("channels: %w", err)
	}
	return lo.Map(in, func(p proto.ChannelPayload, _ int) chat.Channel { return chat.ChannelFromWire(p) }), nil
}

func messagesFromWire(in []proto.MessagePayload) ([]chat.Message, error) {
	if err := proto.Validate(&in); err != nil {
		return nil, fmt.Errorf("messages: %w", err)
	}
	return lo.Map(in, func(p proto.MessagePayload, _ int) chat.Message { return chat.MessageFromWire(p) }), nil
}
