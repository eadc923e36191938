// Package discord is a minimal REST client for the handful of Discord API
// calls uploads need: channel lookup, message history, thread management,
// and multipart file posts. It is not a gateway client and holds no
// websocket state.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

const defaultBaseURL = "https://discord.com/api/v10"

// MaxAttachments is Discord's per-message attachment limit.
const MaxAttachments = 10

// Channel types as reported by the API.
const (
	ChannelTypeText         = 0
	ChannelTypePublicThread = 11
	ChannelTypeForum        = 15
)

// ChannelInfo is the subset of a channel object the uploader cares about.
type ChannelInfo struct {
	ID       string `json:"id"`
	Type     int    `json:"type"`
	Name     string `json:"name"`
	GuildID  string `json:"guild_id"`
	ParentID string `json:"parent_id"`
}

// IsThread reports whether the channel is a thread or forum post.
func (c *ChannelInfo) IsThread() bool {
	return c.Type == ChannelTypePublicThread
}

// Attachment is a file attached to a message.
type Attachment struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

type embedMedia struct {
	URL string `json:"url"`
}

// Embed carries the URLs of an embedded link preview. Bots that repost CDN
// links produce embeds instead of attachments, so dedupe reads filenames
// out of these too.
type Embed struct {
	URL       string      `json:"url"`
	Image     *embedMedia `json:"image"`
	Video     *embedMedia `json:"video"`
	Thumbnail *embedMedia `json:"thumbnail"`
}

// Message is the subset of a message object used for history scanning.
type Message struct {
	ID          string       `json:"id"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments"`
	Embeds      []Embed      `json:"embeds"`
}

var channelURLRe = regexp.MustCompile(`discord(?:app)?\.com/channels/(\d+|@me)/(\d+)(?:/(\d+))?`)

// ParseChannelURL extracts the guild, channel, and thread IDs from a channel
// URL. Thread URLs carry the thread ID as a third path segment. A bare
// numeric ID is accepted as a channel ID with no guild.
func ParseChannelURL(s string) (guildID, channelID, threadID string, err error) {
	s = strings.TrimSpace(s)
	if m := channelURLRe.FindStringSubmatch(s); m != nil {
		guild := m[1]
		if guild == "@me" {
			guild = ""
		}
		return guild, m[2], m[3], nil
	}
	if isSnowflake(s) {
		return "", s, "", nil
	}
	return "", "", "", fmt.Errorf("not a channel URL or ID: %q", s)
}

func isSnowflake(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Client talks to the Discord REST API with one token.
type Client struct {
	token     string
	tokenType string // "bot" or "user"
	baseURL   string
	http      *http.Client
	limiter   *rateLimiter
	channels  *cache.Cache
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient creates a client. tokenType selects the Authorization header
// format: bot tokens get the "Bot " prefix, user tokens are sent raw.
func NewClient(token, tokenType string, opts ...Option) *Client {
	c := &Client{
		token:     token,
		tokenType: tokenType,
		baseURL:   defaultBaseURL,
		http:      &http.Client{Timeout: 60 * time.Second},
		limiter:   newRateLimiter(45, time.Minute),
		channels:  cache.New(5*time.Minute, 10*time.Minute),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) authorization() string {
	if c.tokenType == "bot" {
		return "Bot " + c.token
	}
	return c.token
}

// do issues one API request with rate limiting and retries. 429 responses
// honor retry_after; 5xx responses back off and retry a few times. The body
// is a byte slice so retries can resend it.
func (c *Client) do(ctx context.Context, method, apiPath string, body []byte, contentType string) ([]byte, error) {
	const maxAttempts = 4

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := c.limiter.wait(ctx); err != nil {
			return nil, err
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPath, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", c.authorization())
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, readErr
		}

		switch {
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return respBody, nil
		case resp.StatusCode == http.StatusTooManyRequests:
			apiErr := parseAPIError(resp.StatusCode, respBody)
			lastErr = apiErr
			if err := sleepCtx(ctx, retryDelay(apiErr, attempt)); err != nil {
				return nil, err
			}
		case resp.StatusCode >= 500:
			lastErr = parseAPIError(resp.StatusCode, respBody)
			if err := sleepCtx(ctx, time.Duration(attempt+1)*time.Second); err != nil {
				return nil, err
			}
		default:
			return nil, parseAPIError(resp.StatusCode, respBody)
		}
	}
	return nil, lastErr
}

func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}
	var payload struct {
		Code       int     `json:"code"`
		Message    string  `json:"message"`
		RetryAfter float64 `json:"retry_after"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Code = payload.Code
		apiErr.Message = payload.Message
		apiErr.RetryAfter = payload.RetryAfter
	}
	return apiErr
}

func retryDelay(apiErr *APIError, attempt int) time.Duration {
	if apiErr.RetryAfter > 0 {
		return time.Duration(apiErr.RetryAfter*float64(time.Second)) + 100*time.Millisecond
	}
	return time.Duration(attempt+1) * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Channel returns channel metadata, cached briefly so repeated lookups
// during one run stay off the API.
func (c *Client) Channel(ctx context.Context, channelID string) (*ChannelInfo, error) {
	if cached, found := c.channels.Get(channelID); found {
		if info, ok := cached.(*ChannelInfo); ok {
			return info, nil
		}
	}

	body, err := c.do(ctx, http.MethodGet, "/channels/"+channelID, nil, "")
	if err != nil {
		return nil, err
	}
	var info ChannelInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("parse channel %s: %w", channelID, err)
	}
	c.channels.Set(channelID, &info, cache.DefaultExpiration)
	return &info, nil
}

// Messages fetches up to limit messages, newest first, optionally before a
// message ID.
func (c *Client) Messages(ctx context.Context, channelID string, limit int, before string) ([]Message, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprint(limit))
	if before != "" {
		q.Set("before", before)
	}
	body, err := c.do(ctx, http.MethodGet, "/channels/"+channelID+"/messages?"+q.Encode(), nil, "")
	if err != nil {
		return nil, err
	}
	var messages []Message
	if err := json.Unmarshal(body, &messages); err != nil {
		return nil, fmt.Errorf("parse messages for %s: %w", channelID, err)
	}
	return messages, nil
}

// FetchExistingFilenames pages backwards through channel history and
// collects every filename visible in attachments and embeds, up to
// maxMessages messages. The result preserves first-seen order with no
// duplicates.
func (c *Client) FetchExistingFilenames(ctx context.Context, channelID string, maxMessages int) ([]string, error) {
	const pageSize = 100

	var names []string
	seen := make(map[string]struct{})
	add := func(name string) {
		if name == "" {
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	before := ""
	fetched := 0
	for maxMessages <= 0 || fetched < maxMessages {
		limit := pageSize
		if maxMessages > 0 && maxMessages-fetched < pageSize {
			limit = maxMessages - fetched
		}
		page, err := c.Messages(ctx, channelID, limit, before)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		for _, msg := range page {
			for _, a := range msg.Attachments {
				add(a.Filename)
			}
			for _, e := range msg.Embeds {
				add(embedFilename(e.URL))
				if e.Image != nil {
					add(embedFilename(e.Image.URL))
				}
				if e.Video != nil {
					add(embedFilename(e.Video.URL))
				}
				if e.Thumbnail != nil {
					add(embedFilename(e.Thumbnail.URL))
				}
			}
		}
		fetched += len(page)
		before = page[len(page)-1].ID
		if len(page) < pageSize {
			break
		}
	}
	return names, nil
}

// embedFilename extracts a filename from an embed URL. Only path segments
// with an extension count; query strings (CDN signatures) are dropped.
func embedFilename(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if !strings.Contains(base, ".") || base == "." || base == "/" {
		return ""
	}
	return base
}

// LastMessageContent returns the content of the newest message in the
// channel, or "" when the channel is empty.
func (c *Client) LastMessageContent(ctx context.Context, channelID string) (string, error) {
	page, err := c.Messages(ctx, channelID, 1, "")
	if err != nil {
		return "", err
	}
	if len(page) == 0 {
		return "", nil
	}
	return page[0].Content, nil
}

// FindThreadByName looks for an existing thread with the given name under
// parent, checking the guild's active threads and the parent's public
// archive. Matching ignores case. Returns nil when no thread matches.
func (c *Client) FindThreadByName(ctx context.Context, parent *ChannelInfo, name string) (*ChannelInfo, error) {
	var lists []threadList

	if parent.GuildID != "" {
		active, err := c.threadList(ctx, "/guilds/"+parent.GuildID+"/threads/active")
		if err != nil {
			return nil, err
		}
		lists = append(lists, active)
	}
	archived, err := c.threadList(ctx, "/channels/"+parent.ID+"/threads/archived/public")
	if err != nil {
		// Forum archive listing needs extra permissions on some servers;
		// missing archive access just means we may create a duplicate.
		if !IsAuthError(err) {
			return nil, err
		}
	} else {
		lists = append(lists, archived)
	}

	for _, list := range lists {
		for i := range list.Threads {
			t := &list.Threads[i]
			if t.ParentID == parent.ID && strings.EqualFold(t.Name, name) {
				return t, nil
			}
		}
	}
	return nil, nil
}

type threadList struct {
	Threads []ChannelInfo `json:"threads"`
}

func (c *Client) threadList(ctx context.Context, apiPath string) (threadList, error) {
	body, err := c.do(ctx, http.MethodGet, apiPath, nil, "")
	if err != nil {
		return threadList{}, err
	}
	var list threadList
	if err := json.Unmarshal(body, &list); err != nil {
		return threadList{}, fmt.Errorf("parse thread list: %w", err)
	}
	return list, nil
}

// StartForumPost creates a forum post with an initial message and returns
// the new thread.
func (c *Client) StartForumPost(ctx context.Context, forumID, title, content string) (*ChannelInfo, error) {
	payload, err := json.Marshal(map[string]any{
		"name":    title,
		"message": map[string]string{"content": content},
	})
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, http.MethodPost, "/channels/"+forumID+"/threads", payload, "application/json")
	if err != nil {
		return nil, err
	}
	var info ChannelInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("parse created forum post: %w", err)
	}
	return &info, nil
}

// CreateThread creates a public thread on a text channel.
func (c *Client) CreateThread(ctx context.Context, channelID, name string) (*ChannelInfo, error) {
	payload, err := json.Marshal(map[string]any{
		"name": name,
		"type": ChannelTypePublicThread,
	})
	if err != nil {
		return nil, err
	}
	body, err := c.do(ctx, http.MethodPost, "/channels/"+channelID+"/threads", payload, "application/json")
	if err != nil {
		return nil, err
	}
	var info ChannelInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("parse created thread: %w", err)
	}
	return &info, nil
}

// SendText posts a plain text message.
func (c *Client) SendText(ctx context.Context, channelID, content string) error {
	payload, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return err
	}
	_, err = c.do(ctx, http.MethodPost, "/channels/"+channelID+"/messages", payload, "application/json")
	return err
}

// SendFiles posts up to MaxAttachments files as one message with optional
// text content.
func (c *Client) SendFiles(ctx context.Context, channelID string, paths []string, content string) error {
	if len(paths) == 0 {
		return fmt.Errorf("no files to send")
	}
	if len(paths) > MaxAttachments {
		return fmt.Errorf("cannot attach %d files, limit is %d", len(paths), MaxAttachments)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	attachments := make([]map[string]any, len(paths))
	for i, p := range paths {
		attachments[i] = map[string]any{"id": i, "filename": filepath.Base(p)}
	}
	payload, err := json.Marshal(map[string]any{
		"content":     content,
		"attachments": attachments,
	})
	if err != nil {
		return err
	}
	if err := w.WriteField("payload_json", string(payload)); err != nil {
		return err
	}

	for i, p := range paths {
		part, err := w.CreateFormFile(fmt.Sprintf("files[%d]", i), filepath.Base(p))
		if err != nil {
			return err
		}
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		_, err = io.Copy(part, f)
		f.Close()
		if err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	_, err = c.do(ctx, http.MethodPost, "/channels/"+channelID+"/messages", buf.Bytes(), w.FormDataContentType())
	return err
}
