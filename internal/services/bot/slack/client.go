// Package slack wraps the Slack Web API calls the bot depends on.
//
// Responses are decoded into explicit typed structs so callers never reach
// into raw JSON maps.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the production Slack Web API root.
const DefaultBaseURL = "https://slack.com/api"

const defaultTimeout = 5 * time.Second

// Reaction names used to annotate handled messages.
const (
	ReactionSuccess = "white_check_mark"
	ReactionFailure = "x"
)

// Client is the Slack surface the bot needs.
type Client interface {
	// PostMessage posts text to a channel.
	PostMessage(ctx context.Context, channelID, text string) (PostMessageResult, error)
	// PostBlocks posts a Block Kit layout to a channel.
	PostBlocks(ctx context.Context, channelID string, blocks []Block) (PostMessageResult, error)
	// UserInfo looks up a user by id.
	UserInfo(ctx context.Context, userID string) (UserInfoResult, error)
	// AddReaction annotates a message identified by channel and timestamp.
	AddReaction(ctx context.Context, channelID, timestamp, name string) error
	// AuthTest resolves the bot's own identity.
	AuthTest(ctx context.Context) (AuthTestResult, error)
}

// TextObject is a Block Kit text element.
type TextObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// OptionObject is one selectable entry in a static select.
type OptionObject struct {
	Text  TextObject `json:"text"`
	Value string     `json:"value"`
}

// BlockElement is an interactive element inside an actions block.
type BlockElement struct {
	Type        string         `json:"type"`
	ActionID    string         `json:"action_id"`
	Placeholder *TextObject    `json:"placeholder,omitempty"`
	Options     []OptionObject `json:"options,omitempty"`
}

// Block is one Block Kit layout block.
type Block struct {
	Type     string         `json:"type"`
	BlockID  string         `json:"block_id,omitempty"`
	Elements []BlockElement `json:"elements,omitempty"`
}

// PostMessageResult is the typed result of chat.postMessage.
type PostMessageResult struct {
	OK        bool   `json:"ok"`
	Channel   string `json:"channel"`
	Timestamp string `json:"ts"`
	Err       string `json:"error"`
}

// UserProfile carries the user fields the bot reads.
type UserProfile struct {
	ID       string `json:"id"`
	RealName string `json:"real_name"`
}

// UserInfoResult is the typed result of users.info.
type UserInfoResult struct {
	OK   bool        `json:"ok"`
	User UserProfile `json:"user"`
	Err  string      `json:"error"`
}

// AuthTestResult is the typed result of auth.test.
type AuthTestResult struct {
	OK     bool   `json:"ok"`
	UserID string `json:"user_id"`
	Err    string `json:"error"`
}

type reactionResult struct {
	OK  bool   `json:"ok"`
	Err string `json:"error"`
}

// WebClient calls the Slack Web API over HTTP with a bot token.
type WebClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewWebClient creates a Slack Web API client.
//
// baseURL may be empty to use the production API; tests point it at a local
// httptest server.
func NewWebClient(baseURL, token string) (*WebClient, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("slack bot token is required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &WebClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}, nil
}

// PostMessage posts text to a channel via chat.postMessage.
func (c *WebClient) PostMessage(ctx context.Context, channelID, text string) (PostMessageResult, error) {
	if strings.TrimSpace(channelID) == "" {
		return PostMessageResult{}, errors.New("channel id is required")
	}

	var result PostMessageResult
	payload := map[string]string{"channel": channelID, "text": text}
	if err := c.postJSON(ctx, "chat.postMessage", payload, &result); err != nil {
		return PostMessageResult{}, err
	}
	if !result.OK {
		return result, fmt.Errorf("post message: slack error %q", result.Err)
	}
	return result, nil
}

// PostBlocks posts a Block Kit layout via chat.postMessage.
func (c *WebClient) PostBlocks(ctx context.Context, channelID string, blocks []Block) (PostMessageResult, error) {
	if strings.TrimSpace(channelID) == "" {
		return PostMessageResult{}, errors.New("channel id is required")
	}
	if len(blocks) == 0 {
		return PostMessageResult{}, errors.New("blocks are required")
	}

	var result PostMessageResult
	payload := map[string]any{"channel": channelID, "blocks": blocks}
	if err := c.postJSON(ctx, "chat.postMessage", payload, &result); err != nil {
		return PostMessageResult{}, err
	}
	if !result.OK {
		return result, fmt.Errorf("post blocks: slack error %q", result.Err)
	}
	return result, nil
}

// UserInfo looks up a user via users.info.
//
// A "user_not_found" response is not an error; it is returned as a result
// with OK false so callers can treat unknown mentions as domain failures.
func (c *WebClient) UserInfo(ctx context.Context, userID string) (UserInfoResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return UserInfoResult{}, errors.New("user id is required")
	}

	endpoint := c.baseURL + "/users.info?" + url.Values{"user": {userID}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return UserInfoResult{}, fmt.Errorf("build users.info request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return UserInfoResult{}, fmt.Errorf("call users.info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return UserInfoResult{}, fmt.Errorf("users.info status %d", resp.StatusCode)
	}
	var result UserInfoResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return UserInfoResult{}, fmt.Errorf("decode users.info response: %w", err)
	}
	return result, nil
}

// AddReaction annotates a message via reactions.add.
func (c *WebClient) AddReaction(ctx context.Context, channelID, timestamp, name string) error {
	if strings.TrimSpace(channelID) == "" || strings.TrimSpace(timestamp) == "" {
		return errors.New("channel id and timestamp are required")
	}

	var result reactionResult
	payload := map[string]string{"channel": channelID, "timestamp": timestamp, "name": name}
	if err := c.postJSON(ctx, "reactions.add", payload, &result); err != nil {
		return err
	}
	// Reacting twice to the same message reports already_reacted; the
	// annotation is present either way.
	if !result.OK && result.Err != "already_reacted" {
		return fmt.Errorf("add reaction: slack error %q", result.Err)
	}
	return nil
}

// AuthTest resolves the bot's own user id via auth.test.
func (c *WebClient) AuthTest(ctx context.Context) (AuthTestResult, error) {
	var result AuthTestResult
	if err := c.postJSON(ctx, "auth.test", map[string]string{}, &result); err != nil {
		return AuthTestResult{}, err
	}
	if !result.OK {
		return result, fmt.Errorf("auth test: slack error %q", result.Err)
	}
	return result, nil
}

func (c *WebClient) postJSON(ctx context.Context, method string, payload any, target any) error {
	if c == nil || c.httpClient == nil {
		return errors.New("slack client is not configured")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", method, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call %s: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s status %d", method, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	return nil
}

var _ Client = (*WebClient)(nil)
