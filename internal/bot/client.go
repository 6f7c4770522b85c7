package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Client is a minimal Telegram Bot API client: long polling plus the three
// send methods the assistant needs.
type Client struct {
	token   string
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// NewClient constructs a Telegram client. pollTimeout bounds the long-poll
// request; the HTTP timeout is set slightly above it.
func NewClient(token, baseURL string, pollTimeout time.Duration, logger zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}
	if pollTimeout <= 0 {
		pollTimeout = 30 * time.Second
	}

	return &Client{
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: pollTimeout + 5*time.Second},
		logger:  logger.With().Str("component", "telegram_client").Logger(),
	}
}

// Update is one long-poll result entry.
type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

// Message is an incoming chat message.
type Message struct {
	Text string `json:"text"`
	Chat Chat   `json:"chat"`
	From *Peer  `json:"from"`
}

// Chat identifies the conversation a message belongs to.
type Chat struct {
	ID int64 `json:"id"`
}

// Peer identifies the sender of a message.
type Peer struct {
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

// GetUpdates long-polls for new updates starting at offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error) {
	endpoint := fmt.Sprintf("%s/bot%s/getUpdates?offset=%d&timeout=%d",
		c.baseURL, c.token, offset, int(timeout.Seconds()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create getUpdates request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("getUpdates: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		OK     bool     `json:"ok"`
		Result []Update `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode getUpdates response: %w", err)
	}
	if !result.OK {
		return nil, fmt.Errorf("getUpdates returned ok=false")
	}
	return result.Result, nil
}

// ReplyKeyboard is a one-shot reply keyboard of labelled rows.
type ReplyKeyboard struct {
	Keyboard        [][]string `json:"-"`
	OneTimeKeyboard bool       `json:"one_time_keyboard"`
	ResizeKeyboard  bool       `json:"resize_keyboard"`
}

func (k *ReplyKeyboard) markup() map[string]any {
	rows := make([][]map[string]string, 0, len(k.Keyboard))
	for _, row := range k.Keyboard {
		buttons := make([]map[string]string, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, map[string]string{"text": label})
		}
		rows = append(rows, buttons)
	}
	return map[string]any{
		"keyboard":          rows,
		"one_time_keyboard": k.OneTimeKeyboard,
		"resize_keyboard":   k.ResizeKeyboard,
	}
}

// SendMessage posts a text message, optionally with a reply keyboard.
func (c *Client) SendMessage(ctx context.Context, chatID int64, text string, keyboard *ReplyKeyboard) error {
	payload := map[string]any{
		"chat_id": chatID,
		"text":    text,
	}
	if keyboard != nil {
		payload["reply_markup"] = keyboard.markup()
	} else {
		payload["reply_markup"] = map[string]any{"remove_keyboard": true}
	}
	return c.call(ctx, "sendMessage", payload)
}

// SendPhoto posts a single photo by URL with an optional caption.
func (c *Client) SendPhoto(ctx context.Context, chatID int64, photoURL, caption string) error {
	return c.call(ctx, "sendPhoto", map[string]any{
		"chat_id": chatID,
		"photo":   photoURL,
		"caption": caption,
	})
}

// SendMediaGroup posts an album of photos by URL.
func (c *Client) SendMediaGroup(ctx context.Context, chatID int64, photoURLs []string) error {
	media := make([]map[string]string, 0, len(photoURLs))
	for _, photo := range photoURLs {
		media = append(media, map[string]string{"type": "photo", "media": photo})
	}
	return c.call(ctx, "sendMediaGroup", map[string]any{
		"chat_id": chatID,
		"media":   media,
	})
}

func (c *Client) call(ctx context.Context, method string, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", method, err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send %s request: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned status %d", method, resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("%s returned ok=false", method)
		}
	}
	return nil
}

// extractListingID recognises marketplace detail page URLs and pulls out the
// listing id.
func extractListingID(text string) (int64, bool) {
	text = strings.TrimSpace(text)
	parsed, err := url.Parse(text)
	if err != nil || parsed.Host == "" {
		return 0, false
	}
	if !strings.Contains(parsed.Host, "encar.com") {
		return 0, false
	}

	// Detail pages carry the id either as ?carid=NNN or as /detail/NNN.
	if carid := parsed.Query().Get("carid"); carid != "" {
		return parseID(carid)
	}
	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for i, segment := range segments {
		if segment == "detail" && i+1 < len(segments) {
			return parseID(strings.TrimSuffix(segments[i+1], ".do"))
		}
	}
	return 0, false
}

func parseID(raw string) (int64, bool) {
	var id int64
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, false
		}
		id = id*10 + int64(r-'0')
	}
	if id == 0 {
		return 0, false
	}
	return id, true
}
