package rooms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client calls the room provider's REST API with API-key basic auth.
type Client struct {
	BaseURL   string
	KeySID    string
	KeySecret string
	HTTP      *http.Client
}

// NewClient creates a provider client.
func NewClient(baseURL, keySID, keySecret string) *Client {
	return &Client{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		KeySID:    keySID,
		KeySecret: keySecret,
		HTTP:      &http.Client{Timeout: 15 * time.Second},
	}
}

type roomPage struct {
	Rooms []Room `json:"rooms"`
	Meta  struct {
		NextPageURL string `json:"next_page_url"`
	} `json:"meta"`
}

// ListRooms walks the paged room listing until the provider reports no next page.
func (c *Client) ListRooms(ctx context.Context) ([]Room, error) {
	var all []Room
	next := c.BaseURL + "/v1/Rooms?PageSize=50"
	for next != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, next, nil)
		if err != nil {
			return nil, err
		}
		var page roomPage
		if err := c.do(req, &page); err != nil {
			return nil, err
		}
		all = append(all, page.Rooms...)
		next = page.Meta.NextPageURL
	}
	return all, nil
}

// CreateRoom provisions a room with the given friendly name.
func (c *Client) CreateRoom(ctx context.Context, friendlyName string) (Room, error) {
	form := url.Values{"FriendlyName": {friendlyName}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.BaseURL+"/v1/Rooms", strings.NewReader(form.Encode()))
	if err != nil {
		return Room{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	var room Room
	if err := c.do(req, &room); err != nil {
		return Room{}, err
	}
	return room, nil
}

// AddParticipant joins an identity to the room's chat channel. A conflict
// response surfaces as *ProviderError with StatusCode 409.
func (c *Client) AddParticipant(ctx context.Context, roomSID, identity string) error {
	form := url.Values{"Identity": {identity}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/v1/Rooms/%s/Participants", c.BaseURL, url.PathEscape(roomSID)),
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, out any) error {
	req.SetBasicAuth(c.KeySID, c.KeySecret)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("room provider request failed: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		perr := &ProviderError{StatusCode: resp.StatusCode}
		var detail struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &detail) == nil {
			perr.Code = detail.Code
			perr.Message = detail.Message
		}
		if perr.Message == "" {
			perr.Message = strings.TrimSpace(string(body))
		}
		return perr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
