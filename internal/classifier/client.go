package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Classification is the external service's verdict on one video frame.
type Classification struct {
	Identity   string  `json:"identity"`
	Emotion    string  `json:"emotion"`
	Attention  string  `json:"attention"`
	Confidence float64 `json:"confidence"`
}

// EnrollResult is the response to enrolling a reference photo.
type EnrollResult struct {
	Identity string `json:"identity"`
	Success  bool   `json:"success"`
	Message  string `json:"message"`
}

// Client calls the face/emotion classification microservice. The algorithm
// behind it is opaque to this service; only its results are recorded.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client. Skip makes every call return canned results so the
// rest of the system runs without the classifier.
func New(baseURL string, skip bool) *Client {
	return &Client{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP: &http.Client{
			Timeout: 30 * time.Second, // frame analysis can take time
		},
	}
}

// Classify asks the service who is in the frame and how engaged they look.
func (c *Client) Classify(ctx context.Context, imageURL string) (*Classification, error) {
	if c.Skip {
		return &Classification{
			Identity:   "mock-student",
			Emotion:    "Normal",
			Attention:  "Yes",
			Confidence: 0.95,
		}, nil
	}
	if imageURL == "" {
		return nil, fmt.Errorf("image url required")
	}

	body, _ := json.Marshal(map[string]string{"image_url": imageURL})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/classify", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("classifier error %s: %s", resp.Status, string(bodyBytes))
	}

	var out Classification
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Identity == "" {
		return nil, fmt.Errorf("no face recognized in frame")
	}
	return &out, nil
}

// Enroll registers a reference photo for an identity so later frames can be
// matched against it.
func (c *Client) Enroll(ctx context.Context, identity, imageURL string) (*EnrollResult, error) {
	if c.Skip {
		return &EnrollResult{Identity: identity, Success: true, Message: "enrolled (mock)"}, nil
	}

	body, _ := json.Marshal(map[string]string{
		"identity":  identity,
		"image_url": imageURL,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/enroll", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("classifier request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("classifier error %s: %s", resp.Status, string(bodyBytes))
	}

	var out EnrollResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

// Health checks if the classifier is reachable.
func (c *Client) Health(ctx context.Context) error {
	if c.Skip {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("classifier unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("classifier unhealthy: %s", resp.Status)
	}
	return nil
}
