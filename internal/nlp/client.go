package nlp

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

// Client talks to an NLP service over JSON.
//
//	POST {url}/sentiment     {"text": "..."}    -> {"score": -0.8}
//	POST {url}/noun-phrases  {"words": [...]}   -> {"phrases": ["my mother"]}
//	POST {url}/crisis        {"text": "..."}    -> {"crisis": true}
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the service at baseURL. A zero timeout
// means 10s.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type textRequest struct {
	Text string `json:"text"`
}

type wordsRequest struct {
	Words []string `json:"words"`
}

type sentimentResponse struct {
	Score float64 `json:"score"`
}

type phrasesResponse struct {
	Phrases []string `json:"phrases"`
}

type crisisResponse struct {
	Crisis bool `json:"crisis"`
}

func (c *Client) Score(ctx context.Context, text string) (float64, error) {
	var result sentimentResponse
	if err := c.post(ctx, "/sentiment", textRequest{Text: text}, &result); err != nil {
		return 0, err
	}
	return result.Score, nil
}

func (c *Client) NounPhrases(ctx context.Context, words []string) ([]string, error) {
	var result phrasesResponse
	if err := c.post(ctx, "/noun-phrases", wordsRequest{Words: words}, &result); err != nil {
		return nil, err
	}
	return result.Phrases, nil
}

func (c *Client) IsCrisis(ctx context.Context, text string) (bool, error) {
	var result crisisResponse
	if err := c.post(ctx, "/crisis", textRequest{Text: text}, &result); err != nil {
		return false, err
	}
	return result.Crisis, nil
}

func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("nlp request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("nlp error %d on %s: %s", resp.StatusCode, path, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
