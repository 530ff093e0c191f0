package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/lazypower/caffeine/internal/catalog"
	"github.com/lazypower/caffeine/internal/engine"
	"github.com/lazypower/caffeine/internal/intake"
)

const (
	defaultServerURL = "http://127.0.0.1:37778"
	httpTimeout      = 5 * time.Second
)

// Client talks to a running caffeine server.
type Client struct {
	http      *http.Client
	serverURL string
}

// New creates a client for serverURL. An empty URL uses CAFFEINE_URL, then
// http://127.0.0.1:37778.
func New(serverURL string) *Client {
	if serverURL == "" {
		serverURL = os.Getenv("CAFFEINE_URL")
	}
	if serverURL == "" {
		serverURL = defaultServerURL
	}
	return &Client{
		http:      &http.Client{Timeout: httpTimeout},
		serverURL: serverURL,
	}
}

// URL returns the server base URL.
func (c *Client) URL() string {
	return c.serverURL
}

func (c *Client) do(method, path string, body []byte) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, c.serverURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response %s: %w", path, err)
	}
	if resp.StatusCode >= 400 {
		return data, &StatusError{Method: method, Path: path, Code: resp.StatusCode, Message: errorMessage(data)}
	}
	return data, nil
}

// StatusError is returned for 4xx/5xx responses.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Message)
}

func errorMessage(data []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		return body.Error
	}
	return string(bytes.TrimSpace(data))
}

// Get sends a GET request. Returns response body.
func (c *Client) Get(path string) ([]byte, error) {
	return c.do(http.MethodGet, path, nil)
}

// Post sends a POST request with JSON body. Returns response body.
func (c *Client) Post(path string, body []byte) ([]byte, error) {
	return c.do(http.MethodPost, path, body)
}

// Delete sends a DELETE request. Returns response body.
func (c *Client) Delete(path string) ([]byte, error) {
	return c.do(http.MethodDelete, path, nil)
}

// Healthy checks if the server is reachable.
func (c *Client) Healthy() bool {
	resp, err := c.http.Get(c.serverURL + "/api/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// AddRequest is the body of POST /api/intakes. Set AmountMg or Drink.
type AddRequest struct {
	AmountMg *float64 `json:"amount_mg,omitempty"`
	Label    string   `json:"label,omitempty"`
	Drink    string   `json:"drink,omitempty"`
}

// AddIntake logs a dose on the server.
func (c *Client) AddIntake(req AddRequest) (intake.Intake, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return intake.Intake{}, fmt.Errorf("encode intake: %w", err)
	}
	data, err := c.Post("/api/intakes", body)
	if err != nil {
		return intake.Intake{}, err
	}
	var in intake.Intake
	if err := json.Unmarshal(data, &in); err != nil {
		return intake.Intake{}, fmt.Errorf("decode intake: %w", err)
	}
	return in, nil
}

// RemoveIntake deletes a dose. It reports whether the id existed.
func (c *Client) RemoveIntake(id string) (bool, error) {
	data, err := c.Delete("/api/intakes/" + url.PathEscape(id))
	if err != nil {
		return false, err
	}
	var body struct {
		Removed bool `json:"removed"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return false, fmt.Errorf("decode remove: %w", err)
	}
	return body.Removed, nil
}

// ListIntakes returns the server's intake log.
func (c *Client) ListIntakes() ([]intake.Intake, error) {
	data, err := c.Get("/api/intakes")
	if err != nil {
		return nil, err
	}
	var body struct {
		Intakes []intake.Intake `json:"intakes"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("decode intakes: %w", err)
	}
	return body.Intakes, nil
}

// Level returns the server's latest live reading.
func (c *Client) Level() (engine.Reading, error) {
	data, err := c.Get("/api/level")
	if err != nil {
		return engine.Reading{}, err
	}
	var rd engine.Reading
	if err := json.Unmarshal(data, &rd); err != nil {
		return engine.Reading{}, fmt.Errorf("decode level: %w", err)
	}
	return rd, nil
}

// Series returns the decay curve and the half-life it was computed with.
func (c *Client) Series() ([]engine.Point, float64, error) {
	data, err := c.Get("/api/series")
	if err != nil {
		return nil, 0, err
	}
	var body struct {
		HalfLife float64        `json:"half_life_hours"`
		Points   []engine.Point `json:"points"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, 0, fmt.Errorf("decode series: %w", err)
	}
	return body.Points, body.HalfLife, nil
}

// Drinks returns the server's drink catalog.
func (c *Client) Drinks() ([]catalog.Drink, error) {
	data, err := c.Get("/api/drinks")
	if err != nil {
		return nil, err
	}
	var body struct {
		Drinks []catalog.Drink `json:"drinks"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return nil, fmt.Errorf("decode drinks: %w", err)
	}
	return body.Drinks, nil
}
