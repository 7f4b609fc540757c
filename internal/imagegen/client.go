// Package imagegen talks to the image generation agent used by the debug
// image pipeline.
package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultEndpoint   = "https://api.openai.com/v1/images/generations"
	defaultModel      = "gpt-image-1"
	defaultSize       = "1536x1024"
	defaultOutputDir  = "public/images/generated"
	defaultPublicPath = "/images/generated"
)

// Options tune a single generation.
type Options struct {
	Size    string `json:"size,omitempty"`
	Quality string `json:"quality,omitempty"`
	Style   string `json:"style,omitempty"`
}

// Result reports the outcome of one generation. Failures are carried in
// Error rather than returned.
type Result struct {
	Success        bool          `json:"success"`
	ImageURL       string        `json:"imageUrl,omitempty"`
	ProcessingTime time.Duration `json:"processingTime"`
	Error          string        `json:"error,omitempty"`
}

// Agent generates an image from a natural-language intent.
type Agent interface {
	Generate(ctx context.Context, intent string, opts Options) Result
}

// Config selects the image API. Images returned inline as base64 are written
// to OutputDir and served under PublicPath.
type Config struct {
	Endpoint   string
	APIKey     string
	Model      string
	OutputDir  string
	PublicPath string
}

// Client is an Agent backed by an OpenAI-compatible images endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client
	now        func() time.Time
}

// NewClient returns a Client. Without an API key it hands out placeholder images.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = defaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = defaultOutputDir
	}
	if cfg.PublicPath == "" {
		cfg.PublicPath = defaultPublicPath
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Client{cfg: cfg, httpClient: httpClient, now: time.Now}
}

// Generate produces one image for intent.
func (c *Client) Generate(ctx context.Context, intent string, opts Options) Result {
	start := c.now()
	url, err := c.generate(ctx, intent, opts)
	elapsed := c.now().Sub(start)
	if err != nil {
		return Result{ProcessingTime: elapsed, Error: err.Error()}
	}
	return Result{Success: true, ImageURL: url, ProcessingTime: elapsed}
}

func (c *Client) generate(ctx context.Context, intent string, opts Options) (string, error) {
	if strings.TrimSpace(intent) == "" {
		return "", fmt.Errorf("empty intent")
	}
	if c.cfg.APIKey == "" {
		return c.placeholderURL(intent), nil
	}

	size := opts.Size
	if size == "" {
		size = defaultSize
	}
	payload := imageRequest{
		Model:   c.cfg.Model,
		Prompt:  intent,
		N:       1,
		Size:    size,
		Quality: opts.Quality,
	}
	// Only dall-e models take a response format, and only dall-e-3 a style.
	// gpt-image models always answer with b64_json.
	if strings.HasPrefix(c.cfg.Model, "dall-e") {
		payload.ResponseFormat = "url"
	}
	if strings.HasPrefix(c.cfg.Model, "dall-e-3") {
		payload.Style = opts.Style
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("image api error: status %d body %s", resp.StatusCode, truncate(string(body), 512))
	}

	var ir imageResponse
	if err := json.Unmarshal(body, &ir); err != nil {
		return "", err
	}
	if len(ir.Data) == 0 {
		return "", fmt.Errorf("image api response missing data")
	}
	img := ir.Data[0]
	if url := strings.TrimSpace(img.URL); url != "" {
		return url, nil
	}
	if img.B64JSON == "" {
		return "", fmt.Errorf("image api response missing image")
	}
	return c.saveImage(img.B64JSON)
}

// saveImage decodes a base64 PNG into OutputDir and returns its public path.
func (c *Client) saveImage(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}
	if err := os.MkdirAll(c.cfg.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}
	name := uuid.NewString() + ".png"
	if err := os.WriteFile(filepath.Join(c.cfg.OutputDir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return path.Join(c.cfg.PublicPath, name), nil
}

// placeholderURL returns a stable stand-in image path for intent.
func (c *Client) placeholderURL(intent string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(intent))
	return path.Join(c.cfg.PublicPath, fmt.Sprintf("placeholder-%016x.png", h.Sum64()))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

type imageRequest struct {
	Model          string `json:"model"`
	Prompt         string `json:"prompt"`
	N              int    `json:"n"`
	Size           string `json:"size"`
	Quality        string `json:"quality,omitempty"`
	Style          string `json:"style,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

type imageResponse struct {
	Data []struct {
		URL           string `json:"url"`
		B64JSON       string `json:"b64_json"`
		RevisedPrompt string `json:"revised_prompt"`
	} `json:"data"`
}
