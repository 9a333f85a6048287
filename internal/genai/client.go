// Package genai is the adapter for the Gemini generateContent REST API used
// for masked edits, variations and blend composition.
package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"product-studio/internal/edit"
	studioimage "product-studio/internal/image"
)

const (
	defaultBaseURL    = "https://generativelanguage.googleapis.com"
	defaultAPIVersion = "v1beta"
	defaultModel      = "gemini-2.5-flash-image"
)

var (
	// ErrNoImage is returned when a response carries no image part.
	ErrNoImage = errors.New("response contained no image")
	// ErrNoAPIKey is returned before any request when no key is configured.
	ErrNoAPIKey = errors.New("API key is not configured")
)

// APIError is a failed or refused generation. Reason is the user-facing text.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
	Blocked    bool
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("gemini API %d %s: %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("gemini API %d: %s", e.StatusCode, e.Message)
}

// Reason returns the message to show the user.
func (e *APIError) Reason() string {
	if e.Blocked {
		return "request blocked by the safety filter: " + e.Message
	}
	return e.Message
}

// Options configures a Client.
type Options struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	Model      string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to the image model.
type Client struct {
	apiKey     string
	baseURL    string
	apiVersion string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a client. A nil HTTPClient uses http.DefaultClient.
func New(opts Options) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		apiVersion: apiVersion,
		model:      model,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Edit performs a masked edit: the instruction, the image and the black and
// white mask are sent together and the edited image is returned.
func (c *Client) Edit(ctx context.Context, req edit.Request) (image.Image, error) {
	if req.Mask == nil {
		return nil, edit.ErrEmptyMask
	}
	base, err := inline(req.Base)
	if err != nil {
		return nil, fmt.Errorf("encode base image: %w", err)
	}
	mask, err := inline(req.Mask)
	if err != nil {
		return nil, fmt.Errorf("encode mask: %w", err)
	}
	instruction := req.Instruction
	if instruction == "" {
		instruction = edit.Instruction(edit.EditGeneral, req.Prompt)
	}

	parts := []part{
		{Text: instruction},
		{Text: "Image to edit:"},
		{InlineData: &base},
		{Text: "Mask (white = area to change, black = keep exactly):"},
		{InlineData: &mask},
		{Text: "Return only the edited image at the same size."},
	}
	return c.generateImage(ctx, parts)
}

// Generate creates a new image from source and prompt. It serves both
// variations and blend composition.
func (c *Client) Generate(ctx context.Context, source image.Image, prompt string) (image.Image, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, errors.New("prompt is empty")
	}
	parts := []part{{Text: prompt}}
	if source != nil {
		src, err := inline(source)
		if err != nil {
			return nil, fmt.Errorf("encode source image: %w", err)
		}
		parts = append(parts, part{InlineData: &src})
	}
	return c.generateImage(ctx, parts)
}

func (c *Client) generateImage(ctx context.Context, parts []part) (image.Image, error) {
	req := generateContentRequest{
		Contents: []content{{Role: "user", Parts: parts}},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		},
	}

	start := time.Now()
	resp, err := c.generateContent(ctx, req)
	if err != nil {
		return nil, err
	}
	img, err := firstImage(resp)
	if err != nil {
		return nil, err
	}
	c.logger.Info("image generated", "model", c.model, "elapsed", time.Since(start),
		"width", img.Bounds().Dx(), "height", img.Bounds().Dy())
	return img, nil
}

func (c *Client) generateContent(ctx context.Context, payload generateContentRequest) (generateContentResponse, error) {
	if c.apiKey == "" {
		return generateContentResponse{}, ErrNoAPIKey
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, c.apiVersion, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	c.logger.Debug("gemini request", "model", c.model, "bytes", len(body))
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("request: %w", err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		return generateContentResponse{}, decodeAPIError(httpResp.StatusCode, rawBody)
	}

	var decoded generateContentResponse
	if err := json.Unmarshal(rawBody, &decoded); err != nil {
		return generateContentResponse{}, fmt.Errorf("decode response: %w", err)
	}
	if reason := decoded.PromptFeedback.BlockReason; reason != "" {
		return generateContentResponse{}, &APIError{StatusCode: httpResp.StatusCode, Message: reason, Blocked: true}
	}
	return decoded, nil
}

func decodeAPIError(status int, body []byte) error {
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error.Message != "" {
		return &APIError{StatusCode: status, Status: env.Error.Status, Message: env.Error.Message}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &APIError{StatusCode: status, Message: msg}
}

// firstImage returns the first inline image of the first candidate.
func firstImage(resp generateContentResponse) (image.Image, error) {
	if len(resp.Candidates) == 0 {
		return nil, ErrNoImage
	}
	cand := resp.Candidates[0]
	var text strings.Builder
	for _, p := range cand.Content.Parts {
		if p.InlineData != nil && p.InlineData.Data != "" {
			data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("decode inline data: %w", err)
			}
			return studioimage.Decode(bytes.NewReader(data))
		}
		text.WriteString(p.Text)
	}
	if blockedFinish(cand.FinishReason) {
		return nil, &APIError{StatusCode: http.StatusOK, Message: cand.FinishReason, Blocked: true}
	}
	if t := strings.TrimSpace(text.String()); t != "" {
		return nil, fmt.Errorf("%w: model replied %q", ErrNoImage, t)
	}
	return nil, ErrNoImage
}

func blockedFinish(reason string) bool {
	switch reason {
	case "SAFETY", "PROHIBITED_CONTENT", "BLOCKLIST", "IMAGE_SAFETY", "RECITATION":
		return true
	}
	return false
}

func inline(img image.Image) (blob, error) {
	if img == nil {
		return blob{}, studioimage.ErrNoImage
	}
	data, err := studioimage.EncodePNG(img)
	if err != nil {
		return blob{}, err
	}
	return blob{
		Data:     base64.StdEncoding.EncodeToString(data),
		MimeType: "image/png",
	}, nil
}
