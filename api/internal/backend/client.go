package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

const maxBodyBytes = 4 << 20

// Client talks to the generation backend. It is safe for concurrent use.
type Client struct {
	BaseURL string
	Variant Variant
	httpc   *http.Client
}

func New(baseURL string, variant Variant, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		Variant: variant,
		httpc:   &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient replaces the transport, mostly for tests.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.httpc = h
	return c
}

// ListStyles fetches the style catalog.
func (c *Client) ListStyles(ctx context.Context) ([]Style, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/styles", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req, "styles")
	if err != nil {
		return nil, err
	}
	var out []Style
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: styles: %v", ErrMalformedResponse, err)
	}
	return out, nil
}

// Generate uploads the image and returns the generated text.
func (c *Client) Generate(ctx context.Context, in GenerateRequest) (string, error) {
	payload, contentType, err := c.encode(in)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+c.Variant.Endpoint(), bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req, "generate")
	if err != nil {
		return "", err
	}

	var out map[string]json.RawMessage
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: generate: %v", ErrMalformedResponse, err)
	}
	raw, ok := out[c.Variant.ResultField()]
	if !ok {
		return "", fmt.Errorf("%w: generate: no %q field", ErrMalformedResponse, c.Variant.ResultField())
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return "", fmt.Errorf("%w: generate: %q is not a string", ErrMalformedResponse, c.Variant.ResultField())
	}
	return text, nil
}

// Health pings GET /api/health.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/api/health", nil)
	if err != nil {
		return err
	}
	_, err = c.do(req, "health")
	return err
}

func (c *Client) encode(in GenerateRequest) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, FieldFile, in.File.Name))
	mt := in.File.MIME
	if mt == "" {
		mt = "application/octet-stream"
	}
	h.Set("Content-Type", mt)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(in.File.Data); err != nil {
		return nil, "", err
	}
	if c.Variant.UsesStyles() && in.StyleID != "" {
		if err := w.WriteField(FieldStyleID, in.StyleID); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// do executes req and returns the body of a 2xx answer. Non-2xx answers
// become *HTTPError.
func (c *Client) do(req *http.Request, op string) ([]byte, error) {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Op: op, StatusCode: resp.StatusCode, Detail: parseDetail(body)}
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", op, err)
	}
	return body, nil
}
