package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// CloudOCRConfig configures the cloud OCR tier.
type CloudOCRConfig struct {
	APIKey      string
	Endpoint    string
	Engine      string
	Language    string
	MaxFileSize int64
	Timeout     time.Duration
}

// CloudOCRClient sends a whole document to an external OCR service in a
// single call. The service handles both text and scanned PDFs itself.
type CloudOCRClient struct {
	config     CloudOCRConfig
	httpClient *http.Client
}

// NewCloudOCRClient creates a client for an OCR.space-compatible endpoint.
func NewCloudOCRClient(cfg CloudOCRConfig) *CloudOCRClient {
	if cfg.Engine == "" {
		cfg.Engine = "2"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	return &CloudOCRClient{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// cloudOCRResponse is the service's JSON body: parsed-text segments per
// region, or a processing-error flag with messages.
type cloudOCRResponse struct {
	ParsedResults []struct {
		ParsedText        string `json:"ParsedText"`
		FileParseExitCode int    `json:"FileParseExitCode"`
		ErrorMessage      string `json:"ErrorMessage"`
	} `json:"ParsedResults"`
	OCRExitCode           any    `json:"OCRExitCode"`
	IsErroredOnProcessing bool   `json:"IsErroredOnProcessing"`
	ErrorMessage          any    `json:"ErrorMessage"`
	ErrorDetails          string `json:"ErrorDetails"`
}

// Recognize posts the raw document as a multipart file field and returns the
// full extracted text. The document size ceiling is checked before any
// network traffic; the request is bounded by the configured timeout and
// cancelled on expiry.
func (c *CloudOCRClient) Recognize(ctx context.Context, doc Document) (string, error) {
	if int64(len(doc.Data)) > c.config.MaxFileSize {
		return "", fmt.Errorf("%w: %d bytes over %d byte limit", ErrSizeExceeded, len(doc.Data), c.config.MaxFileSize)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	body, contentType, err := c.buildRequestBody(doc)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("apikey", c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: cloud OCR request exceeded %s", ErrTimeout, c.config.Timeout)
		}
		return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: cloud OCR returned status %d", ErrServiceUnavailable, resp.StatusCode)
	}

	var parsed cloudOCRResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: malformed cloud OCR response: %v", ErrServiceUnavailable, err)
	}

	if parsed.IsErroredOnProcessing {
		return "", fmt.Errorf("%w: %s", ErrProcessingFailed, cloudErrorMessage(parsed))
	}

	var text strings.Builder
	for _, region := range parsed.ParsedResults {
		if region.ParsedText == "" {
			continue
		}
		if text.Len() > 0 {
			text.WriteString("\n")
		}
		text.WriteString(strings.TrimSpace(region.ParsedText))
	}

	result := strings.TrimSpace(text.String())
	if result == "" {
		return "", fmt.Errorf("%w: cloud OCR returned no text", ErrProcessingFailed)
	}

	log.Debug().
		Int("regions", len(parsed.ParsedResults)).
		Int("text_length", len(result)).
		Msg("Cloud OCR extraction completed")

	return result, nil
}

// buildRequestBody assembles the multipart form: API key, language hint,
// engine selector, and the document bytes as a file field.
func (c *CloudOCRClient) buildRequestBody(doc Document) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := map[string]string{
		"apikey":    c.config.APIKey,
		"language":  c.config.Language,
		"OCREngine": c.config.Engine,
		"scale":     "true",
	}
	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			return nil, "", err
		}
	}

	filename := doc.Filename
	if filename == "" {
		filename = "document.pdf"
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(doc.Data); err != nil {
		return nil, "", err
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return &buf, w.FormDataContentType(), nil
}

// cloudErrorMessage flattens the service's error fields, which may be a
// string or a list of strings depending on the failure.
func cloudErrorMessage(resp cloudOCRResponse) string {
	switch v := resp.ErrorMessage.(type) {
	case string:
		if v != "" {
			return v
		}
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "; ")
		}
	}
	if resp.ErrorDetails != "" {
		return resp.ErrorDetails
	}
	return "service reported a processing error"
}
