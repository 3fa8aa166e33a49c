package infra

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cjmurphy27/barn-management-sub000/internal/dto"
)

// ErrMalformedReceipt is returned when the extractor answers 200 with a body
// that does not satisfy the receipt contract.
var ErrMalformedReceipt = errors.New("extractor: malformed receipt payload")

// ExtractRequest is sent to the receipt extraction service.
type ExtractRequest struct {
	BarnID      string `json:"barn_id"`
	ContentType string `json:"content_type"`
	ImageBase64 string `json:"image_base64"`
}

// ReceiptExtractor is an HTTP client for the external receipt extraction
// service. The extraction algorithm lives entirely on the other side.
type ReceiptExtractor struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cb         *CircuitBreaker
}

// NewReceiptExtractor builds a client. cb may be nil to disable fast-fail.
func NewReceiptExtractor(baseURL, apiKey string, timeout time.Duration, cb *CircuitBreaker) *ReceiptExtractor {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ReceiptExtractor{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		cb:         cb,
	}
}

// Breaker exposes the circuit breaker for health reporting (may be nil).
func (c *ReceiptExtractor) Breaker() *CircuitBreaker { return c.cb }

// Extract posts the image and decodes the structured receipt.
func (c *ReceiptExtractor) Extract(ctx context.Context, barnID string, image []byte, contentType string) (*dto.ExtractedReceipt, error) {
	var out *dto.ExtractedReceipt
	call := func() error {
		r, err := c.extract(ctx, barnID, image, contentType)
		if err != nil {
			return err
		}
		out = r
		return nil
	}
	if c.cb == nil {
		return out, call()
	}
	return out, c.cb.Execute(call)
}

func (c *ReceiptExtractor) extract(ctx context.Context, barnID string, image []byte, contentType string) (*dto.ExtractedReceipt, error) {
	body, err := json.Marshal(ExtractRequest{
		BarnID:      barnID,
		ContentType: contentType,
		ImageBase64: base64.StdEncoding.EncodeToString(image),
	})
	if err != nil {
		return nil, fmt.Errorf("extractor: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("extractor: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extractor: unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extractor: returned %d", resp.StatusCode)
	}

	var result struct {
		dto.ExtractedReceipt
		Items *[]dto.ExtractedItem `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReceipt, err)
	}
	if result.Items == nil {
		return nil, fmt.Errorf("%w: missing items", ErrMalformedReceipt)
	}
	receipt := result.ExtractedReceipt
	receipt.Items = *result.Items
	return &receipt, nil
}
