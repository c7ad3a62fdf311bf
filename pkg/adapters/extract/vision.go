package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jorge-rr00/newbackend/pkg/domain"
	"github.com/jorge-rr00/newbackend/pkg/faults"
)

const (
	visionProvider   = "azure-vision"
	visionAPIVersion = "2023-10-01"
	maxVisionBody    = 8 << 20
)

// Vision runs optical character recognition with the Azure AI Vision
// Image Analysis "read" feature.
type Vision struct {
	endpoint string
	key      string
	client   *http.Client
}

// VisionOption configures a Vision extractor.
type VisionOption func(*Vision)

// WithVisionHTTPClient replaces the default HTTP client.
func WithVisionHTTPClient(c *http.Client) VisionOption {
	return func(v *Vision) {
		if c != nil {
			v.client = c
		}
	}
}

// NewVision returns an OCR extractor for the resource at endpoint.
func NewVision(endpoint, key string, opts ...VisionOption) *Vision {
	v := &Vision{
		endpoint: strings.TrimRight(endpoint, "/"),
		key:      key,
		client:   http.DefaultClient,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

type readResponse struct {
	ReadResult struct {
		Blocks []struct {
			Lines []struct {
				Text string `json:"text"`
			} `json:"lines"`
		} `json:"blocks"`
	} `json:"readResult"`
}

func (v *Vision) Extract(ctx context.Context, blob []byte, kind domain.Kind) (string, error) {
	url := fmt.Sprintf("%s/computervision/imageanalysis:analyze?api-version=%s&features=read", v.endpoint, visionAPIVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(blob))
	if err != nil {
		return "", fmt.Errorf("build vision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Ocp-Apim-Subscription-Key", v.key)

	resp, err := v.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", &faults.ExtractionError{Kind: string(kind), Cause: err, Retryable: faults.IsRetryableError(err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxVisionBody))
	if err != nil {
		return "", &faults.ExtractionError{Kind: string(kind), Cause: fmt.Errorf("read vision response: %w", err), Retryable: true}
	}

	if resp.StatusCode != http.StatusOK {
		pe := faults.FromResponse(visionProvider, resp.StatusCode, resp.Header, body)
		return "", &faults.ExtractionError{Kind: string(kind), Cause: pe, Retryable: pe.IsRetryable()}
	}

	var out readResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", &faults.ExtractionError{Kind: string(kind), Cause: fmt.Errorf("decode vision response: %w", err)}
	}

	var lines []string
	for _, b := range out.ReadResult.Blocks {
		for _, l := range b.Lines {
			if l.Text != "" {
				lines = append(lines, l.Text)
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}
