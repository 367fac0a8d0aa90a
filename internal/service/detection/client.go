package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"potholewatch/internal/logger"
)

const dataURIPrefix = "data:image"

// Result is a normalized detector response.
type Result struct {
	AnnotatedImage string // always a data URI
	PotholeCount   int
}

// processFrameResponse mirrors the JSON returned by POST /process_frame/.
type processFrameResponse struct {
	ProcessedImage string `json:"processed_image"`
	PotholeCount   *int   `json:"pothole_count"`
	Error          string `json:"error"`
}

type errorResponse struct {
	Message string          `json:"message"`
	Detail  json.RawMessage `json:"detail"`
}

// Client talks to the remote pothole detector.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *logger.Logger
}

// NewClient creates a detector client rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Detect uploads one JPEG frame. It never retries.
func (c *Client) Detect(ctx context.Context, payload []byte) (*Result, error) {
	body, contentType, err := frameForm(payload)
	if err != nil {
		return nil, &RequestError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/process_frame/", body)
	if err != nil {
		return nil, &RequestError{Err: err}
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, &RequestError{Err: err}
		}
		return nil, fmt.Errorf("%w: %v", ErrNoResponse, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoResponse, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ServerError{StatusCode: resp.StatusCode, Message: errorMessage(resp, data)}
	}

	var parsed processFrameResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, &RequestError{Err: fmt.Errorf("failed to decode detector response: %w", err)}
	}
	if parsed.ProcessedImage == "" {
		if parsed.Error != "" {
			return nil, &RequestError{Err: errors.New(parsed.Error)}
		}
		return nil, &RequestError{Err: errors.New("detector returned no image")}
	}

	result := &Result{AnnotatedImage: NormalizeImage(parsed.ProcessedImage)}
	if parsed.PotholeCount != nil && *parsed.PotholeCount > 0 {
		result.PotholeCount = *parsed.PotholeCount
	}

	c.logger.Info("🕳️ Detector returned %d pothole(s)", result.PotholeCount)
	return result, nil
}

// Ping checks that the detection service is reachable.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/ping", nil)
	if err != nil {
		return &RequestError{Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoResponse, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &ServerError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	return nil
}

// NormalizeImage turns a bare base64 payload into a JPEG data URI.
func NormalizeImage(image string) string {
	if strings.HasPrefix(image, dataURIPrefix) {
		return image
	}
	return "data:image/jpeg;base64," + image
}

func frameForm(payload []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="frame.jpg"`)
	header.Set("Content-Type", "image/jpeg")

	part, err := writer.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(payload); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}

func errorMessage(resp *http.Response, data []byte) string {
	var parsed errorResponse
	if err := json.Unmarshal(data, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		var detail string
		if err := json.Unmarshal(parsed.Detail, &detail); err == nil && detail != "" {
			return detail
		}
	}
	if text := http.StatusText(resp.StatusCode); text != "" {
		return text
	}
	return resp.Status
}
