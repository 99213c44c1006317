package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"facematch/internal/config"
	"facematch/internal/core/models"

	log "github.com/sirupsen/logrus"
)

var logFields = log.Fields{
	"component": "detector",
}

// APIClient reaches the detection/embedding service over HTTP.
type APIClient struct {
	config     config.DetectorConfig
	httpClient *http.Client
}

type apiInfoResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type apiDetectResponse struct {
	Status     string `json:"status"`
	FacesCount int    `json:"faces_count"`
	Faces      []struct {
		BoundingBox []int     `json:"bbox"`
		Embedding   []float64 `json:"embedding"`
	} `json:"faces"`
}

// NewAPIClient creates a client with the configured request timeout.
func NewAPIClient(cfg config.DetectorConfig) *APIClient {
	return &APIClient{
		config: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// Ping reports whether the detection service answers its info endpoint.
func (c *APIClient) Ping(ctx context.Context) bool {
	if !c.config.Enabled {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/info", c.config.URL), nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false
	}

	var info apiInfoResponse
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return false
	}
	return info.Status == "ok"
}

// Detect uploads the image and returns the detected faces in the order the
// service reports them. All failures wrap ErrPipelineUnavailable so the
// caller can apply its fallback policy.
func (c *APIClient) Detect(ctx context.Context, image []byte) ([]models.Detection, error) {
	if !c.config.Enabled {
		return nil, fmt.Errorf("%w: detector disabled", models.ErrPipelineUnavailable)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "image.jpg")
	if err != nil {
		return nil, fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, bytes.NewReader(image)); err != nil {
		return nil, fmt.Errorf("copying image data: %w", err)
	}
	if err := writer.WriteField("extract_embedding", "true"); err != nil {
		return nil, fmt.Errorf("writing form field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("closing form writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/detect", c.config.URL), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPipelineUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: unexpected status %d: %s", models.ErrPipelineUnavailable, resp.StatusCode, string(respBody))
	}

	var apiResp apiDetectResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", models.ErrPipelineUnavailable, err)
	}
	if apiResp.Status != "ok" {
		return nil, fmt.Errorf("%w: service status %q", models.ErrPipelineUnavailable, apiResp.Status)
	}

	detections := make([]models.Detection, 0, len(apiResp.Faces))
	for _, face := range apiResp.Faces {
		det := models.Detection{Embedding: face.Embedding}
		if len(face.BoundingBox) == 4 {
			copy(det.BoundingBox[:], face.BoundingBox)
		}
		detections = append(detections, det)
	}

	log.WithFields(logFields).Debugf("Detection service reported %d face(s)", len(detections))
	return detections, nil
}
