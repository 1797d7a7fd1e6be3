package geomservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/fabworks/partquote/internal/core/ports"
)

// postAnalyze submits the file as a multipart form, the way slicer frontends
// post CAD uploads, with the metadata as plain form fields.
func (c *Client) postAnalyze(ctx context.Context, req ports.GeometryRequest, out *analyzeResponse) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", req.Filename)
	if err != nil {
		return fmt.Errorf("create multipart file: %w", err)
	}
	if _, err := part.Write(req.Data); err != nil {
		return fmt.Errorf("write multipart file: %w", err)
	}

	fields := map[string]string{
		"content_hash": req.ContentHash,
		"material":     req.Material,
		"tolerance":    req.Tolerance,
	}
	for name, value := range fields {
		if value == "" {
			continue
		}
		if err := writer.WriteField(name, value); err != nil {
			return fmt.Errorf("write multipart field %s: %w", name, err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close multipart writer: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/analyze", &body)
	if err != nil {
		return fmt.Errorf("create analyze request: %w", err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("geometry analyze request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return newHTTPStatusError("analyze", resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode analyze response: %w", err)
	}
	return nil
}
