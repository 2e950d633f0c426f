package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
)

// Upload posts a manifest as multipart form data with fields "file" and
// "driverId".
func (c *Client) Upload(ctx context.Context, token string, driverID int64, filename string, file io.Reader) error {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("driverId", strconv.FormatInt(driverID, 10)); err != nil {
		return fmt.Errorf("write driverId field: %w", err)
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("copy manifest: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/uploads", token, &body, mw.FormDataContentType())
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if !ok(resp) {
		return decodeError(resp, "Upload failed.")
	}
	return nil
}
