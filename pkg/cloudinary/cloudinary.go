// Package cloudinary uploads images (invoice QR codes) to Cloudinary and
// returns their public HTTPS URLs.
package cloudinary

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Config holds Cloudinary credentials.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
	Timeout   time.Duration
	// UploadURL overrides the API endpoint, used by tests.
	UploadURL string
}

// Client is a Cloudinary upload client.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a Cloudinary client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.UploadURL == "" {
		cfg.UploadURL = fmt.Sprintf("https://api.cloudinary.com/v1_1/%s/image/upload", cfg.CloudName)
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// Upload performs a signed image upload and returns the secure URL.
func (c *Client) Upload(ctx context.Context, publicID string, data []byte) (string, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	// Signature: SHA-1 over the alphabetically ordered params + API secret.
	params := fmt.Sprintf("folder=%s&public_id=%s&timestamp=%s%s",
		c.cfg.Folder, publicID, timestamp, c.cfg.APISecret)
	sum := sha1.Sum([]byte(params))
	signature := hex.EncodeToString(sum[:])

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	fields := map[string]string{
		"api_key":   c.cfg.APIKey,
		"timestamp": timestamp,
		"signature": signature,
		"public_id": publicID,
		"folder":    c.cfg.Folder,
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return "", fmt.Errorf("write upload field %s: %w", name, err)
		}
	}
	part, err := writer.CreateFormFile("file", publicID+".png")
	if err != nil {
		return "", fmt.Errorf("create upload part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("write upload data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalize upload body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.UploadURL, &buf)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload image %s: %w", publicID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload image %s: status %d: %s", publicID, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var uploadResp struct {
		SecureURL string `json:"secure_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if uploadResp.SecureURL == "" {
		return "", fmt.Errorf("upload image %s: response carried no secure_url", publicID)
	}
	return uploadResp.SecureURL, nil
}
