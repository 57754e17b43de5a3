// Package conversion talks to the Audiveris conversion server, which turns
// scanned scores into MusicXML.
package conversion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultTimeout covers a full OMR run on a multi-page score.
	DefaultTimeout = 5 * time.Minute
)

// Converter turns a score into MusicXML.
type Converter interface {
	// Convert uploads a score and returns the converted file's name on the server.
	Convert(ctx context.Context, fileName string, r io.Reader) (string, error)

	// Download streams a converted file.
	Download(ctx context.Context, fileName string) (io.ReadCloser, error)
}

// Client implements Converter over the server's HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a conversion client for baseURL.
func NewClient(baseURL string) *Client {
	return NewClientWithConfig(baseURL, DefaultTimeout)
}

// NewClientWithConfig creates a conversion client with a custom timeout.
func NewClientWithConfig(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type convertResponse struct {
	FileName string `json:"fileName"`
	Error    string `json:"error,omitempty"`
	Details  string `json:"details,omitempty"`
}

// Convert posts the score as multipart field "file" to /convert.
func (c *Client) Convert(ctx context.Context, fileName string, r io.Reader) (string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", fileName)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/convert", pr)
	if err != nil {
		_ = pr.Close()
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		_ = pr.Close()
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var out convertResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("conversion error (status %d): %s", resp.StatusCode, string(body))
	}
	if resp.StatusCode != http.StatusOK {
		msg := out.Error
		if out.Details != "" {
			msg += ": " + out.Details
		}
		return "", fmt.Errorf("conversion error (status %d): %s", resp.StatusCode, msg)
	}
	if out.FileName == "" {
		return "", fmt.Errorf("conversion returned no file name")
	}
	return out.FileName, nil
}

// Download fetches /download/{fileName}.
func (c *Client) Download(ctx context.Context, fileName string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/download/"+url.PathEscape(fileName), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer func() { _ = resp.Body.Close() }()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("download error (status %d): %s", resp.StatusCode, string(body))
	}
	return resp.Body, nil
}
