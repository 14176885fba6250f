// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package ai

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxImageBytes caps images fetched for vision prompts.
const maxImageBytes = 10 << 20

var imageClient = &http.Client{Timeout: 30 * time.Second}

// GenerateWithImageURL fetches an image and sends it with the prompt.
func (r *Registry) GenerateWithImageURL(ctx context.Context, req Request, imageURL string) (string, error) {
	img, err := FetchImage(ctx, imageClient, imageURL)
	if err != nil {
		return "", err
	}
	req.Image = img
	return r.Generate(ctx, req)
}

// FetchImage downloads an image. The MIME type comes from the response
// header, defaulting to image/jpeg.
func FetchImage(ctx context.Context, client *http.Client, url string) (*Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("image request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", maxImageBytes)
	}

	mime := resp.Header.Get("Content-Type")
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	mime = strings.TrimSpace(mime)
	if mime == "" {
		mime = "image/jpeg"
	}
	return &Image{MimeType: mime, Data: data}, nil
}
