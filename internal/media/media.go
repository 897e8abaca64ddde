// Package media stores uploaded complaint images and audio and returns the
// URL they are served from.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
)

// Store persists one file and returns its public URL
type Store interface {
	Save(ctx context.Context, folder, filename string, data []byte) (string, error)
}

// Cloudinary uploads to a Cloudinary account
type Cloudinary struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinary creates the uploader
func NewCloudinary(cloudName, apiKey, apiSecret string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	return &Cloudinary{cld: cld}, nil
}

// Save uploads data with automatic resource type detection
func (c *Cloudinary) Save(ctx context.Context, folder, _ string, data []byte) (string, error) {
	res, err := c.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		Folder:       folder,
		ResourceType: "auto",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to Cloudinary: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("cloudinary: %s", res.Error.Message)
	}
	return res.SecureURL, nil
}

// Local writes files under a directory served at urlPrefix
type Local struct {
	dir       string
	urlPrefix string
}

// NewLocal creates the directory if needed
func NewLocal(dir, urlPrefix string) (*Local, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Local{dir: dir, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

// Save writes data under a random name keeping the original extension
func (l *Local) Save(_ context.Context, folder, filename string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	name := uuid.NewString() + ext

	sub := filepath.Join(l.dir, filepath.Base(folder))
	if err := os.MkdirAll(sub, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(sub, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return l.urlPrefix + "/" + filepath.Base(folder) + "/" + name, nil
}

// Dir is the directory files are written to
func (l *Local) Dir() string { return l.dir }
