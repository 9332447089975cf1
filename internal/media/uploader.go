// Package media hosts listing images and hands back their public URLs.
package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/api/googleapi"

	"github.com/angelmondragon/ecofinds-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/ecofinds-storefront/pkg/errors"
	"github.com/angelmondragon/ecofinds-storefront/pkg/logger"
)

const uploadTimeout = 30 * time.Second

// Image is a validated upload.
type Image struct {
	Data        []byte
	FileName    string
	ContentType string
}

// Uploader stores an image and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, img Image) (string, error)
}

// CloudinaryUploader posts unsigned uploads against an upload preset.
type CloudinaryUploader struct {
	endpoint string
	preset   string
	folder   string
	http     *http.Client
	logg     *logger.Logger
}

func NewCloudinaryUploader(cfg config.MediaConfig, logg *logger.Logger) (*CloudinaryUploader, error) {
	if strings.TrimSpace(cfg.CloudinaryCloud) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cloudinary cloud name is required")
	}
	if strings.TrimSpace(cfg.CloudinaryPreset) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cloudinary upload preset is required")
	}
	endpoint := strings.TrimRight(cfg.CloudinaryEndpoint, "/") + "/" + url.PathEscape(cfg.CloudinaryCloud) + "/image/upload"
	client := &http.Client{Timeout: uploadTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
	return newCloudinaryUploader(endpoint, cfg.CloudinaryPreset, cfg.Folder, client, logg), nil
}

func newCloudinaryUploader(endpoint, preset, folder string, client *http.Client, logg *logger.Logger) *CloudinaryUploader {
	if logg == nil {
		logg = logger.Nop()
	}
	return &CloudinaryUploader{endpoint: endpoint, preset: preset, folder: folder, http: client, logg: logg}
}

type cloudinaryResponse struct {
	SecureURL string `json:"secure_url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *CloudinaryUploader) Upload(ctx context.Context, img Image) (string, error) {
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	name := img.FileName
	if name == "" {
		name = "image"
	}
	part, err := form.CreateFormFile("file", name)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build upload form")
	}
	if _, err := part.Write(img.Data); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build upload form")
	}
	_ = form.WriteField("upload_preset", c.preset)
	if c.folder != "" {
		_ = form.WriteField("folder", c.folder)
	}
	if err := form.Close(); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build upload form")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build upload request")
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to upload image")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to upload image")
	}
	var decoded cloudinaryResponse
	_ = json.Unmarshal(raw, &decoded)

	if decoded.Error != nil && decoded.Error.Message != "" {
		c.logg.Warn(c.logg.WithField(ctx, "status", resp.StatusCode), "media.cloudinary_rejected")
		return "", pkgerrors.New(pkgerrors.CodeDependency, "Failed to upload image: "+decoded.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("Failed to upload image: upload failed with status %d", resp.StatusCode))
	}
	if decoded.SecureURL == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "Failed to upload image: missing secure_url")
	}
	return decoded.SecureURL, nil
}

type objectWriter interface {
	Write(ctx context.Context, object, contentType string, data []byte) error
}

// GCSUploader writes objects into a publicly readable bucket.
type GCSUploader struct {
	objects objectWriter
	bucket  string
	baseURL string
	prefix  string
	newID   func() string
}

func NewGCSUploader(client *storage.Client, cfg config.MediaConfig) (*GCSUploader, error) {
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "storage client is required")
	}
	if strings.TrimSpace(cfg.GCSBucket) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gcs bucket name is required")
	}
	return newGCSUploader(bucketWriter{bucket: client.Bucket(cfg.GCSBucket)}, cfg.GCSBucket, cfg.GCSPublicBaseURL, cfg.Folder), nil
}

func newGCSUploader(objects objectWriter, bucket, baseURL, prefix string) *GCSUploader {
	if baseURL == "" {
		baseURL = "https://storage.googleapis.com"
	}
	return &GCSUploader{
		objects: objects,
		bucket:  bucket,
		baseURL: strings.TrimRight(baseURL, "/"),
		prefix:  strings.Trim(prefix, "/"),
		newID:   uuid.NewString,
	}
}

func (g *GCSUploader) Upload(ctx context.Context, img Image) (string, error) {
	object := path.Join(g.prefix, g.newID()+extensionFor(img.ContentType))
	if err := g.objects.Write(ctx, object, img.ContentType, img.Data); err != nil {
		wrapped := pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to upload image")
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			wrapped = wrapped.WithDetails(map[string]any{"status": apiErr.Code})
		}
		return "", wrapped
	}
	return g.baseURL + "/" + url.PathEscape(g.bucket) + "/" + object, nil
}

type bucketWriter struct {
	bucket *storage.BucketHandle
}

func (b bucketWriter) Write(ctx context.Context, object, contentType string, data []byte) error {
	w := b.bucket.Object(object).NewWriter(ctx)
	w.ContentType = contentType
	w.CacheControl = "public, max-age=31536000"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ""
	}
}
