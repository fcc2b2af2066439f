package uploads

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"streammap-backend/internal/domain"

	"github.com/google/uuid"
)

// ErrStorageUnavailable is returned when photos are submitted but no storage is configured.
var ErrStorageUnavailable = errors.New("photo storage is not configured")

// StorageClient defines what we need from the object storage API.
type StorageClient interface {
	CreateSignedUploadURL(ctx context.Context, bucket, path string) (string, error)
}

// HTTPClient is a StorageClient backed by a Supabase-compatible storage HTTP API.
type HTTPClient struct {
	BaseURL   string
	SecretKey string
	Client    *http.Client
}

type signedUploadResponse struct {
	SignedURL      string `json:"signedUrl"`
	SignedURLSnake string `json:"signed_url"`
	URL            string `json:"url"` // relative path returned by upload/sign API
}

var defaultHTTPClient = &http.Client{Timeout: 10 * time.Second}

func (c *HTTPClient) CreateSignedUploadURL(ctx context.Context, bucket, objectPath string) (string, error) {
	client := c.Client
	if client == nil {
		client = defaultHTTPClient
	}
	if c.BaseURL == "" {
		return "", fmt.Errorf("storage: STORAGE_URL is not set")
	}
	if c.SecretKey == "" {
		return "", fmt.Errorf("storage: STORAGE_SECRET_KEY is not set")
	}
	base := strings.TrimRight(c.BaseURL, "/")
	endpoint := fmt.Sprintf("%s/storage/v1/object/upload/sign/%s/%s", base, bucket, objectPath)

	bodyBytes, _ := json.Marshal(map[string]interface{}{
		"expiresIn": 3600,
		"upsert":    false,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("apikey", c.SecretKey)
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("storage request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("storage error: status %d body: %s", resp.StatusCode, string(respBody))
	}

	var data signedUploadResponse
	if err := json.Unmarshal(respBody, &data); err != nil {
		return "", fmt.Errorf("storage response decode: %w", err)
	}
	if data.SignedURL != "" {
		return data.SignedURL, nil
	}
	if data.SignedURLSnake != "" {
		return data.SignedURLSnake, nil
	}
	if data.URL != "" {
		u := data.URL
		if u[0] != '/' {
			u = "/" + u
		}
		return base + u, nil
	}
	return "", fmt.Errorf("storage returned no signed URL, body: %s", string(respBody))
}

// Service issues signed upload URLs for project photos.
type Service struct {
	Client     StorageClient
	StorageURL string
	Bucket     string
	now        func() time.Time
}

// UploadResult is a signed upload slot for one object.
type UploadResult struct {
	UploadURL string `json:"uploadUrl"`
	PublicURL string `json:"publicUrl"`
	Path      string `json:"path"`
}

// PhotoUpload tells the client where to PUT the bytes of a photo it declared.
type PhotoUpload struct {
	PhotoID  uuid.UUID `json:"photo_id"`
	FileName string    `json:"file_name"`
	UploadResult
}

func (s *Service) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

// GetSignedUploadURL generates a signed upload URL for fileName under prefix in bucket.
func (s *Service) GetSignedUploadURL(ctx context.Context, bucket, prefix, fileName string) (*UploadResult, error) {
	if s == nil || s.Client == nil {
		return nil, ErrStorageUnavailable
	}
	objectPath := fmt.Sprintf("%d-%s", s.clock().UnixMilli(), sanitizeFileName(fileName))
	if prefix != "" {
		objectPath = prefix + "/" + objectPath
	}
	return s.sign(ctx, bucket, objectPath)
}

func (s *Service) sign(ctx context.Context, bucket, objectPath string) (*UploadResult, error) {
	signedURL, err := s.Client.CreateSignedUploadURL(ctx, bucket, objectPath)
	if err != nil {
		return nil, err
	}

	publicBase := strings.TrimRight(s.StorageURL, "/")
	publicURL := fmt.Sprintf("%s/storage/v1/object/public/%s/%s", publicBase, bucket, objectPath)

	return &UploadResult{
		UploadURL: signedURL,
		PublicURL: publicURL,
		Path:      objectPath,
	}, nil
}

// PreparePhotos signs one upload per photo and returns the rows to persist with the project.
// Objects live at <projectID>/<photoID>-<name>, so repeated file names never collide.
// Nothing is written here; callers insert the rows in their own transaction.
func (s *Service) PreparePhotos(ctx context.Context, projectID uuid.UUID, photos []PhotoInput) ([]domain.Photo, []PhotoUpload, error) {
	if len(photos) == 0 {
		return nil, nil, nil
	}
	if s == nil || s.Client == nil {
		return nil, nil, ErrStorageUnavailable
	}
	rows := make([]domain.Photo, 0, len(photos))
	slots := make([]PhotoUpload, 0, len(photos))
	for _, p := range photos {
		photoID := uuid.New()
		objectPath := fmt.Sprintf("%s/%s-%s", projectID, photoID, sanitizeFileName(p.FileName))
		res, err := s.sign(ctx, s.Bucket, objectPath)
		if err != nil {
			return nil, nil, fmt.Errorf("sign upload for %s: %w", p.FileName, err)
		}
		photo := domain.Photo{
			PhotoID:     photoID,
			ProjectID:   projectID,
			FileName:    p.FileName,
			ContentType: NormalizeContentType(p.ContentType),
			SizeBytes:   p.SizeBytes,
			Path:        res.Path,
			PublicURL:   res.PublicURL,
		}
		rows = append(rows, photo)
		slots = append(slots, PhotoUpload{PhotoID: photo.PhotoID, FileName: p.FileName, UploadResult: *res})
	}
	return rows, slots, nil
}

func sanitizeFileName(name string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "photo"
	}
	return url.PathEscape(base)
}
