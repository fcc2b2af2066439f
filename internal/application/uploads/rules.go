package uploads

import (
	"fmt"
	"mime"
	"strings"
)

const (
	// MaxPhotoBytes is the exclusive per-photo size ceiling (50 MB).
	MaxPhotoBytes int64 = 50 * 1024 * 1024
	// MaxPhotos is the most photos one project may carry.
	MaxPhotos = 20
)

// AllowedContentTypes lists the accepted photo media types.
var AllowedContentTypes = map[string]bool{
	"image/png":  true,
	"image/jpg":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/avif": true,
	"image/webp": true,
}

const (
	MsgInvalidContentType = "has an invalid content type"
	MsgTooLarge           = "must be below 50 MB in size each"
	MsgTooMany            = "must have fewer than 20 photos"
)

// PhotoInput describes a photo a client intends to upload.
type PhotoInput struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size"`
}

// Violation is one broken attachment rule.
type Violation struct {
	Field   string
	Message string
}

// NormalizeContentType lowercases a media type and drops any parameters.
func NormalizeContentType(ct string) string {
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// CheckPhotos applies the content-type, size and count rules. existing is the number of
// photos the project already has. Every violation is reported.
func CheckPhotos(existing int, photos []PhotoInput) []Violation {
	var out []Violation
	if existing+len(photos) > MaxPhotos {
		out = append(out, Violation{Field: "photos", Message: MsgTooMany})
	}
	for i, p := range photos {
		field := fmt.Sprintf("photos[%d]", i)
		if !AllowedContentTypes[NormalizeContentType(p.ContentType)] {
			out = append(out, Violation{Field: field, Message: MsgInvalidContentType})
		}
		if p.SizeBytes <= 0 || p.SizeBytes >= MaxPhotoBytes {
			out = append(out, Violation{Field: field, Message: MsgTooLarge})
		}
		if strings.TrimSpace(p.FileName) == "" {
			out = append(out, Violation{Field: field + ".file_name", Message: "can't be blank"})
		}
	}
	return out
}
