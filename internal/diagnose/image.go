package diagnose

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"agridetect/internal/llmclient"
)

var (
	ErrImageEmpty    = errors.New("image is empty")
	ErrImageTooLarge = errors.New("image exceeds the configured size limit")
	ErrNotDataURI    = errors.New("not a data URI")
)

var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
}

// ParseDataURI decodes a "data:<mimetype>;base64,<data>" payload into an
// inline image and enforces the size bound on the decoded bytes. The bound
// is checked here, before any model call is issued.
func ParseDataURI(uri string, maxBytes int64) (llmclient.Image, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return llmclient.Image{}, ErrImageEmpty
	}
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return llmclient.Image{}, ErrNotDataURI
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return llmclient.Image{}, ErrNotDataURI
	}
	mime, encoding, _ := strings.Cut(meta, ";")
	if encoding != "base64" {
		return llmclient.Image{}, fmt.Errorf("%w: unsupported encoding %q", ErrNotDataURI, encoding)
	}
	if !allowedImageTypes[mime] {
		return llmclient.Image{}, fmt.Errorf("%w: unsupported media type %q", ErrNotDataURI, mime)
	}

	// Base64 expands by 4/3, so the encoded length gives a cheap upper bound
	// before decoding. Padding makes the estimate up to two bytes high; allow
	// that slack and let the exact post-decode check enforce the bound.
	if maxBytes > 0 && int64(len(payload))/4*3 > maxBytes+2 {
		return llmclient.Image{}, ErrImageTooLarge
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return llmclient.Image{}, fmt.Errorf("%w: %v", ErrNotDataURI, err)
	}
	if len(data) == 0 {
		return llmclient.Image{}, ErrImageEmpty
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return llmclient.Image{}, ErrImageTooLarge
	}
	return llmclient.Image{MIMEType: mime, Data: data}, nil
}
