package diagnose

import (
	"encoding/base64"
	"errors"
	"testing"
)

func dataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func TestParseDataURI(t *testing.T) {
	payload := []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a}
	img, err := ParseDataURI(dataURI("image/png", payload), 1<<20)
	if err != nil {
		t.Fatalf("ParseDataURI: %v", err)
	}
	if img.MIMEType != "image/png" {
		t.Errorf("mime = %q", img.MIMEType)
	}
	if string(img.Data) != string(payload) {
		t.Errorf("decoded bytes differ")
	}
}

func TestParseDataURIUnbounded(t *testing.T) {
	big := make([]byte, 64)
	if _, err := ParseDataURI(dataURI("image/jpeg", big), 0); err != nil {
		t.Fatalf("maxBytes 0 should disable the bound: %v", err)
	}
}

func TestParseDataURIErrors(t *testing.T) {
	cases := []struct {
		name string
		uri  string
		max  int64
		want error
	}{
		{"empty", "", 1024, ErrImageEmpty},
		{"whitespace", "   ", 1024, ErrImageEmpty},
		{"no scheme", "http://example.com/x.png", 1024, ErrNotDataURI},
		{"no comma", "data:image/png;base64", 1024, ErrNotDataURI},
		{"not base64 encoding", "data:image/png;charset=utf8,abc", 1024, ErrNotDataURI},
		{"unsupported type", dataURI("image/gif", []byte{1, 2, 3}), 1024, ErrNotDataURI},
		{"bad payload", "data:image/png;base64,!!!", 1024, ErrNotDataURI},
		{"empty payload", "data:image/png;base64,", 1024, ErrImageEmpty},
		{"too large", dataURI("image/png", make([]byte, 2048)), 1024, ErrImageTooLarge},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseDataURI(tc.uri, tc.max)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestParseDataURIBoundIsOnDecodedBytes(t *testing.T) {
	// Covers all three base64 padding shapes around the bound: the limit is
	// on the decoded bytes, so an image of exactly maxBytes is accepted and
	// one byte over is rejected.
	for _, size := range []int{1022, 1023, 1024} {
		uri := dataURI("image/webp", make([]byte, size))
		if _, err := ParseDataURI(uri, int64(size)); err != nil {
			t.Errorf("size %d, max %d: exact-size image rejected: %v", size, size, err)
		}
		if _, err := ParseDataURI(uri, int64(size)-1); !errors.Is(err, ErrImageTooLarge) {
			t.Errorf("size %d, max %d: err = %v, want ErrImageTooLarge", size, size-1, err)
		}
	}
	// The encoded form is ~4/3 the decoded size; the bound must not be
	// applied to it directly.
	if uri := dataURI("image/webp", make([]byte, 1024)); int64(len(uri)) <= 1024 {
		t.Fatalf("test setup: encoded URI should exceed the bound")
	}
}
