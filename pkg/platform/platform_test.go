package platform

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	errs "vidgrab/pkg/errors"
)

func TestExtractContentIDInstagram(t *testing.T) {
	s := &Instagram{}

	tests := []struct {
		name string
		url  string
		want string
	}{
		{"reel with query", "https://www.instagram.com/reel/ABC123/?utm=1", "ABC123"},
		{"reel trailing slash", "https://www.instagram.com/reel/ABC123/", "ABC123"},
		{"post", "https://www.instagram.com/p/Xy_z-9/", "Xy_z-9"},
		{"igtv", "https://www.instagram.com/tv/DEF456", "DEF456"},
		{"unrecognized path falls back to last segment", "https://www.instagram.com/stories/highlights/123/", "123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.ExtractContentID(tt.url))
		})
	}
}

func TestExtractContentIDTikTok(t *testing.T) {
	s := &TikTok{}

	tests := []struct {
		name string
		url  string
		want string
	}{
		{"standard video", "https://www.tiktok.com/@user/video/998877", "998877"},
		{"with query", "https://www.tiktok.com/@user/video/998877?is_copy_url=1", "998877"},
		{"short link falls back to last segment", "https://vm.tiktok.com/ZMabcdef/", "ZMabcdef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.ExtractContentID(tt.url))
		})
	}
}

func TestValidateURL(t *testing.T) {
	ig := &Instagram{}
	tk := &TikTok{}

	assert.True(t, ig.ValidateURL("https://www.instagram.com/reel/ABC123/"))
	assert.True(t, ig.ValidateURL("https://INSTAGRAM.com/p/x/"))
	assert.False(t, ig.ValidateURL("https://example.com/reel/ABC123/"))

	assert.True(t, tk.ValidateURL("https://www.tiktok.com/@user/video/1"))
	assert.True(t, tk.ValidateURL("https://vm.tiktok.com/ZMabc/"))
	assert.False(t, tk.ValidateURL("https://www.instagram.com/reel/ABC123/"))
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "instagram_ABC123.mp4", Filename("instagram", "ABC123"))
	assert.Equal(t, "tiktok_998877.mp4", Filename("tiktok", "998877"))
}

func TestPayloadSizeMB(t *testing.T) {
	p := &Payload{Bytes: make([]byte, 2*1024*1024)}
	assert.InDelta(t, 2.0, p.SizeMB(), 0.001)
}

func TestStatusError(t *testing.T) {
	tests := []struct {
		code     int
		wantType errs.ErrorType
		wantNil  bool
	}{
		{http.StatusOK, "", true},
		{http.StatusTooManyRequests, errs.ErrorTypeRateLimit, false},
		{http.StatusNotFound, errs.ErrorTypeResolution, false},
		{http.StatusInternalServerError, errs.ErrorTypeServerError, false},
		{http.StatusBadGateway, errs.ErrorTypeServerError, false},
		{http.StatusForbidden, errs.ErrorTypeFetch, false},
	}

	for _, tt := range tests {
		err := statusError(tt.code)
		if tt.wantNil {
			assert.Nil(t, err, "status %d", tt.code)
			continue
		}
		if assert.NotNil(t, err, "status %d", tt.code) {
			assert.Equal(t, tt.wantType, err.Type, "status %d", tt.code)
			assert.Equal(t, tt.code, err.Code, "status %d", tt.code)
		}
	}
}
