package image

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewImageID(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := NewImageID()
		assert.Len(t, id, 36)
		assert.True(t, isImageID(id), id)
		_, dup := seen[id]
		assert.False(t, dup)
		seen[id] = struct{}{}
	}
}

func TestIsImageID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"img_0123456789abcdef0123456789abcdef", true},
		{"img_0123456789ABCDEF0123456789abcdef", true},
		{"img_0123456789abcdef0123456789abcde", false},
		{"img_0123456789abcdef0123456789abcdeg", false},
		{"pic_0123456789abcdef0123456789abcdef", false},
		{"nonexistent", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isImageID(tt.id), tt.id)
	}
}

func TestSanitizeStem(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"vacation-photo.jpg", "vacation-photo"},
		{"My Holiday!.png", "My-Holiday"},
		{"archive.tar.gz", "archive-tar"},
		{"../../etc/passwd", "etcpasswd"},
		{"照片.jpg", "image"},
		{".hidden", "image"},
		{"", "image"},
		{strings.Repeat("a", 100) + ".png", strings.Repeat("a", 64)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sanitizeStem(tt.name))
		})
	}
}

func TestStorageKey(t *testing.T) {
	id := "img_0123456789abcdef0123456789abcdef"
	assert.Equal(t, "images/alice/"+id+"/photo.jpg", StorageKey("alice", id, "photo.jpeg", "image/jpeg"))
	assert.Equal(t, "images/alice/"+id+"/scan.tiff", StorageKey("alice", id, "scan", "image/tiff"))
	assert.Equal(t, StorageKey("alice", id, "x.png", "image/png"), StorageKey("alice", id, "x.png", "image/png"))
}

func TestDownloadName(t *testing.T) {
	assert.Equal(t, "photo.jpg", DownloadName("photo.jpg", "image/jpeg"))
	assert.Equal(t, "photo.jpeg", DownloadName("photo.jpeg", "image/jpeg"))
	assert.Equal(t, "photo.png.jpg", DownloadName("photo.png", "image/jpeg"))
	assert.Equal(t, "holiday.webp", DownloadName("holiday", "image/webp"))
}

func TestError_Is(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := error(unavailable("failed to read image object", cause))

	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrStorageInconsistent)
	assert.Equal(t, "failed to read image object: dial tcp: refused", err.Error())

	wrapped := errors.Join(errors.New("outer"), notFound())
	e, ok := AsError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, CodeImageNotFound, e.Code)
}
