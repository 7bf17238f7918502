package validator

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	ErrUnknownFormat  = errors.New("unrecognized image format")
	ErrFormatMismatch = errors.New("image header does not match detected format")
)

// signature 魔数签名
type signature struct {
	offset int
	magic  []byte
}

var signatures = []struct {
	mime  string
	parts []signature
}{
	{"image/jpeg", []signature{{0, []byte{0xFF, 0xD8, 0xFF}}}},
	{"image/png", []signature{{0, []byte("\x89PNG\r\n\x1a\n")}}},
	{"image/gif", []signature{{0, []byte("GIF87a")}}},
	{"image/gif", []signature{{0, []byte("GIF89a")}}},
	{"image/webp", []signature{{0, []byte("RIFF")}, {8, []byte("WEBP")}}},
	{"image/bmp", []signature{{0, []byte("BM")}}},
	{"image/tiff", []signature{{0, []byte("II*\x00")}}},
	{"image/tiff", []signature{{0, []byte("MM\x00*")}}},
}

// formatNames image.DecodeConfig 返回的格式名
var formatNames = map[string]string{
	"image/jpeg": "jpeg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
	"image/bmp":  "bmp",
	"image/tiff": "tiff",
}

// Header 图片头信息
type Header struct {
	Format string
	Width  int
	Height int
}

// DetectImageType 根据魔数识别图片类型，无法识别时返回空字符串
func DetectImageType(data []byte) string {
	for _, s := range signatures {
		if matchAll(data, s.parts) {
			return s.mime
		}
	}
	return ""
}

func matchAll(data []byte, parts []signature) bool {
	for _, p := range parts {
		end := p.offset + len(p.magic)
		if len(data) < end || !bytes.Equal(data[p.offset:end], p.magic) {
			return false
		}
	}
	return true
}

// DecodeHeader 解码图片头并确认格式与 mimeType 一致
func DecodeHeader(data []byte, mimeType string) (Header, error) {
	want, ok := formatNames[mimeType]
	if !ok {
		return Header{}, fmt.Errorf("%w: %s", ErrUnknownFormat, mimeType)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Header{}, fmt.Errorf("decode %s header: %w", want, err)
	}
	if format != want {
		return Header{}, fmt.Errorf("%w: got %s, want %s", ErrFormatMismatch, format, want)
	}

	return Header{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}
