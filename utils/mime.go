package utils

import (
	"path"
	"strings"
)

// mimeToExtMap 允许的图片 MIME 类型及其扩展名
var mimeToExtMap = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
	"image/bmp":  "bmp",
	"image/tiff": "tiff",
}

var extToMimeMap = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"bmp":  "image/bmp",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
}

// NormalizeMIME 去除参数并转小写，如 "Image/JPEG; q=1" -> "image/jpeg"
func NormalizeMIME(mimeType string) string {
	mimeType = strings.Split(mimeType, ";")[0]
	return strings.ToLower(strings.TrimSpace(mimeType))
}

// IsAllowedMIME 是否为允许上传的图片类型
func IsAllowedMIME(mimeType string) bool {
	_, ok := mimeToExtMap[NormalizeMIME(mimeType)]
	return ok
}

// AllowedMIMETypes 返回允许的 MIME 列表
func AllowedMIMETypes() []string {
	return []string{"image/jpeg", "image/png", "image/gif", "image/webp", "image/bmp", "image/tiff"}
}

// GetSafeExtension 根据MIME类型返回安全的文件扩展名（不含点）
// 如果MIME类型不被允许，返回空字符串
func GetSafeExtension(mimeType string) string {
	return mimeToExtMap[NormalizeMIME(mimeType)]
}

// MIMEFromKey 根据存储键的扩展名推断 MIME 类型
func MIMEFromKey(key string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(key)), ".")
	if m, ok := extToMimeMap[ext]; ok {
		return m
	}
	return "application/octet-stream"
}
