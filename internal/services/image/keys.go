package image

import (
	"encoding/hex"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/anoixa/image-store/utils"
)

const (
	imageIDPrefix = "img_"
	maxStemLen    = 64
)

// NewImageID 生成 img_ 加 32 位十六进制的随机 ID
func NewImageID() string {
	u := uuid.New()
	return imageIDPrefix + hex.EncodeToString(u[:])
}

// isImageID 格式不符的 ID 不可能存在，无需查库
func isImageID(id string) bool {
	if len(id) != len(imageIDPrefix)+32 || !strings.HasPrefix(id, imageIDPrefix) {
		return false
	}
	_, err := hex.DecodeString(id[len(imageIDPrefix):])
	return err == nil
}

// sanitizeStem 去掉扩展名，仅保留 [A-Za-z0-9_-]
func sanitizeStem(name string) string {
	stem := strings.TrimSuffix(name, path.Ext(name))

	var sb strings.Builder
	for _, r := range stem {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			sb.WriteRune(r)
		case r == ' ' || r == '.':
			sb.WriteByte('-')
		}
		if sb.Len() >= maxStemLen {
			break
		}
	}

	out := strings.Trim(sb.String(), "-")
	if out == "" {
		return "image"
	}
	return out
}

// StorageKey 对象键: images/<user_id>/<image_id>/<stem>.<ext>
func StorageKey(userID, imageID, imageName, contentType string) string {
	ext := utils.GetSafeExtension(contentType)
	if ext == "" {
		ext = "bin"
	}
	return "images/" + userID + "/" + imageID + "/" + sanitizeStem(imageName) + "." + ext
}

// DownloadName 下载文件名，名称缺少匹配的扩展名时补上
func DownloadName(imageName, contentType string) string {
	ext := utils.GetSafeExtension(contentType)
	if ext == "" {
		return imageName
	}
	if utils.MIMEFromKey(imageName) == utils.NormalizeMIME(contentType) {
		return imageName
	}
	return imageName + "." + ext
}
