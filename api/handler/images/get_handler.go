package images

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"

	"github.com/anoixa/image-store/api/middleware"
	"github.com/anoixa/image-store/internal/services/image"
)

// MetadataHeader metadata=true 时携带 base64 JSON 元数据的响应头
const MetadataHeader = "X-Image-Metadata"

// GetImage 返回图片内容
func (h *Handler) GetImage(c *gin.Context) {
	result, err := h.svc.Get(c.Request.Context(), image.GetInput{
		UserID:          middleware.CurrentUserID(c),
		ImageID:         c.Param("image_id"),
		IncludeMetadata: queryBool(c, "metadata"),
		AsAttachment:    queryBool(c, "download"),
	})
	if err != nil {
		respondServiceError(c, "GetImage", err)
		return
	}

	c.Header("Cache-Control", fmt.Sprintf("private, max-age=%d", int(h.cacheMaxAge.Seconds())))
	etag := ""
	if result.ETag != "" {
		etag = `"` + strings.Trim(result.ETag, `"`) + `"`
		c.Header("ETag", etag)
	}
	c.Header("Content-Disposition", contentDisposition(result.FileName, result.AsAttachment))

	if result.Record != nil {
		raw, err := json.Marshal(result.Record)
		if err != nil {
			log.Printf("[GetImage] failed to encode metadata for %s: %v", result.Record.ImageID, err)
		} else {
			c.Header(MetadataHeader, base64.StdEncoding.EncodeToString(raw))
		}
	}

	if etag != "" && c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}

	c.Data(http.StatusOK, result.ContentType, result.Data)
}

func queryBool(c *gin.Context, key string) bool {
	v, err := strconv.ParseBool(c.Query(key))
	return err == nil && v
}

// contentDisposition 生成带 ASCII 回退与 RFC 5987 文件名的 Content-Disposition
func contentDisposition(name string, attachment bool) string {
	disposition := "inline"
	if attachment {
		disposition = "attachment"
	}
	if name == "" {
		return disposition
	}

	asciiName := toASCII(name)
	if asciiName == name {
		return fmt.Sprintf(`%s; filename="%s"`, disposition, asciiName)
	}
	rfc5987Name := url.PathEscape(name)
	return fmt.Sprintf(`%s; filename="%s"; filename*=UTF-8''%s`, disposition, asciiName, rfc5987Name)
}

func toASCII(s string) string {
	var result []rune
	for _, r := range s {
		if r > unicode.MaxASCII || r == '"' || r == '\\' || unicode.IsControl(r) {
			result = append(result, '_')
		} else {
			result = append(result, r)
		}
	}
	return string(result)
}
