package images

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/anoixa/image-store/api/common"
	"github.com/anoixa/image-store/api/middleware"
	"github.com/anoixa/image-store/internal/services/image"
)

// uploadRequest JSON 上传请求，file 为 base64 编码的内容
type uploadRequest struct {
	File        string   `json:"file"`
	ImageName   string   `json:"image_name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	ContentType string   `json:"content_type"`
}

var errPayloadTooLarge = errors.New("payload too large")

// UploadImage 处理单图片上传，支持 multipart 表单与 JSON
func (h *Handler) UploadImage(c *gin.Context) {
	var (
		in  image.UploadInput
		err error
	)

	mediaType, _, _ := mime.ParseMediaType(c.GetHeader("Content-Type"))
	switch mediaType {
	case "application/json":
		in, err = h.bindJSON(c)
	case "multipart/form-data":
		in, err = h.bindMultipart(c)
	default:
		common.RespondError(c, http.StatusUnsupportedMediaType, image.CodeValidation,
			"Content-Type must be multipart/form-data or application/json")
		return
	}
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.Is(err, errPayloadTooLarge) || errors.As(err, &maxErr) {
			common.RespondError(c, http.StatusRequestEntityTooLarge, image.CodeFileSizeExceeded,
				fmt.Sprintf("File exceeds the maximum size of %d bytes", h.maxUploadBytes))
			return
		}
		common.RespondError(c, http.StatusBadRequest, image.CodeValidation, err.Error())
		return
	}

	in.UserID = middleware.CurrentUserID(c)
	record, err := h.svc.Upload(c.Request.Context(), in)
	if err != nil {
		respondServiceError(c, "Upload", err)
		return
	}

	common.RespondCreated(c, record)
}

func (h *Handler) bindJSON(c *gin.Context) (image.UploadInput, error) {
	var req uploadRequest
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return image.UploadInput{}, err
		}
		return image.UploadInput{}, fmt.Errorf("invalid JSON body: %w", err)
	}
	if req.File == "" {
		return image.UploadInput{}, errors.New("file is required")
	}
	if h.maxUploadBytes > 0 && int64(base64.StdEncoding.DecodedLen(len(req.File))) > h.maxUploadBytes+2 {
		return image.UploadInput{}, errPayloadTooLarge
	}

	data, err := base64.StdEncoding.DecodeString(req.File)
	if err != nil {
		return image.UploadInput{}, errors.New("file must be valid base64")
	}

	return image.UploadInput{
		ImageName:   req.ImageName,
		Description: req.Description,
		Tags:        req.Tags,
		Data:        data,
		ContentType: req.ContentType,
	}, nil
}

func (h *Handler) bindMultipart(c *gin.Context) (image.UploadInput, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return image.UploadInput{}, err
		}
		return image.UploadInput{}, errors.New("a file is required under the 'file' key")
	}
	if h.maxUploadBytes > 0 && fileHeader.Size > h.maxUploadBytes {
		return image.UploadInput{}, errPayloadTooLarge
	}

	f, err := fileHeader.Open()
	if err != nil {
		return image.UploadInput{}, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return image.UploadInput{}, fmt.Errorf("failed to read uploaded file: %w", err)
	}

	name := c.PostForm("image_name")
	if strings.TrimSpace(name) == "" {
		name = fileHeader.Filename
	}

	contentType := c.PostForm("content_type")
	if contentType == "" {
		if ct := fileHeader.Header.Get("Content-Type"); strings.HasPrefix(ct, "image/") {
			contentType = ct
		}
	}

	var tags []string
	for _, raw := range c.PostFormArray("tags") {
		tags = append(tags, strings.Split(raw, ",")...)
	}

	return image.UploadInput{
		ImageName:   name,
		Description: c.PostForm("description"),
		Tags:        tags,
		Data:        data,
		ContentType: contentType,
	}, nil
}
