package images

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anoixa/image-store/api/common"
	"github.com/anoixa/image-store/api/middleware"
	"github.com/anoixa/image-store/database/models"
	repo "github.com/anoixa/image-store/database/repo/images"
	"github.com/anoixa/image-store/internal/services/image"
	"github.com/anoixa/image-store/internal/services/reconcile"
	"github.com/anoixa/image-store/storage"
)

var gifPayload = []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00\x00\x00\x00\xff\xff\xff!\xf9\x04\x01\x00\x00\x00\x00,\x00\x00\x00\x00\x01\x00\x01\x00\x00\x02\x02D\x01\x00;")

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	router *gin.Engine
	store  *storage.MemoryStorage
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := repo.OpenBadger("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := storage.NewMemoryStorage()
	svc := image.NewService(repo.NewBadgerRepository(db), store, reconcile.NewMemoryLedger(0), image.Options{
		MaxUploadBytes: 1024,
		StrictDecode:   true,
	})
	return &testEnv{router: newTestRouter(NewHandler(svc, 1024)), store: store}
}

func newTestRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	g := r.Group("/api/v1/images", middleware.Identity(middleware.IdentityConfig{UserHeader: "X-User-Id"}))
	g.POST("", h.UploadImage)
	g.GET("", h.ListImages)
	g.GET("/:image_id", h.GetImage)
	g.DELETE("/:image_id", h.DeleteImage)
	return r
}

func (e *testEnv) do(t *testing.T, method, target, user string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if user != "" {
		req.Header.Set("X-User-Id", user)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func multipartBody(t *testing.T, fields map[string]string, fileName, fileType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if data != nil {
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
		hdr.Set("Content-Type", fileType)
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func jsonBody(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(raw)
}

type envelope struct {
	common.Response
	Data json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func (e *testEnv) upload(t *testing.T, user string) models.Image {
	t.Helper()
	body, ct := multipartBody(t, map[string]string{"tags": "sea,sun"}, "dot.gif", "image/gif", gifPayload)
	w := e.do(t, http.MethodPost, "/api/v1/images", user, body, ct)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var rec models.Image
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &rec))
	return rec
}

func TestUploadImage_Multipart(t *testing.T) {
	e := newTestEnv(t)
	rec := e.upload(t, "user123")

	assert.Equal(t, "user123", rec.UserID)
	assert.Equal(t, "dot.gif", rec.ImageName)
	assert.Equal(t, []string{"sea", "sun"}, rec.Tags)
	assert.Equal(t, "image/gif", rec.ContentType)
	assert.Equal(t, int64(len(gifPayload)), rec.SizeBytes)
	assert.Equal(t, 1, e.store.Len())
}

func TestUploadImage_JSON(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodPost, "/api/v1/images", "user123", jsonBody(t, map[string]interface{}{
		"file":        base64.StdEncoding.EncodeToString(gifPayload),
		"image_name":  "pixel",
		"description": "one pixel",
		"tags":        []string{"tiny"},
	}), "application/json")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	env := decodeEnvelope(t, w)
	assert.Equal(t, "success", env.Status)
	var rec models.Image
	require.NoError(t, json.Unmarshal(env.Data, &rec))
	assert.Equal(t, "pixel", rec.ImageName)
	assert.Equal(t, "one pixel", rec.Description)
}

func TestUploadImage_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		user   string
		body   func(t *testing.T) (*bytes.Buffer, string)
		status int
		code   string
	}{
		{"no identity", "", func(t *testing.T) (*bytes.Buffer, string) {
			return multipartBody(t, nil, "a.gif", "image/gif", gifPayload)
		}, http.StatusUnauthorized, middleware.CodeUnauthorized},
		{"missing file", "user123", func(t *testing.T) (*bytes.Buffer, string) {
			return multipartBody(t, map[string]string{"image_name": "a"}, "", "", nil)
		}, http.StatusBadRequest, image.CodeValidation},
		{"not an image", "user123", func(t *testing.T) (*bytes.Buffer, string) {
			return multipartBody(t, nil, "a.txt", "text/plain", []byte("hello"))
		}, http.StatusBadRequest, image.CodeUnsupportedMIME},
		{"declared type mismatch", "user123", func(t *testing.T) (*bytes.Buffer, string) {
			return multipartBody(t, map[string]string{"content_type": "image/png"}, "a.gif", "image/gif", gifPayload)
		}, http.StatusBadRequest, image.CodeUnsupportedMIME},
		{"too large", "user123", func(t *testing.T) (*bytes.Buffer, string) {
			return multipartBody(t, nil, "a.gif", "image/gif", append(append([]byte{}, gifPayload...), make([]byte, 2048)...))
		}, http.StatusRequestEntityTooLarge, image.CodeFileSizeExceeded},
		{"bad base64", "user123", func(t *testing.T) (*bytes.Buffer, string) {
			return jsonBody(t, map[string]string{"file": "***", "image_name": "a"}), "application/json"
		}, http.StatusBadRequest, image.CodeValidation},
		{"unknown json field", "user123", func(t *testing.T) (*bytes.Buffer, string) {
			return jsonBody(t, map[string]string{"file": base64.StdEncoding.EncodeToString(gifPayload), "image_name": "a", "owner": "x"}), "application/json"
		}, http.StatusBadRequest, image.CodeValidation},
		{"invalid user id", "u", func(t *testing.T) (*bytes.Buffer, string) {
			return multipartBody(t, nil, "a.gif", "image/gif", gifPayload)
		}, http.StatusBadRequest, image.CodeValidation},
		{"unsupported content type", "user123", func(t *testing.T) (*bytes.Buffer, string) {
			return bytes.NewBufferString("raw"), "text/plain"
		}, http.StatusUnsupportedMediaType, image.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnv(t)
			body, ct := tt.body(t)
			w := e.do(t, http.MethodPost, "/api/v1/images", tt.user, body, ct)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			env := decodeEnvelope(t, w)
			assert.Equal(t, "error", env.Status)
			assert.Equal(t, tt.code, env.Code)
			assert.NotEmpty(t, env.Timestamp)
			assert.Equal(t, 0, e.store.Len())
		})
	}
}

func TestGetImage(t *testing.T) {
	e := newTestEnv(t)
	rec := e.upload(t, "user123")
	target := "/api/v1/images/" + rec.ImageID

	w := e.do(t, http.MethodGet, target, "user123", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, gifPayload, w.Body.Bytes())
	assert.Equal(t, "image/gif", w.Header().Get("Content-Type"))
	assert.Equal(t, `inline; filename="dot.gif"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "private, max-age=86400", w.Header().Get("Cache-Control"))
	assert.Empty(t, w.Header().Get(MetadataHeader))
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	w = e.do(t, http.MethodGet, target+"?download=true&metadata=true", "user123", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Disposition"), "attachment;"))
	raw, err := base64.StdEncoding.DecodeString(w.Header().Get(MetadataHeader))
	require.NoError(t, err)
	var meta models.Image
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, rec.ImageID, meta.ImageID)
	assert.Equal(t, rec.StorageKey, meta.StorageKey)

	req := httptest.NewRequest(http.MethodGet, target, nil)
	req.Header.Set("X-User-Id", "user123")
	req.Header.Set("If-None-Match", etag)
	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotModified, w.Code)
	assert.Empty(t, w.Body.Bytes())
}

func TestGetImage_NotFound(t *testing.T) {
	e := newTestEnv(t)
	rec := e.upload(t, "user123")

	for _, tc := range []struct{ user, id string }{
		{"user123", "nonexistent"},
		{"attacker", rec.ImageID},
	} {
		w := e.do(t, http.MethodGet, "/api/v1/images/"+tc.id, tc.user, nil, "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, image.CodeImageNotFound, decodeEnvelope(t, w).Code)
	}
}

func TestGetImage_MissingObject(t *testing.T) {
	e := newTestEnv(t)
	rec := e.upload(t, "user123")
	require.NoError(t, e.store.DeleteWithContext(context.Background(), rec.StorageKey))

	w := e.do(t, http.MethodGet, "/api/v1/images/"+rec.ImageID, "user123", nil, "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, image.CodeStorageInconsistent, decodeEnvelope(t, w).Code)
}

func TestListImages(t *testing.T) {
	e := newTestEnv(t)
	ids := map[string]bool{}
	for i := 0; i < 3; i++ {
		ids[e.upload(t, "user123").ImageID] = true
	}
	e.upload(t, "someone")

	type page struct {
		Images     []models.Image `json:"images"`
		NextCursor string         `json:"next_cursor"`
		Count      int            `json:"count"`
	}

	seen := map[string]bool{}
	target := "/api/v1/images?limit=2"
	for i := 0; i < 3; i++ {
		w := e.do(t, http.MethodGet, target, "user123", nil, "")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var p page
		require.NoError(t, json.Unmarshal(decodeEnvelope(t, w).Data, &p))
		assert.Equal(t, len(p.Images), p.Count)
		for _, img := range p.Images {
			seen[img.ImageID] = true
		}
		if p.NextCursor == "" {
			break
		}
		target = "/api/v1/images?limit=2&cursor=" + p.NextCursor
	}
	assert.Equal(t, ids, seen)

	for _, q := range []string{"limit=abc", "limit=500", "sort_by=size", "start_date=01-01-2024", "cursor=%21%21"} {
		w := e.do(t, http.MethodGet, "/api/v1/images?"+q, "user123", nil, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestDeleteImage(t *testing.T) {
	e := newTestEnv(t)
	rec := e.upload(t, "user123")
	target := "/api/v1/images/" + rec.ImageID

	w := e.do(t, http.MethodDelete, target, "attacker", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodDelete, target, "user123", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"image_id":"`+rec.ImageID+`"}`, string(decodeEnvelope(t, w).Data))
	assert.Equal(t, 0, e.store.Len())

	w = e.do(t, http.MethodGet, target, "user123", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = e.do(t, http.MethodDelete, target, "user123", nil, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// failingService 总是返回指定错误
type failingService struct{ err error }

func (f failingService) Upload(context.Context, image.UploadInput) (*models.Image, error) {
	return nil, f.err
}
func (f failingService) List(context.Context, image.ListInput) (*image.ListResult, error) {
	return nil, f.err
}
func (f failingService) Get(context.Context, image.GetInput) (*image.GetResult, error) {
	return nil, f.err
}
func (f failingService) Delete(context.Context, string, string) error { return f.err }

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unavailable", &image.Error{Kind: image.ErrStorageUnavailable, Code: image.CodeStorageUnavailable, Message: "down"}, http.StatusBadGateway, image.CodeStorageUnavailable},
		{"inconsistent", &image.Error{Kind: image.ErrStorageInconsistent, Code: image.CodeStorageInconsistent, Message: "missing"}, http.StatusInternalServerError, image.CodeStorageInconsistent},
		{"too large", &image.Error{Kind: image.ErrInvalidInput, Code: image.CodeFileSizeExceeded, Message: "big"}, http.StatusRequestEntityTooLarge, image.CodeFileSizeExceeded},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, common.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(NewHandler(failingService{err: tt.err}, 1024))
			req := httptest.NewRequest(http.MethodDelete, "/api/v1/images/img_x", nil)
			req.Header.Set("X-User-Id", "user123")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			env := decodeEnvelope(t, w)
			assert.Equal(t, tt.code, env.Code)
			assert.NotContains(t, w.Body.String(), "boom")
		})
	}
}

func TestContentDisposition(t *testing.T) {
	assert.Equal(t, `inline; filename="a.png"`, contentDisposition("a.png", false))
	assert.Equal(t, `attachment; filename="a.png"`, contentDisposition("a.png", true))
	assert.Equal(t, `inline; filename="__.jpg"; filename*=UTF-8''%E7%85%A7%E7%89%87.jpg`, contentDisposition("照片.jpg", false))
	assert.Equal(t, `inline; filename="a_b_.png"; filename*=UTF-8''a%22b%22.png`, contentDisposition(`a"b".png`, false))
	assert.Equal(t, "inline", contentDisposition("", false))
}
