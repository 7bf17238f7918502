package image

import (
	"bytes"
	"context"
	stdimage "image"
	"image/jpeg"
	"image/png"
	"io"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anoixa/image-store/database/models"
	"github.com/anoixa/image-store/database/repo/images"
	"github.com/anoixa/image-store/internal/services/reconcile"
	"github.com/anoixa/image-store/storage"
)

// fakeRepo 计数的内存元数据存储
type fakeRepo struct {
	mu      sync.Mutex
	records map[string]*models.Image

	creates, gets, deletes, lists int

	createErr error
	getErr    error
	deleteErr error
	listErr   error
	onCreate  func(ctx context.Context) error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{records: make(map[string]*models.Image)}
}

func (r *fakeRepo) Create(ctx context.Context, img *models.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.onCreate != nil {
		if err := r.onCreate(ctx); err != nil {
			return err
		}
	}
	if r.createErr != nil {
		return r.createErr
	}
	if _, ok := r.records[img.ImageID]; ok {
		return images.ErrDuplicateImage
	}
	cp := *img
	r.records[img.ImageID] = &cp
	return nil
}

func (r *fakeRepo) GetByImageID(ctx context.Context, imageID string) (*models.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gets++
	if r.getErr != nil {
		return nil, r.getErr
	}
	img, ok := r.records[imageID]
	if !ok {
		return nil, images.ErrImageNotFound
	}
	cp := *img
	return &cp, nil
}

func (r *fakeRepo) DeleteByImageID(ctx context.Context, imageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletes++
	if r.deleteErr != nil {
		return r.deleteErr
	}
	if _, ok := r.records[imageID]; !ok {
		return images.ErrImageNotFound
	}
	delete(r.records, imageID)
	return nil
}

func (r *fakeRepo) ListByUser(ctx context.Context, q images.ListQuery) (*images.Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lists++
	if r.listErr != nil {
		return nil, r.listErr
	}
	items := make([]*models.Image, 0, len(r.records))
	for _, img := range r.records {
		items = append(items, img)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ImageID < items[j].ImageID })
	return images.Paginate(items, q)
}

func (r *fakeRepo) Ping(ctx context.Context) error { return nil }

func (r *fakeRepo) writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.creates + r.deletes
}

// fakeStore 计数并可注入错误的对象存储
type fakeStore struct {
	*storage.MemoryStorage

	mu                  sync.Mutex
	puts, gets, deletes int

	putErr    error
	getErr    error
	deleteErr error

	// beforeGet 在读取对象前执行，用于模拟并发操作
	beforeGet func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{MemoryStorage: storage.NewMemoryStorage()}
}

func (s *fakeStore) PutWithContext(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error) {
	s.mu.Lock()
	s.puts++
	err := s.putErr
	s.mu.Unlock()
	if err != nil {
		return "", err
	}
	return s.MemoryStorage.PutWithContext(ctx, key, r, size, contentType)
}

func (s *fakeStore) GetWithContext(ctx context.Context, key string) (*storage.Object, error) {
	s.mu.Lock()
	s.gets++
	err := s.getErr
	hook := s.beforeGet
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	return s.MemoryStorage.GetWithContext(ctx, key)
}

func (s *fakeStore) DeleteWithContext(ctx context.Context, key string) error {
	s.mu.Lock()
	s.deletes++
	err := s.deleteErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.MemoryStorage.DeleteWithContext(ctx, key)
}

func (s *fakeStore) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts + s.gets + s.deletes
}

type harness struct {
	svc    *Service
	repo   *fakeRepo
	store  *fakeStore
	ledger *reconcile.MemoryLedger
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		repo:   newFakeRepo(),
		store:  newFakeStore(),
		ledger: reconcile.NewMemoryLedger(0),
	}
	h.svc = NewService(h.repo, h.store, h.ledger, Options{
		MaxUploadBytes: 1 << 20,
		StrictDecode:   true,
	})
	return h
}

func (h *harness) ledgerEntries(t *testing.T) []reconcile.Entry {
	t.Helper()
	entries, err := h.ledger.List(context.Background(), 0)
	require.NoError(t, err)
	return entries
}

// jpegOfSize 生成带 JFIF 头、长度恰为 size 的 JPEG 数据
func jpegOfSize(t *testing.T, size int) []byte {
	t.Helper()
	img := stdimage.NewGray(stdimage.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 4)
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}))

	app0 := []byte{
		0xFF, 0xE0, 0x00, 0x10,
		'J', 'F', 'I', 'F', 0x00,
		0x01, 0x01, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00,
	}
	raw := buf.Bytes()
	data := make([]byte, 0, len(raw)+len(app0))
	data = append(data, raw[:2]...)
	data = append(data, app0...)
	data = append(data, raw[2:]...)

	if len(data) >= size {
		return data[:size]
	}
	return append(data, make([]byte, size-len(data))...)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, 2, 2))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
