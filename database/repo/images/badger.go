package images

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/anoixa/image-store/database/models"
)

// 键布局:
//
//	image:<image_id>          -> JSON 记录
//	user:<user_id>:<image_id> -> 空值，按用户前缀扫描
const (
	badgerImagePrefix = "image:"
	badgerUserPrefix  = "user:"
)

// BadgerRepository 基于 badger 的嵌入式元数据仓库
type BadgerRepository struct {
	db *badger.DB
}

// OpenBadger 打开 badger 数据库，dir 为空时使用内存模式
func OpenBadger(dir string) (*badger.DB, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %q: %w", dir, err)
	}
	return db, nil
}

// NewBadgerRepository 创建 badger 仓库
func NewBadgerRepository(db *badger.DB) *BadgerRepository {
	return &BadgerRepository{db: db}
}

func imageKey(imageID string) []byte {
	return []byte(badgerImagePrefix + imageID)
}

func userPrefix(userID string) []byte {
	return []byte(badgerUserPrefix + userID + ":")
}

func userKey(userID, imageID string) []byte {
	return append(userPrefix(userID), imageID...)
}

// decodeImage 记录结构固定，出现未知字段视为损坏
func decodeImage(val []byte, image *models.Image) error {
	dec := json.NewDecoder(bytes.NewReader(val))
	dec.DisallowUnknownFields()
	if err := dec.Decode(image); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after image record")
	}
	return nil
}

func readImage(txn *badger.Txn, imageID string) (*models.Image, error) {
	item, err := txn.Get(imageKey(imageID))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrImageNotFound
		}
		return nil, err
	}

	var image models.Image
	if err := item.Value(func(val []byte) error {
		return decodeImage(val, &image)
	}); err != nil {
		return nil, fmt.Errorf("failed to decode image record %s: %w", imageID, err)
	}
	image.Normalize()
	return &image, nil
}

// Create 写入记录与用户索引
func (r *BadgerRepository) Create(ctx context.Context, image *models.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(image)
	if err != nil {
		return fmt.Errorf("failed to encode image record: %w", err)
	}

	err = r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(imageKey(image.ImageID)); err == nil {
			return fmt.Errorf("%w: %s", ErrDuplicateImage, image.ImageID)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set(imageKey(image.ImageID), data); err != nil {
			return err
		}
		return txn.Set(userKey(image.UserID, image.ImageID), []byte{})
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateImage) {
			return err
		}
		return fmt.Errorf("failed to create image record: %w", err)
	}
	return nil
}

// GetByImageID 按 image_id 查询
func (r *BadgerRepository) GetByImageID(ctx context.Context, imageID string) (*models.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var image *models.Image
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		image, err = readImage(txn, imageID)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrImageNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get image record: %w", err)
	}
	return image, nil
}

// DeleteByImageID 删除记录与用户索引
func (r *BadgerRepository) DeleteByImageID(ctx context.Context, imageID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := r.db.Update(func(txn *badger.Txn) error {
		image, err := readImage(txn, imageID)
		if err != nil {
			return err
		}
		if err := txn.Delete(userKey(image.UserID, imageID)); err != nil {
			return err
		}
		return txn.Delete(imageKey(imageID))
	})
	if err != nil {
		if errors.Is(err, ErrImageNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete image record: %w", err)
	}
	return nil
}

// ListByUser 扫描用户前缀后在内存中分页
func (r *BadgerRepository) ListByUser(ctx context.Context, q ListQuery) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var items []*models.Image
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := userPrefix(q.UserID)
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			imageID := string(it.Item().Key()[len(prefix):])
			image, err := readImage(txn, imageID)
			if errors.Is(err, ErrImageNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			items = append(items, image)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list image records: %w", err)
	}

	return Paginate(items, q)
}

// Ping 检查数据库状态
func (r *BadgerRepository) Ping(ctx context.Context) error {
	if r.db.IsClosed() {
		return errors.New("badger database is closed")
	}
	return nil
}
