package models

import (
	"time"

	"gorm.io/gorm"
)

// Image 图片元数据记录，字段一经创建不再修改
type Image struct {
	ImageID     string    `gorm:"column:image_id;primaryKey;size:64" json:"image_id"`
	UserID      string    `gorm:"column:user_id;size:50;not null;index:idx_images_user_created,priority:1" json:"user_id"`
	ImageName   string    `gorm:"column:image_name;size:255;not null" json:"image_name"`
	Description string    `gorm:"column:description;not null;default:''" json:"description"`
	Tags        []string  `gorm:"column:tags;serializer:json" json:"tags"`
	ContentType string    `gorm:"column:content_type;size:64;not null" json:"content_type"`
	SizeBytes   int64     `gorm:"column:size_bytes;not null" json:"size_bytes"`
	StorageKey  string    `gorm:"column:storage_key;size:1024;not null;uniqueIndex:idx_images_storage_key" json:"storage_key"`
	CreatedAt   time.Time `gorm:"column:created_at;not null;index:idx_images_user_created,priority:2" json:"created_at"`
}

// TableName 表名
func (Image) TableName() string {
	return "images"
}

// AfterFind 空标签统一为空切片
func (i *Image) AfterFind(tx *gorm.DB) error {
	i.Normalize()
	return nil
}

// Normalize 保证 Tags 不为 nil，序列化时输出 []
func (i *Image) Normalize() {
	if i.Tags == nil {
		i.Tags = []string{}
	}
}
