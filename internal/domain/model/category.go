package model

import (
	"time"

	"gorm.io/gorm"
)

// 商品カテゴリ。規制対象カテゴリはslugで判定する。
type Category struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"type:varchar(255);not null" json:"name"`
	Slug        string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	Image       string    `gorm:"type:varchar(512)" json:"image"`
	ParentID    *int64    `gorm:"index" json:"parent_id,omitempty"`
	Products    []Product `gorm:"many2many:product_categories" json:"-"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
