package model

import "time"

// 注文に紐づく質問フォーム回答。該当明細がある注文は承認待ちになる。
type FormMetaData struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   int64     `gorm:"not null;index" json:"order_id"`
	ProductID int64     `gorm:"not null;index" json:"product_id"`
	TagSlug   string    `gorm:"type:varchar(100);not null" json:"tag_slug"`
	ValueJSON string    `gorm:"type:jsonb" json:"value_json"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
}
