package model

import (
	"time"

	"gorm.io/gorm"
)

// 税区分（販売価格は税抜で持ち、カート投入時に税込へ変換する）
type TaxClass struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(100);not null" json:"name"`
	Rate      float64   `gorm:"not null" json:"rate"` // パーセント（20 = 20%）
	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 商品ごとの在庫
type Inventory struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ProductID int64     `gorm:"not null;uniqueIndex" json:"product_id"`
	Quantity  int64     `gorm:"not null" json:"quantity"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

type Product struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"type:varchar(255);not null" json:"name"`
	Slug        string `gorm:"type:varchar(255);not null;uniqueIndex" json:"slug"`
	Description string `gorm:"type:text" json:"description"`
	Image       string `gorm:"type:varchar(512)" json:"image"`

	SellingPrice float64  `gorm:"not null" json:"selling_price"` // 税抜
	CostPrice    float64  `gorm:"not null;default:0" json:"cost_price"`
	TaxClassID   int64    `gorm:"not null;index" json:"tax_class_id"`
	TaxClass     TaxClass `gorm:"foreignKey:TaxClassID" json:"tax_class"`

	// 1人あたりの購入上限。0なら無制限。
	LimitPerUser int64 `gorm:"not null;default:0" json:"limit_per_user"`

	InStock bool  `gorm:"not null;default:true" json:"in_stock"`
	Sales   int64 `gorm:"not null;default:0" json:"sales"`

	// 規制対象商品の質問フォーム種別。空なら不要。
	TagSlug string `gorm:"type:varchar(100)" json:"tag_slug"`

	BrandID    *int64     `gorm:"index" json:"brand_id,omitempty"`
	Categories []Category `gorm:"many2many:product_categories" json:"categories,omitempty"`
	Inventory  Inventory  `gorm:"foreignKey:ProductID" json:"inventory"`

	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
