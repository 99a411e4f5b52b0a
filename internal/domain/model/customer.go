package model

import "time"

// 配送先住所。Order/Transaction/Customerに埋め込む。
type Address struct {
	Line1    string `gorm:"column:addr_line1;type:varchar(255)" json:"line1"`
	Line2    string `gorm:"column:addr_line2;type:varchar(255)" json:"line2,omitempty"`
	City     string `gorm:"column:addr_city;type:varchar(100)" json:"city"`
	State    string `gorm:"column:addr_state;type:varchar(100)" json:"state,omitempty"`
	PostCode string `gorm:"column:addr_post_code;type:varchar(20)" json:"post_code"`
	Country  string `gorm:"column:addr_country;type:varchar(100)" json:"country"`
}

// 顧客。決済完了時にemailで引き当てて住所を更新する。
type Customer struct {
	ID    int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Email string `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	Name  string `gorm:"type:varchar(255)" json:"name"`

	// 進行中カートへの参照。注文確定でクリア。
	CartID *string `gorm:"type:varchar(64)" json:"cart_id,omitempty"`

	Address Address `gorm:"embedded" json:"address"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
