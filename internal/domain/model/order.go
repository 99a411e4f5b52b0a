package model

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusApproved   OrderStatus = "APPROVED"
	OrderStatusReject     OrderStatus = "REJECT"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusCanceled   OrderStatus = "CANCELED"
)

// 注文。カート1つにつき1回だけ作られる。
type Order struct {
	ID int64 `gorm:"primaryKey;autoIncrement" json:"id"`

	// 表示用注文番号（ORD-XXXXXXXX）
	OrderNumber string `gorm:"type:varchar(32);not null;uniqueIndex" json:"order_number"`

	// 決済イベントの冪等キー。再配送されても注文は増えない。
	PaymentIntentID string `gorm:"type:varchar(255);not null;uniqueIndex" json:"-"`

	CartID     string      `gorm:"type:varchar(64);not null;uniqueIndex" json:"cart_id"`
	CustomerID int64       `gorm:"not null;index" json:"customer_id"`
	Status     OrderStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	TotalAmount float64 `gorm:"not null" json:"total_amount"`
	Address     Address `gorm:"embedded" json:"address"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
