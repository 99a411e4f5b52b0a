package model

import "time"

type TransactionStatus string

const (
	TransactionStatusPending    TransactionStatus = "PENDING"
	TransactionStatusProcessing TransactionStatus = "PROCESSING"
	TransactionStatusCompleted  TransactionStatus = "COMPLETED"
	TransactionStatusCancelled  TransactionStatus = "CANCELLED"
)

// 決済トランザクション。注文1件につき1件。
type Transaction struct {
	ID         int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID    int64             `gorm:"not null;uniqueIndex" json:"order_id"`
	CustomerID string            `gorm:"type:varchar(64);not null" json:"customer_id"`
	Amount     float64           `gorm:"not null" json:"amount"`
	Status     TransactionStatus `gorm:"type:varchar(20);not null" json:"status"`
	Address    Address           `gorm:"embedded" json:"address"`
	CreatedAt  time.Time         `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
