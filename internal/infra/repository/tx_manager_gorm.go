package repository

import (
	"context"

	repo "pharmacy/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	orders       repo.OrderRepository
	orderLines   repo.OrderLineRepository
	transactions repo.TransactionRepository
	formMeta     repo.FormMetaRepository
	customers    repo.CustomerRepository
	inventory    repo.InventoryRepository
	products     repo.ProductRepository
}

func (r *txReposGorm) Orders() repo.OrderRepository             { return r.orders }
func (r *txReposGorm) OrderLines() repo.OrderLineRepository     { return r.orderLines }
func (r *txReposGorm) Transactions() repo.TransactionRepository { return r.transactions }
func (r *txReposGorm) FormMeta() repo.FormMetaRepository        { return r.formMeta }
func (r *txReposGorm) Customers() repo.CustomerRepository       { return r.customers }
func (r *txReposGorm) Inventory() repo.InventoryRepository      { return r.inventory }
func (r *txReposGorm) Products() repo.ProductRepository         { return r.products }

type TxManagerGorm struct {
	db *gorm.DB
}

func NewTxManagerGorm(db *gorm.DB) *TxManagerGorm {
	return &TxManagerGorm{db: db}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			orders:       NewOrderGormRepository(tx),
			orderLines:   NewOrderLineGormRepository(tx),
			transactions: NewTransactionGormRepository(tx),
			formMeta:     NewFormMetaGormRepository(tx),
			customers:    NewCustomerGormRepository(tx),
			inventory:    NewInventoryGormRepository(tx),
			products:     NewProductGormRepository(tx),
		}
		return fn(r)
	})
}
