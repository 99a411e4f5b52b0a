package repository

import (
	"context"

	"pharmacy/internal/domain/model"
)

type CategoryRepository interface {
	List(ctx context.Context) ([]model.Category, error)
	FindByID(ctx context.Context, id int64) (model.Category, error)
	FindBySlug(ctx context.Context, slug string) (model.Category, error)

	// slug集合のいずれかに属する商品idを、candidateIDsの中から重複なしで返す。
	// 規制カテゴリ判定で使う。
	ListProductIDsInCategories(ctx context.Context, slugs []string, candidateIDs []int64) ([]int64, error)

	Create(ctx context.Context, c model.Category) (model.Category, error)
	Update(ctx context.Context, c model.Category) error
	SoftDelete(ctx context.Context, id int64) error
}
