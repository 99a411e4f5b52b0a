package repository

import (
	"context"
	"errors"

	"pharmacy/internal/domain/model"
)

// versionが一致しなかった（他の更新が先に入った）
var ErrVersionConflict = errors.New("cart version conflict")

// カートの永続化。実体は1ドキュメントで、更新はversion一致時のみ成功する。
type CartRepository interface {
	FindByID(ctx context.Context, id string) (model.Cart, error)

	// 新規作成。idとversion=1を採番して返す。
	Create(ctx context.Context, cart model.Cart) (model.Cart, error)

	// compare-and-swap更新。cart.Versionが保存時と一致しなければErrVersionConflict。
	UpdateCAS(ctx context.Context, cart model.Cart) (model.Cart, error)

	Delete(ctx context.Context, id string) error
}
