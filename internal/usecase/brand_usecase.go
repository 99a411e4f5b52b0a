package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"pharmacy/internal/domain/model"
	repo "pharmacy/internal/repository"
)

type BrandUsecase struct {
	brandRepo repo.BrandRepository
}

// DI
func NewBrandUsecase(brandRepo repo.BrandRepository) *BrandUsecase {
	return &BrandUsecase{brandRepo: brandRepo}
}

func (u *BrandUsecase) List(ctx context.Context) ([]model.Brand, error) {
	items, err := u.brandRepo.List(ctx)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return items, nil
}

func (u *BrandUsecase) Get(ctx context.Context, brandID int64) (model.Brand, error) {
	if brandID <= 0 {
		return model.Brand{}, NewHTTPError(http.StatusBadRequest, "invalid brand id")
	}

	b, err := u.brandRepo.FindByID(ctx, brandID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Brand{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Brand{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return b, nil
}

type BrandInput struct {
	Name        string
	Slug        string
	Description string
	Image       string
}

func (u *BrandUsecase) AdminCreate(ctx context.Context, in BrandInput) (int64, error) {
	if strings.TrimSpace(in.Name) == "" {
		return 0, NewHTTPError(http.StatusBadRequest, "name required")
	}
	if strings.TrimSpace(in.Slug) == "" {
		return 0, NewHTTPError(http.StatusBadRequest, "slug required")
	}

	b, err := u.brandRepo.Create(ctx, model.Brand{
		Name:        strings.TrimSpace(in.Name),
		Slug:        strings.TrimSpace(in.Slug),
		Description: in.Description,
		Image:       in.Image,
	})
	if err != nil {
		return 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return b.ID, nil
}

func (u *BrandUsecase) AdminUpdate(ctx context.Context, brandID int64, in BrandInput) error {
	if brandID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid brand id")
	}
	if strings.TrimSpace(in.Name) == "" {
		return NewHTTPError(http.StatusBadRequest, "name required")
	}
	if strings.TrimSpace(in.Slug) == "" {
		return NewHTTPError(http.StatusBadRequest, "slug required")
	}

	err := u.brandRepo.Update(ctx, model.Brand{
		ID:          brandID,
		Name:        strings.TrimSpace(in.Name),
		Slug:        strings.TrimSpace(in.Slug),
		Description: in.Description,
		Image:       in.Image,
	})
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

func (u *BrandUsecase) AdminDelete(ctx context.Context, brandID int64) error {
	if brandID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid brand id")
	}

	err := u.brandRepo.SoftDelete(ctx, brandID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}
