package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"pharmacy/internal/domain/model"
	repo "pharmacy/internal/repository"
)

type CategoryUsecase struct {
	categoryRepo repo.CategoryRepository
}

// DI
func NewCategoryUsecase(categoryRepo repo.CategoryRepository) *CategoryUsecase {
	return &CategoryUsecase{categoryRepo: categoryRepo}
}

func (u *CategoryUsecase) List(ctx context.Context) ([]model.Category, error) {
	items, err := u.categoryRepo.List(ctx)
	if err != nil {
		return nil, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return items, nil
}

func (u *CategoryUsecase) GetBySlug(ctx context.Context, slug string) (model.Category, error) {
	if strings.TrimSpace(slug) == "" {
		return model.Category{}, NewHTTPError(http.StatusBadRequest, "invalid slug")
	}

	c, err := u.categoryRepo.FindBySlug(ctx, slug)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Category{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return model.Category{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return c, nil
}

type CategoryInput struct {
	Name        string
	Slug        string
	Description string
	Image       string
	ParentID    *int64
}

func (u *CategoryUsecase) AdminCreate(ctx context.Context, in CategoryInput) (int64, error) {
	if strings.TrimSpace(in.Name) == "" {
		return 0, NewHTTPError(http.StatusBadRequest, "name required")
	}
	if strings.TrimSpace(in.Slug) == "" {
		return 0, NewHTTPError(http.StatusBadRequest, "slug required")
	}

	c, err := u.categoryRepo.Create(ctx, model.Category{
		Name:        strings.TrimSpace(in.Name),
		Slug:        strings.TrimSpace(in.Slug),
		Description: in.Description,
		Image:       in.Image,
		ParentID:    in.ParentID,
	})
	if err != nil {
		return 0, NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return c.ID, nil
}

func (u *CategoryUsecase) AdminUpdate(ctx context.Context, categoryID int64, in CategoryInput) error {
	if categoryID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid category id")
	}
	if strings.TrimSpace(in.Name) == "" {
		return NewHTTPError(http.StatusBadRequest, "name required")
	}
	if strings.TrimSpace(in.Slug) == "" {
		return NewHTTPError(http.StatusBadRequest, "slug required")
	}

	err := u.categoryRepo.Update(ctx, model.Category{
		ID:          categoryID,
		Name:        strings.TrimSpace(in.Name),
		Slug:        strings.TrimSpace(in.Slug),
		Description: in.Description,
		Image:       in.Image,
		ParentID:    in.ParentID,
	})
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}

func (u *CategoryUsecase) AdminDelete(ctx context.Context, categoryID int64) error {
	if categoryID <= 0 {
		return NewHTTPError(http.StatusBadRequest, "invalid category id")
	}

	err := u.categoryRepo.SoftDelete(ctx, categoryID)
	if errors.Is(err, repo.ErrNotFound) {
		return NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, "db error")
	}
	return nil
}
