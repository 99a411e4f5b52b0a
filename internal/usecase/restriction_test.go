package usecase_test

import (
	"context"
	"testing"

	"pharmacy/internal/domain/model"
	"pharmacy/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestRestrictionPolicy_EmptyCartNoViolation(t *testing.T) {
	categories := new(CartCategoryRepoMock)
	policy := usecase.NewRestrictionPolicy(categories, testRules)

	violated, _, err := policy.Evaluate(context.Background(), nil)
	assert.NoError(t, err)
	assert.False(t, violated)

	// 明細が無ければカテゴリ照会もしない
	categories.AssertNotCalled(t, "ListProductIDsInCategories", mock.Anything, mock.Anything, mock.Anything)
}

func TestRestrictionPolicy_UnrestrictedQuantityUnlimited(t *testing.T) {
	categories := new(CartCategoryRepoMock)
	policy := usecase.NewRestrictionPolicy(categories, testRules)

	categories.On("ListProductIDsInCategories", mock.Anything, mock.Anything, mock.Anything).
		Return([]int64{}, nil)

	lines := []model.CartLine{
		{ProductID: 1, Quantity: 99, Price: 5.00},
		{ProductID: 2, Quantity: 50, Price: 3.00},
	}
	violated, _, err := policy.Evaluate(context.Background(), lines)
	assert.NoError(t, err)
	assert.False(t, violated)
}

func TestRestrictionPolicy_SingleRestrictedUnitAllowed(t *testing.T) {
	categories := new(CartCategoryRepoMock)
	policy := usecase.NewRestrictionPolicy(categories, testRules)

	// 規制対象1商品・数量1はぎりぎりセーフ
	categories.On("ListProductIDsInCategories", mock.Anything, []string{"2-diarrhoea"}, mock.Anything).
		Return([]int64{1}, nil)
	categories.On("ListProductIDsInCategories", mock.Anything, mock.Anything, mock.Anything).
		Return([]int64{}, nil)

	lines := []model.CartLine{
		{ProductID: 1, Quantity: 1, Price: 5.00},
		{ProductID: 9, Quantity: 10, Price: 2.00},
	}
	violated, _, err := policy.Evaluate(context.Background(), lines)
	assert.NoError(t, err)
	assert.False(t, violated)
}

func TestRestrictionPolicy_GroupSpansCategories(t *testing.T) {
	categories := new(CartCategoryRepoMock)
	policy := usecase.NewRestrictionPolicy(categories, testRules)

	// 睡眠剤とパラセタモールは別カテゴリでも同じグループで数える
	categories.On("ListProductIDsInCategories", mock.Anything, []string{"2-diarrhoea"}, mock.Anything).
		Return([]int64{}, nil)
	categories.On("ListProductIDsInCategories", mock.Anything,
		[]string{"opiod-analgesics", "sleeping-tablets", "paracetamol"}, mock.Anything).
		Return([]int64{3, 4}, nil)

	lines := []model.CartLine{
		{ProductID: 3, Quantity: 1, Price: 5.00},
		{ProductID: 4, Quantity: 1, Price: 7.00},
	}
	violated, rule, err := policy.Evaluate(context.Background(), lines)
	assert.NoError(t, err)
	assert.True(t, violated)
	assert.Equal(t, "restricted-group", rule)
}
