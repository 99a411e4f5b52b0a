package usecase

import (
	"context"

	"pharmacy/internal/config"
	"pharmacy/internal/domain/model"
	repo "pharmacy/internal/repository"
)

// RestrictionPolicy は規制カテゴリの購入上限を判定します。
// ルールごとにslug集合を持ち、その集合に属する商品はカート全体で
// 「1商品まで・合計1点まで」に制限される。
// どのルールのカテゴリにも属さない商品は数量に関係なく対象外。
type RestrictionPolicy struct {
	categories repo.CategoryRepository
	rules      []config.RestrictionRule
}

func NewRestrictionPolicy(categories repo.CategoryRepository, rules []config.RestrictionRule) *RestrictionPolicy {
	return &RestrictionPolicy{
		categories: categories,
		rules:      rules,
	}
}

// Evaluate は提案後の明細全体を評価する。
// 変更された行だけでなく毎回全行で判定し、違反したルール名を返す。
func (p *RestrictionPolicy) Evaluate(ctx context.Context, lines []model.CartLine) (bool, string, error) {
	if len(lines) == 0 {
		return false, "", nil
	}

	ids := make([]int64, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}

	for _, rule := range p.rules {
		matched, err := p.categories.ListProductIDsInCategories(ctx, rule.Slugs, ids)
		if err != nil {
			return false, "", err
		}
		if len(matched) == 0 {
			continue
		}

		// 対象カテゴリの商品が2種類以上
		if len(matched) > 1 {
			return true, rule.Name, nil
		}

		// 1種類でも合計数量が1を超えたら違反
		matchedSet := make(map[int64]bool, len(matched))
		for _, id := range matched {
			matchedSet[id] = true
		}

		var total int64
		for _, l := range lines {
			if matchedSet[l.ProductID] {
				total += l.Quantity
			}
		}
		if total > 1 {
			return true, rule.Name, nil
		}
	}

	return false, "", nil
}
