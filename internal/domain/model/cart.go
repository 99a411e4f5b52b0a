package model

import "time"

// 規制対象商品の質問フォーム回答。該当明細にだけ付く。
type CartFormMeta struct {
	ProductID int64          `bson:"product_id" json:"product_id"`
	TagSlug   string         `bson:"tag_slug" json:"tag_slug"`
	Value     map[string]any `bson:"value" json:"value"`
}

// カート明細。priceは追加/更新時点の税込単価スナップショット。
type CartLine struct {
	ProductID    int64         `bson:"product_id" json:"product_id"`
	Quantity     int64         `bson:"quantity" json:"quantity"`
	Price        float64       `bson:"price" json:"price"`
	FormMetaData *CartFormMeta `bson:"form_meta_data,omitempty" json:"form_meta_data,omitempty"`
}

// カートは1ドキュメント。productsは追加順を保ち、同一商品は1行まで。
// total_amountは常にΣ(price×quantity)の切り上げ2桁と一致させる。
// versionは楽観ロック用で更新のたびに+1する。
type Cart struct {
	ID          string     `bson:"_id,omitempty" json:"id"`
	CustomerID  string     `bson:"customer_id" json:"customer_id"`
	Products    []CartLine `bson:"products" json:"products"`
	TotalAmount float64    `bson:"total_amount" json:"total_amount"`
	Version     int64      `bson:"version" json:"-"`
	CreatedAt   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at" json:"updated_at"`
}

// 指定商品の明細indexを返す。無ければ-1。
func (c *Cart) LineIndex(productID int64) int {
	for i := range c.Products {
		if c.Products[i].ProductID == productID {
			return i
		}
	}
	return -1
}
