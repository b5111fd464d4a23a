package model

import "time"

// Product はカタログに掲載される商品を表す。
type Product struct {
	ID          string    `json:"product_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       float64   `json:"price"`
	Sizes       []string  `json:"sizes"`
	Colors      []string  `json:"colors"`
	Images      []string  `json:"images"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ProductInput は商品作成時の入力値。
type ProductInput struct {
	Name        string
	Description string
	Price       float64
	Sizes       []string
	Colors      []string
	Images      []string
}

// ProductPatch は商品の部分更新の入力値。
// nil のフィールドは「変更しない」を意味する。
// 未指定と明示的なnullは区別しない。
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *float64
	Sizes       []string
	Colors      []string
	Images      []string
}

// IsEmpty は変更対象のフィールドが1つもないかどうかを返す。
func (p ProductPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil &&
		p.Sizes == nil && p.Colors == nil && p.Images == nil
}

// ApplyTo はパッチの指定フィールドだけを商品に反映する。
// updated_at は呼び出し元が更新する。
func (p ProductPatch) ApplyTo(product *Product) {
	if p.Name != nil {
		product.Name = *p.Name
	}
	if p.Description != nil {
		product.Description = *p.Description
	}
	if p.Price != nil {
		product.Price = *p.Price
	}
	if p.Sizes != nil {
		product.Sizes = append([]string{}, p.Sizes...)
	}
	if p.Colors != nil {
		product.Colors = append([]string{}, p.Colors...)
	}
	if p.Images != nil {
		product.Images = append([]string{}, p.Images...)
	}
}
