package product

import "github.com/atelie/catalog/internal/model"

// SampleProducts はseedコマンドで投入するサンプル商品。
var SampleProducts = []model.ProductInput{
	{
		Name:        "Bolsa de Crochê Colorida",
		Description: "Uma linda bolsa de crochê com cores vibrantes, perfeita para o dia a dia. Feita com linha 100% algodão.",
		Price:       45.90,
		Sizes:       []string{"P", "M", "G"},
		Colors:      []string{"#FF6B6B", "#4ECDC4", "#45B7D1", "#FFFFFF"},
		Images: []string{
			"https://images.unsplash.com/photo-1594633312681-425c7b97ccd1?w=500",
			"https://images.unsplash.com/photo-1594633313885-c4c4ec63a049?w=500",
		},
	},
	{
		Name:        "Top de Crochê Verão",
		Description: "Top elegante de crochê ideal para o verão. Design moderno e confortável.",
		Price:       35.50,
		Sizes:       []string{"P", "M", "G"},
		Colors:      []string{"#FFFFFF", "#F4E4BC", "#E8B4B8"},
		Images: []string{
			"https://images.unsplash.com/photo-1515372039744-b8f02a3ae446?w=500",
			"https://images.unsplash.com/photo-1515372039661-2a1b7a6c55aa?w=500",
		},
	},
	{
		Name:        "Amigurumi Coelhinho",
		Description: "Adorável coelhinho amigurumi feito com muito carinho. Perfeito como presente ou decoração.",
		Price:       25.00,
		Sizes:       []string{"Tamanho único"},
		Colors:      []string{"#F8F8F8", "#FFB6C1", "#87CEEB"},
		Images: []string{
			"https://images.unsplash.com/photo-1601758228041-f3b2795255f1?w=500",
		},
	},
}
