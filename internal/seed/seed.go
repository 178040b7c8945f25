// Package seed holds the bundled reference dataset: the catalog entries and
// store settings the client falls back to when the remote store is
// unreachable, and the source for auto-seeding missing reference products.
package seed

import "github.com/upscwallahhacker-cell/Desikart/internal/models"

func intPtr(v int) *int { return &v }

// Settings возвращает настройки по умолчанию. Всегда свежая копия.
func Settings() models.AppSettings {
	return models.AppSettings{
		Payment: models.PaymentSettings{
			CODEnabled:     true,
			DeliveryCharge: 50,
			QRURL:          "https://picsum.photos/id/20/300/300",
		},
		Banners: []string{
			"https://images.unsplash.com/photo-1483985988355-763728e1935b?q=80&w=2070&auto=format&fit=crop",
			"https://images.unsplash.com/photo-1607082348824-0a96f2a4b9da?q=80&w=2070&auto=format&fit=crop",
			"https://images.unsplash.com/photo-1441986300917-64674bd600d8?q=80&w=2070&auto=format&fit=crop",
		},
		Categories: []string{"All", "Groceries", "Electronics", "Fashion"},
	}
}

// Products возвращает эталонный каталог. Всегда свежая копия.
func Products() []models.Product {
	return []models.Product{
		{
			ID:       "p1",
			Name:     "Organic Basmati Rice",
			Price:    299,
			OldPrice: 399,
			Cat:      "Groceries",
			Img: []string{
				"https://images.unsplash.com/photo-1586201375761-83865001e31c?q=80&w=2070&auto=format&fit=crop",
				"https://images.unsplash.com/photo-1626082927389-6cd097cdc6ec?q=80&w=2000&auto=format&fit=crop",
			},
			Desc:    "Premium quality organic basmati rice, aged for 2 years.",
			COD:     true,
			InStock: true,
		},
		{
			ID:       "p2",
			Name:     "Wireless Earbuds Pro",
			Price:    1999,
			OldPrice: 2999,
			Cat:      "Electronics",
			Img: []string{
				"https://images.unsplash.com/photo-1590658268037-6bf12165a8df?q=80&w=1932&auto=format&fit=crop",
				"https://images.unsplash.com/photo-1572569028738-411a56103324?q=80&w=2000&auto=format&fit=crop",
			},
			Desc:         "Active Noise Cancellation, Transparency mode, and spatial audio.",
			COD:          true,
			InStock:      true,
			ReturnPeriod: intPtr(7),
		},
		{
			ID:       "p3",
			Name:     "Men's Cotton T-Shirt",
			Price:    499,
			OldPrice: 799,
			Cat:      "Fashion",
			Img: []string{
				"https://images.unsplash.com/photo-1521572163474-6864f9cf17ab?q=80&w=2080&auto=format&fit=crop",
				"https://images.unsplash.com/photo-1581655353564-df123a1eb820?q=80&w=2000&auto=format&fit=crop",
			},
			Desc:    "100% Cotton breathable fabric, perfect for summer.",
			COD:     true,
			InStock: true,
		},
		{
			ID:       "p4",
			Name:     "Smart Watch Series 5",
			Price:    4999,
			OldPrice: 6999,
			Cat:      "Electronics",
			Img: []string{
				"https://images.unsplash.com/photo-1546868871-7041f2a55e12?q=80&w=1964&auto=format&fit=crop",
				"https://images.unsplash.com/photo-1434493789847-2f02dc6ca35d?q=80&w=2000&auto=format&fit=crop",
				"https://images.unsplash.com/photo-1508685096489-7aacd43bd3b1?q=80&w=2000&auto=format&fit=crop",
			},
			Desc:         "Always-On Retina display, ECG app, and fall detection.",
			COD:          false,
			InStock:      true,
			ReturnPeriod: intPtr(2),
		},
		{
			ID:       "p5",
			Name:     "Organic Green Tea",
			Price:    199,
			OldPrice: 299,
			Cat:      "Groceries",
			Img: []string{
				"https://images.unsplash.com/photo-1556679343-c7306c1976bc?q=80&w=1964&auto=format&fit=crop",
			},
			Desc:         "Rich in antioxidants, aids in weight loss.",
			COD:          true,
			InStock:      true,
			ReturnPeriod: intPtr(0),
		},
		{
			ID:       "p6",
			Name:     "Running Shoes",
			Price:    1299,
			OldPrice: 1999,
			Cat:      "Fashion",
			Img: []string{
				"https://images.unsplash.com/photo-1542291026-7eec264c27ff?q=80&w=2070&auto=format&fit=crop",
				"https://images.unsplash.com/photo-1608231387042-66d1773070a5?q=80&w=2000&auto=format&fit=crop",
			},
			Desc:    "Lightweight running shoes with extra grip.",
			COD:     true,
			InStock: false,
		},
	}
}
