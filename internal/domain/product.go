package domain

// Product is a catalog entry joined with its decoded post meta.
type Product struct {
	ID          int64
	Title       string
	Description string
	Meta        map[string]any
}

// Meta keys read by the bridge.
const (
	MetaRegularPrice = "_regular_price"
	MetaPrice        = "_price"
	MetaThumbnailID  = "_thumbnail_id"
	MetaStock        = "_stock"
	MetaStockStatus  = "_stock_status"
	MetaManageStock  = "_manage_stock"
	MetaSKU          = "_sku"
)

// EnrichedCart is a session cart joined with the products it references.
type EnrichedCart struct {
	CartID   string
	Session  SessionRecord
	Products []Product
	// Images maps attachment ids to public URLs.
	Images map[int64]string
}

// Product returns the enriched product for id, if the catalog had it.
func (c EnrichedCart) Product(id int64) (Product, bool) {
	for _, p := range c.Products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}
