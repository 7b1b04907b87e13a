package httpserver

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/oapi-codegen/nullable"

	"woocart-bridge/internal/domain"
	"woocart-bridge/internal/phpser"
	"woocart-bridge/internal/pricing"
)

// Storefront global id prefixes.
const (
	gidCart           = "gid://shopify/Cart/"
	gidCartLine       = "gid://shopify/CartLine/"
	gidProduct        = "gid://shopify/Product/"
	gidProductVariant = "gid://shopify/ProductVariant/"
	gidProductImage   = "gid://shopify/ProductImage/"
)

// createdAtOffset backdates createdAt; sessions carry no creation time.
const createdAtOffset = 10 * time.Minute

// sfTimeLayout matches PHP's date('c').
const sfTimeLayout = "2006-01-02T15:04:05-07:00"

type sfCartEnvelope struct {
	Cart sfCart `json:"cart"`
}

type sfCart struct {
	ID                  string                 `json:"id"`
	DiscountCodes       []string               `json:"discountCodes"`
	Attributes          []sfAttribute          `json:"attributes"`
	BuyerIdentity       sfBuyerIdentity        `json:"buyerIdentity"`
	CheckoutURL         string                 `json:"checkoutUrl"`
	CreatedAt           string                 `json:"createdAt"`
	UpdatedAt           string                 `json:"updatedAt"`
	DiscountAllocations []sfDiscountAllocation `json:"discountAllocations"`
	Cost                sfCartCost             `json:"cost"`
	Note                string                 `json:"note"`
	Lines               sfLines                `json:"lines"`
}

type sfAttribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type sfBuyerIdentity struct {
	CountryCode string                     `json:"countryCode"`
	Email       nullable.Nullable[string] `json:"email"`
	Phone       nullable.Nullable[string] `json:"phone"`
}

type sfCartCost struct {
	SubtotalAmount  pricing.Money                    `json:"subtotalAmount"`
	TotalAmount     pricing.Money                    `json:"totalAmount"`
	TotalTaxAmount  nullable.Nullable[pricing.Money] `json:"totalTaxAmount"`
	TotalDutyAmount nullable.Nullable[pricing.Money] `json:"totalDutyAmount"`
}

type sfDiscountAllocation struct {
	DiscountedAmount pricing.Money `json:"discountedAmount"`
}

type sfLines struct {
	Edges []sfLineEdge `json:"edges"`
}

type sfLineEdge struct {
	Node sfLine `json:"node"`
}

type sfLine struct {
	ID                    string                 `json:"id"`
	Quantity              int                    `json:"quantity"`
	Cost                  sfLineCost             `json:"cost"`
	DiscountAllocations   []sfDiscountAllocation `json:"discountAllocations"`
	Merchandise           sfMerchandise          `json:"merchandise"`
	SellingPlanAllocation *struct{}              `json:"sellingPlanAllocation"`
}

type sfLineCost struct {
	AmountPerQuantity          pricing.Money                    `json:"amountPerQuantity"`
	CompareAtAmountPerQuantity nullable.Nullable[pricing.Money] `json:"compareAtAmountPerQuantity"`
	SubtotalAmount             pricing.Money                    `json:"subtotalAmount"`
	TotalAmount                pricing.Money                    `json:"totalAmount"`
}

type sfMerchandise struct {
	ID               string                           `json:"id"`
	Title            string                           `json:"title"`
	Price            pricing.Money                    `json:"price"`
	CompareAtPrice   nullable.Nullable[pricing.Money] `json:"compareAtPrice"`
	Image            sfImage                          `json:"image"`
	Product          sfProduct                        `json:"product"`
	SKU              string                           `json:"sku"`
	RequiresShipping bool                             `json:"requiresShipping"`
	SelectedOptions  []sfSelectedOption               `json:"selectedOptions"`
}

type sfImage struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type sfProduct struct {
	ID            string  `json:"id"`
	Title         string  `json:"title"`
	FeaturedImage sfImage `json:"featuredImage"`
	Description   string  `json:"description"`
	Handle        string  `json:"handle"`
}

type sfSelectedOption struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type sfOptions struct {
	Currency       string
	CheckoutURL    string
	DefaultCountry string
	Now            time.Time
}

// toSFCart maps an enriched session cart to the storefront cart shape.
// Lines keep session order. It performs no I/O; the only input that varies
// between calls for the same cart is opts.Now.
func toSFCart(cart domain.EnrichedCart, opts sfOptions) sfCartEnvelope {
	currency := opts.Currency
	edges := make([]sfLineEdge, 0, len(cart.Session.Cart))
	for _, line := range cart.Session.Cart {
		product, _ := cart.Product(line.ProductID)
		edges = append(edges, sfLineEdge{Node: toSFLine(cart, line, product, currency)})
	}

	coupons := cart.Session.AppliedCoupons
	if coupons == nil {
		coupons = []string{}
	}

	country := cart.Session.Customer.Country
	if country == "" {
		country = opts.DefaultCountry
	}

	cost := pricing.CartCost(cart.Session.Totals)
	now := opts.Now.UTC()

	return sfCartEnvelope{Cart: sfCart{
		ID:            gidCart + cart.CartID,
		DiscountCodes: coupons,
		Attributes:    []sfAttribute{},
		BuyerIdentity: sfBuyerIdentity{
			CountryCode: country,
			Email:       nullableString(cart.Session.Customer.Email),
			Phone:       nullableString(cart.Session.Customer.Phone),
		},
		CheckoutURL:         opts.CheckoutURL,
		CreatedAt:           now.Add(-createdAtOffset).Format(sfTimeLayout),
		UpdatedAt:           now.Format(sfTimeLayout),
		DiscountAllocations: []sfDiscountAllocation{},
		Cost: sfCartCost{
			SubtotalAmount:  pricing.NewMoney(cost.Subtotal, currency),
			TotalAmount:     pricing.NewMoney(cost.Total, currency),
			TotalTaxAmount:  nullable.NewNullNullable[pricing.Money](),
			TotalDutyAmount: nullable.NewNullNullable[pricing.Money](),
		},
		Note:  "",
		Lines: sfLines{Edges: edges},
	}}
}

func toSFLine(cart domain.EnrichedCart, line domain.CartLine, product domain.Product, currency string) sfLine {
	p := pricing.PriceLine(line, product)
	unit := pricing.NewMoney(p.UnitPrice, currency)
	compareAt := nullable.NewNullNullable[pricing.Money]()
	if p.CompareAtPrice != nil {
		compareAt = nullable.NewNullableWithValue(pricing.NewMoney(*p.CompareAtPrice, currency))
	}

	allocations := []sfDiscountAllocation{}
	if p.HasDiscount() {
		allocations = append(allocations, sfDiscountAllocation{DiscountedAmount: pricing.NewMoney(p.Discount, currency)})
	}

	thumb := phpser.ToString(product.Meta[domain.MetaThumbnailID])
	image := sfImage{ID: gidProductImage + thumb}
	if id, err := strconv.ParseInt(thumb, 10, 64); err == nil {
		image.URL = cart.Images[id]
	}

	productID := strconv.FormatInt(line.ProductID, 10)
	return sfLine{
		ID:       gidCartLine + line.Key + "?cart=" + cart.CartID,
		Quantity: line.Quantity,
		Cost: sfLineCost{
			AmountPerQuantity:          unit,
			CompareAtAmountPerQuantity: compareAt,
			SubtotalAmount:             pricing.NewMoney(p.Subtotal, currency),
			TotalAmount:                pricing.NewMoney(p.Total, currency),
		},
		DiscountAllocations: allocations,
		Merchandise: sfMerchandise{
			ID:             gidProductVariant + productID,
			Title:          product.Title,
			Price:          unit,
			CompareAtPrice: compareAt,
			Image:          image,
			Product: sfProduct{
				ID:            gidProduct + productID,
				Title:         product.Title,
				FeaturedImage: image,
				Description:   stripAllTags(product.Description),
				Handle:        sanitizeTitle(product.Title),
			},
			SKU:              phpser.ToString(product.Meta[domain.MetaSKU]),
			RequiresShipping: true,
			SelectedOptions:  selectedOptions(line.Variation),
		},
	}
}

// selectedOptions turns variation attributes such as attribute_pa_color
// into name/value pairs sorted by name.
func selectedOptions(variation map[string]string) []sfSelectedOption {
	out := make([]sfSelectedOption, 0, len(variation))
	for k, v := range variation {
		name := strings.TrimPrefix(k, "attribute_")
		name = strings.TrimPrefix(name, "pa_")
		out = append(out, sfSelectedOption{Name: name, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func nullableString(s string) nullable.Nullable[string] {
	if s == "" {
		return nullable.NewNullNullable[string]()
	}
	return nullable.NewNullableWithValue(s)
}
