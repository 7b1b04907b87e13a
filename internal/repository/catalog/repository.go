package catalog

import (
	"context"

	"woocart-bridge/internal/domain"
)

// Attachment is the stored location of a media library item.
type Attachment struct {
	ID   int64
	File string
	GUID string
}

// ProductInput is what the importer and seed write for a product.
type ProductInput struct {
	Slug        string
	Title       string
	Description string
	Meta        map[string]string
}

type Repository interface {
	// ListProducts returns published-or-not product posts for ids, without meta.
	ListProducts(ctx context.Context, ids []int64) ([]domain.Product, error)
	// ListMeta returns the raw (still serialized) meta values of one post.
	ListMeta(ctx context.Context, postID int64) (map[string]string, error)
	ListAttachments(ctx context.Context, ids []int64) ([]Attachment, error)
	FindCouponID(ctx context.Context, code string) (int64, error)
	UpsertProduct(ctx context.Context, in ProductInput) (int64, error)
}
