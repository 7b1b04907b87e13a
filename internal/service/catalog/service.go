// Package catalog joins cart lines with product posts and their meta.
package catalog

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"woocart-bridge/internal/domain"
	"woocart-bridge/internal/phpser"
	catalogrepo "woocart-bridge/internal/repository/catalog"
)

type Enricher struct {
	repo        catalogrepo.Repository
	uploadsURL  string
	concurrency int
	logger      *log.Logger
}

func NewEnricher(repo catalogrepo.Repository, uploadsURL string, concurrency int, logger *log.Logger) *Enricher {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &Enricher{
		repo:        repo,
		uploadsURL:  strings.TrimSuffix(uploadsURL, "/"),
		concurrency: concurrency,
		logger:      logger,
	}
}

// Fetch returns the products for ids in first-seen order. Unknown ids are
// omitted, as is a product whose meta could not be read.
func (e *Enricher) Fetch(ctx context.Context, ids []int64) ([]domain.Product, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := e.repo.ListProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]domain.Product, len(rows))
	for _, p := range rows {
		byID[p.ID] = p
	}

	ordered := make([]domain.Product, 0, len(rows))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}

	metas := make([]map[string]any, len(ordered))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i := range ordered {
		i := i
		g.Go(func() error {
			raw, err := e.repo.ListMeta(gctx, ordered[i].ID)
			if err != nil {
				e.logger.Printf("catalog: meta product_id=%d error=%v", ordered[i].ID, err)
				return nil
			}
			meta := make(map[string]any, len(raw))
			for k, v := range raw {
				meta[k] = phpser.MaybeUnserialize(v)
			}
			metas[i] = meta
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]domain.Product, 0, len(ordered))
	for i, p := range ordered {
		if metas[i] == nil {
			continue
		}
		p.Meta = metas[i]
		out = append(out, p)
	}
	return out, nil
}

// Product returns a single enriched product or domain.ErrNotFound.
func (e *Enricher) Product(ctx context.Context, id int64) (domain.Product, error) {
	products, err := e.Fetch(ctx, []int64{id})
	if err != nil {
		return domain.Product{}, err
	}
	if len(products) == 0 {
		return domain.Product{}, domain.ErrNotFound
	}
	return products[0], nil
}

// CouponExists reports whether a published coupon with code exists.
func (e *Enricher) CouponExists(ctx context.Context, code string) (bool, error) {
	_, err := e.repo.FindCouponID(ctx, code)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ImageURLs resolves the _thumbnail_id of each product to a public URL.
// Attachments are addressed by their uploads path, falling back to the
// attachment guid. Lookup failures leave the map empty.
func (e *Enricher) ImageURLs(ctx context.Context, products []domain.Product) map[int64]string {
	var ids []int64
	for _, p := range products {
		if id := ThumbnailID(p); id > 0 {
			ids = append(ids, id)
		}
	}
	ids = dedupe(ids)
	out := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return out
	}
	atts, err := e.repo.ListAttachments(ctx, ids)
	if err != nil {
		e.logger.Printf("catalog: attachments ids=%v error=%v", ids, err)
		return out
	}
	for _, a := range atts {
		switch {
		case a.File != "" && strings.Contains(a.File, "://"):
			out[a.ID] = a.File
		case a.File != "":
			out[a.ID] = e.uploadsURL + "/" + strings.TrimPrefix(a.File, "/")
		default:
			out[a.ID] = a.GUID
		}
	}
	return out
}

// ThumbnailID returns the product's _thumbnail_id, or 0.
func ThumbnailID(p domain.Product) int64 {
	return phpser.ToInt(p.Meta[domain.MetaThumbnailID])
}

func dedupe(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
