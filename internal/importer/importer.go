package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	catalogrepo "woocart-bridge/internal/repository/catalog"
)

type ProductWriter interface {
	UpsertProduct(ctx context.Context, in catalogrepo.ProductInput) (int64, error)
}

// CSVImporter reads WooCommerce product CSV exports and inserts/updates
// product posts with their price and stock meta.
type CSVImporter struct {
	reader      *csv.Reader
	productRepo ProductWriter
}

func NewCSVImporter(r io.Reader, repo ProductWriter) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	return &CSVImporter{
		reader:      csvr,
		productRepo: repo,
	}
}

type csvRow struct {
	Type         string
	SKU          string
	Name         string
	Slug         string
	Desc         string
	InStock      string
	Stock        string
	RegularPrice string
	SalePrice    string
}

// Run parses CSV rows and upserts one product per simple product row.
// Variation rows are skipped; they belong to variable products the
// importer does not create.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)

	var imported int
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}

		row := parseRow(record, index)
		if row == nil || row.Type == "variation" {
			continue
		}
		if err := i.save(ctx, row); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}

func (i *CSVImporter) save(ctx context.Context, row *csvRow) error {
	if row.Name == "" || row.RegularPrice == "" {
		return fmt.Errorf("invalid product row (missing required fields) for %q", row.Name)
	}
	regular, err := parsePrice(row.RegularPrice)
	if err != nil {
		return fmt.Errorf("invalid regular price for %q: %s", row.Name, row.RegularPrice)
	}

	meta := map[string]string{
		"_regular_price": regular,
		"_price":         regular,
		"_sale_price":    "",
		"_stock_status":  "instock",
		"_manage_stock":  "no",
	}
	if row.SKU != "" {
		meta["_sku"] = row.SKU
	}
	if row.SalePrice != "" {
		sale, err := parsePrice(row.SalePrice)
		if err != nil {
			return fmt.Errorf("invalid sale price for %q: %s", row.Name, row.SalePrice)
		}
		meta["_sale_price"] = sale
		meta["_price"] = sale
	}
	if row.InStock == "0" {
		meta["_stock_status"] = "outofstock"
	}
	if row.Stock != "" {
		n, err := strconv.Atoi(row.Stock)
		if err != nil {
			return fmt.Errorf("invalid stock for %q: %s", row.Name, row.Stock)
		}
		meta["_manage_stock"] = "yes"
		meta["_stock"] = strconv.Itoa(n)
		if n <= 0 {
			meta["_stock_status"] = "outofstock"
		}
	}

	slug := row.Slug
	if slug == "" {
		slug = slugify(row.Name)
	}
	_, err = i.productRepo.UpsertProduct(ctx, catalogrepo.ProductInput{
		Slug:        slug,
		Title:       row.Name,
		Description: row.Desc,
		Meta:        meta,
	})
	if err != nil {
		return fmt.Errorf("upsert product %q: %w", slug, err)
	}
	return nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")] = i
	}
	return idx
}

func parseRow(record []string, index map[string]int) *csvRow {
	row := &csvRow{
		Type:         strings.ToLower(pick(record, index, "Type")),
		SKU:          pick(record, index, "SKU"),
		Name:         pick(record, index, "Name"),
		Slug:         pick(record, index, "Slug"),
		Desc:         pick(record, index, "Description"),
		InStock:      pick(record, index, "In stock?"),
		Stock:        pick(record, index, "Stock"),
		RegularPrice: pick(record, index, "Regular price"),
		SalePrice:    pick(record, index, "Sale price"),
	}
	if row.Name == "" && row.SKU == "" {
		return nil
	}
	return row
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}

// parsePrice normalizes a decimal price to the two-decimal form WooCommerce
// stores.
func parsePrice(s string) (string, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return "", fmt.Errorf("bad price %q", s)
	}
	return strconv.FormatFloat(v, 'f', 2, 64), nil
}

func slugify(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
