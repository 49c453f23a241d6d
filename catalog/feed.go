package catalog

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FeedItem is one row scraped out of a tenant-supplied HTML product feed —
// the fallback ingestion path for tenants without a structured feed
// export. Grounded on the teacher's go.mod PuerkitoBio/goquery pull
// (otherwise unused in the pack), the natural HTML-table-to-struct idiom.
type FeedItem struct {
	SKU         string
	Name        string
	Description string
	PriceCents  int64
	Currency    string
	ImageURL    string
}

// ParseHTMLFeed scans an HTML document for `.catalog-item` blocks (one per
// product) and extracts the fields tenants commonly export from a
// storefront template: `.sku`, `.name`, `.description`, `.price`, `img[src]`.
// Rows missing a SKU or name are skipped rather than failing the whole feed.
func ParseHTMLFeed(r io.Reader, defaultCurrency string) ([]FeedItem, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("catalog: parse feed: %w", err)
	}

	var items []FeedItem
	doc.Find(".catalog-item").Each(func(_ int, sel *goquery.Selection) {
		sku := strings.TrimSpace(sel.Find(".sku").First().Text())
		name := strings.TrimSpace(sel.Find(".name").First().Text())
		if sku == "" || name == "" {
			return
		}

		item := FeedItem{
			SKU:         sku,
			Name:        name,
			Description: strings.TrimSpace(sel.Find(".description").First().Text()),
			Currency:    defaultCurrency,
		}

		if priceText := strings.TrimSpace(sel.Find(".price").First().Text()); priceText != "" {
			item.PriceCents = parsePriceCents(priceText)
		}
		if src, ok := sel.Find("img").First().Attr("src"); ok {
			item.ImageURL = src
		}

		items = append(items, item)
	})

	return items, nil
}

// parsePriceCents turns a human price string ("KES 1,250.00", "$12.50")
// into integer cents, defaulting to 0 on anything unparsable rather than
// failing the whole row.
func parsePriceCents(raw string) int64 {
	var digits strings.Builder
	seenDot := false
	decimals := 0
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
			if seenDot {
				decimals++
			}
		case r == '.' && !seenDot:
			seenDot = true
		}
	}
	value, err := strconv.ParseInt(digits.String(), 10, 64)
	if err != nil {
		return 0
	}
	if !seenDot {
		return value * 100
	}
	for decimals < 2 {
		value *= 10
		decimals++
	}
	for decimals > 2 {
		value /= 10
		decimals--
	}
	return value
}

// ToProduct converts a scraped FeedItem into a Product+single default
// Variant ready for GormRepository.UpsertBySKU.
func (item FeedItem) ToProduct(tenantID string) (Product, ProductVariant) {
	p := Product{
		TenantID:    tenantID,
		SKU:         item.SKU,
		Name:        item.Name,
		Description: item.Description,
		ImageURL:    item.ImageURL,
		Active:      true,
	}
	v := ProductVariant{
		TenantID:   tenantID,
		Label:      "default",
		PriceCents: item.PriceCents,
		Currency:   item.Currency,
		Unlimited:  true,
	}
	return p, v
}
