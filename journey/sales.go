package journey

import (
	"context"
	"fmt"

	"github.com/convocommerce/backend/catalog"
	"github.com/convocommerce/backend/conversation"
	"github.com/convocommerce/backend/tools"
)

// deepLinkThreshold is the total-estimate floor past which a vague query
// is redirected to the full catalog link instead of an inline shortlist
// (spec.md §4.5: "total_estimate >= 50 AND user remains vague").
const deepLinkThreshold = 50

// maxShortlistRejections is how many times a customer can reject the
// current shortlist before Sales gives up and returns the deep link.
const maxShortlistRejections = 2

// Sales implements the sales subflow: narrow via catalog_search, present
// up to six items, fall back to a catalog deep-link when the result set
// is too broad, and turn a selected item into a draft order.
func Sales(ctx context.Context, registry *tools.Registry, st *conversation.State) (Result, error) {
	query := st.Classifier.Intent
	if slot, ok := st.Catalog.LastFilters["query"]; ok && slot != "" {
		query = slot
	}

	selectedItemID := ""
	if len(st.Catalog.SelectedItemIDs) > 0 {
		selectedItemID = st.Catalog.SelectedItemIDs[len(st.Catalog.SelectedItemIDs)-1]
	}

	if selectedItemID != "" {
		return selectItem(ctx, registry, st, selectedItemID)
	}

	out, err := registry.Invoke(ctx, tools.CatalogSearch, toolContext(st), map[string]any{
		"query": query,
	})
	if err != nil {
		if tools.IsRetryable(err) {
			return Result{}, err
		}
		return Result{ResponseText: "Sorry, I couldn't search the catalog right now. Please try again shortly."}, nil
	}

	items := out["items"].([]catalog.Product)
	total, _ := out["total_estimate"].(int64)

	st.Catalog.LastQuery = query
	st.Catalog.EstimatedTotal = int(total)
	st.Catalog.LastResultIDs = productIDs(items)

	vague := query == ""
	tooBroad := total >= deepLinkThreshold && vague
	noClearTop3 := len(items) == 0
	repeatedRejections := st.Catalog.RejectionCount() >= maxShortlistRejections

	if tooBroad || noClearTop3 || repeatedRejections {
		link := fmt.Sprintf("%s?tenant=%s&q=%s", st.Persona.CatalogLinkBase, st.TenantID, query)
		return Result{ResponseText: fmt.Sprintf("There's a lot to show you here — browse the full catalog: %s", link)}, nil
	}

	return Result{ResponseText: formatShortlist(items)}, nil
}

func selectItem(ctx context.Context, registry *tools.Registry, st *conversation.State, itemID string) (Result, error) {
	itemOut, err := registry.Invoke(ctx, tools.CatalogGetItem, toolContext(st), map[string]any{"item_id": itemID})
	if err != nil {
		return Result{ResponseText: "That item is no longer available."}, nil
	}
	product := itemOut["item"].(catalog.Product)
	if len(product.Variants) == 0 {
		return Result{ResponseText: "That item has no purchasable options right now."}, nil
	}
	variant := product.Variants[0]

	orderOut, err := registry.Invoke(ctx, tools.OrderCreate, toolContext(st), map[string]any{
		"product_variant_id": variant.ID,
		"quantity":           1,
	})
	if err != nil {
		return Result{ResponseText: "I couldn't start your order — please try again."}, nil
	}

	orderID := asString(orderOut["order_id"])
	st.CurrentOrderID = orderID
	st.OrderTotal = variant.PriceCents

	return Result{ResponseText: fmt.Sprintf("Added %s to your order. Total so far: %s %.2f.", product.Name, variant.Currency, float64(variant.PriceCents)/100)}, nil
}

func formatShortlist(items []catalog.Product) string {
	if len(items) == 0 {
		return "I couldn't find anything matching that — try a different search?"
	}
	max := len(items)
	if max > catalog.MaxSearchResults {
		max = catalog.MaxSearchResults
	}
	text := "Here's what I found:\n"
	for i := 0; i < max; i++ {
		p := items[i]
		price := "n/a"
		if len(p.Variants) > 0 {
			price = fmt.Sprintf("%s %.2f", p.Variants[0].Currency, float64(p.Variants[0].PriceCents)/100)
		}
		text += fmt.Sprintf("%d. %s — %s\n", i+1, p.Name, price)
	}
	return text
}

func productIDs(items []catalog.Product) []string {
	ids := make([]string, len(items))
	for i, p := range items {
		ids[i] = p.ID
	}
	return ids
}
