package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mateury/next-gen-consultant/internal/adapter/backend"
	"github.com/mateury/next-gen-consultant/internal/domain"
)

// FormatResults joins tool results into the body of a tool-results message.
func FormatResults(results []domain.ToolResult) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = fmt.Sprintf("TOOL RESULT %s:\n%s", r.Command.Raw, r.Output)
	}
	return strings.Join(parts, "\n\n")
}

func formatCustomer(c *backend.Customer) string {
	var b strings.Builder
	b.WriteString("CUSTOMER PROFILE\n")
	fmt.Fprintf(&b, "Customer ID: %d\n", c.ID)
	fmt.Fprintf(&b, "Name: %s\n", strings.TrimSpace(c.FirstName+" "+c.LastName))
	fmt.Fprintf(&b, "Email: %s\n", orDefault(c.Email, "none"))
	fmt.Fprintf(&b, "PESEL: %s\n", orDefault(c.PESEL, "none"))
	fmt.Fprintf(&b, "Status: %s\n", orDefault(c.Status, "unknown"))
	fmt.Fprintf(&b, "Type: %s\n", orDefault(c.Type, "unknown"))

	if len(c.Services) == 0 {
		b.WriteString("\nActive services: none")
		return b.String()
	}

	fmt.Fprintf(&b, "\nActive services (%d):", len(c.Services))
	for i, s := range c.Services {
		fmt.Fprintf(&b, "\n%d. %s\n", i+1, orDefault(s.ServiceName, "Service"))
		fmt.Fprintf(&b, "   Type: %s\n", orDefault(s.Type, "none"))
		fmt.Fprintf(&b, "   Status: %s", orDefault(s.Status, "none"))
		if s.SIM {
			fmt.Fprintf(&b, "\n   SIM: %s (%s)", orDefault(s.SIMNumber, "none"), orDefault(s.SIMType, "none"))
		}
		if len(s.Components) > 0 {
			b.WriteString("\n   Components:")
			for _, comp := range s.Components {
				fmt.Fprintf(&b, "\n   - %s: %s", orDefault(comp.Name, "none"),
					strings.TrimSpace(comp.ParameterValue+" "+comp.ParameterName))
			}
		}
	}
	return b.String()
}

func formatCatalog(items []backend.CatalogItem, productType string) string {
	if len(items) == 0 {
		if productType != "" {
			return fmt.Sprintf("PRODUCT CATALOG: no items of type %s", productType)
		}
		return "PRODUCT CATALOG: no items"
	}

	// group by type, keeping the order in which types first appear
	var order []string
	groups := make(map[string][]backend.CatalogItem)
	for _, item := range items {
		t := orDefault(item.Type, "OTHER")
		if _, seen := groups[t]; !seen {
			order = append(order, t)
		}
		groups[t] = append(groups[t], item)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "PRODUCT CATALOG (%d items)", len(items))
	for _, t := range order {
		fmt.Fprintf(&b, "\n\n%s:", t)
		for _, item := range groups[t] {
			fmt.Fprintf(&b, "\n- %s: %s", orDefault(item.ParameterName, "parameter"), orDefault(item.ParameterValue, "n/a"))
			fmt.Fprintf(&b, "\n  Price: %s", formatPriceRange(item.PriceMin, item.PriceMax))
			fmt.Fprintf(&b, "\n  Status: %s", orDefault(item.Status, "unknown"))
			fmt.Fprintf(&b, "\n  ID: %d", item.ID)
		}
	}
	return b.String()
}

func formatPriceRange(lo, hi json.Number) string {
	from := orDefault(lo.String(), "0")
	to := orDefault(hi.String(), "0")
	if from == to {
		return from
	}
	return from + " - " + to
}

func formatOrder(o *backend.Order, customerID int64) string {
	if o.CustomerID != 0 {
		customerID = o.CustomerID
	}
	var b strings.Builder
	b.WriteString("ORDER CREATED\n")
	fmt.Fprintf(&b, "Order ID: %d\n", o.ID)
	fmt.Fprintf(&b, "Customer ID: %d\n", customerID)
	fmt.Fprintf(&b, "Status: %s", orDefault(o.Status, "unknown"))
	if len(o.Items) > 0 {
		fmt.Fprintf(&b, "\nItems (%d):", len(o.Items))
		for _, item := range o.Items {
			fmt.Fprintf(&b, "\n- Item %d: catalog ID %d", item.ID, item.ComponentCatalogID)
			if desc := strings.TrimSpace(item.Type + " " + item.ParameterName + " " + item.ParameterValue); desc != "" {
				fmt.Fprintf(&b, " (%s)", desc)
			}
			if p := item.Price.String(); p != "" {
				fmt.Fprintf(&b, ", price %s", p)
			}
		}
	}
	return b.String()
}

func formatInvoices(invoices []backend.Invoice, customerID int64) string {
	if len(invoices) == 0 {
		return fmt.Sprintf("INVOICES for customer %d: none", customerID)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "INVOICES for customer %d (%d):", customerID, len(invoices))
	for _, inv := range invoices {
		fmt.Fprintf(&b, "\n- Invoice %d: %s, gross %s, period %s, created %s",
			inv.ID,
			orDefault(inv.Status, "unknown"),
			orDefault(inv.GrossPrice.String(), "0"),
			orDefault(inv.BillingPeriod, "n/a"),
			orDefault(inv.CreateDate, "n/a"))
	}
	return b.String()
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
