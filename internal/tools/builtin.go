package tools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mateury/next-gen-consultant/internal/adapter/backend"
	"github.com/mateury/next-gen-consultant/internal/domain"
)

// Gateway is the subset of the backend client the built-in commands need.
type Gateway interface {
	GetCustomer(ctx context.Context, pesel string) (*backend.Customer, error)
	GetCatalog(ctx context.Context, productType string) ([]backend.CatalogItem, error)
	CreateOrder(ctx context.Context, customerID int64, catalogIDs []int64) (*backend.Order, error)
	GetInvoices(ctx context.Context, customerID int64) ([]backend.Invoice, error)
}

var _ Gateway = (*backend.Client)(nil)

// RegisterBuiltins registers the sales commands backed by gw.
func RegisterBuiltins(r *Registry, gw Gateway) error {
	specs := []Spec{
		{
			Name:        domain.CommandCheckCustomer,
			MinArgs:     1,
			MaxArgs:     1,
			Usage:       "[CHECK_CUSTOMER: pesel]",
			Description: "customer profile and active services by PESEL",
			Handler: func(ctx context.Context, args []string) (string, error) {
				pesel := args[0]
				if pesel == "" {
					return "", &ArgumentError{Command: domain.CommandCheckCustomer, Reason: "pesel must not be empty"}
				}
				customer, err := gw.GetCustomer(ctx, pesel)
				if err != nil {
					return "", about("customer with PESEL "+pesel, err)
				}
				return formatCustomer(customer), nil
			},
		},
		{
			Name:        domain.CommandGetCatalog,
			MinArgs:     0,
			MaxArgs:     1,
			Usage:       "[GET_CATALOG] or [GET_CATALOG: type]",
			Description: "product catalog, optionally filtered by product type",
			Handler: func(ctx context.Context, args []string) (string, error) {
				var productType string
				if len(args) == 1 {
					productType = strings.ToUpper(args[0])
				}
				items, err := gw.GetCatalog(ctx, productType)
				if err != nil {
					return "", about("product catalog", err)
				}
				return formatCatalog(items, productType), nil
			},
		},
		{
			Name:        domain.CommandCreateOrder,
			MinArgs:     2,
			MaxArgs:     Unbounded,
			Usage:       "[CREATE_ORDER: customer_id, product_id, ...]",
			Description: "create an order for a customer from catalog items",
			Handler: func(ctx context.Context, args []string) (string, error) {
				customerID, err := parseID(domain.CommandCreateOrder, "customer_id", args[0])
				if err != nil {
					return "", err
				}
				productIDs := make([]int64, 0, len(args)-1)
				for _, a := range args[1:] {
					id, err := parseID(domain.CommandCreateOrder, "product_id", a)
					if err != nil {
						return "", err
					}
					productIDs = append(productIDs, id)
				}
				order, err := gw.CreateOrder(ctx, customerID, productIDs)
				if err != nil {
					return "", about(fmt.Sprintf("order for customer %d", customerID), err)
				}
				return formatOrder(order, customerID), nil
			},
		},
		{
			Name:        domain.CommandCheckInvoices,
			MinArgs:     1,
			MaxArgs:     1,
			Usage:       "[CHECK_INVOICES: customer_id]",
			Description: "invoices and payment status of a customer",
			Handler: func(ctx context.Context, args []string) (string, error) {
				customerID, err := parseID(domain.CommandCheckInvoices, "customer_id", args[0])
				if err != nil {
					return "", err
				}
				invoices, err := gw.GetInvoices(ctx, customerID)
				if err != nil {
					return "", about(fmt.Sprintf("invoices of customer %d", customerID), err)
				}
				return formatInvoices(invoices, customerID), nil
			},
		},
		{
			Name:        domain.CommandCheckInvoicesByPESEL,
			MinArgs:     1,
			MaxArgs:     1,
			Usage:       "[CHECK_INVOICES_BY_PESEL: pesel]",
			Description: "resolve a customer by PESEL and list their invoices",
			Handler: func(ctx context.Context, args []string) (string, error) {
				pesel := args[0]
				if pesel == "" {
					return "", &ArgumentError{Command: domain.CommandCheckInvoicesByPESEL, Reason: "pesel must not be empty"}
				}
				customer, err := gw.GetCustomer(ctx, pesel)
				if err != nil {
					return "", about("customer with PESEL "+pesel, err)
				}
				invoices, err := gw.GetInvoices(ctx, customer.ID)
				if err != nil {
					return "", about(fmt.Sprintf("invoices of customer %d", customer.ID), err)
				}
				header := fmt.Sprintf("Customer: %s (ID %d, PESEL %s)",
					orDefault(strings.TrimSpace(customer.FirstName+" "+customer.LastName), "unknown"), customer.ID, pesel)
				return header + "\n" + formatInvoices(invoices, customer.ID), nil
			},
		},
	}

	for _, spec := range specs {
		if err := r.Register(spec); err != nil {
			return err
		}
	}
	return nil
}

func parseID(cmd domain.CommandName, field, raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &ArgumentError{Command: cmd, Reason: fmt.Sprintf("%s must be an integer, got %q", field, raw)}
	}
	return id, nil
}
