package backend

import "encoding/json"

// Customer is a customer profile returned by GET /customer.
type Customer struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	PESEL     string    `json:"pesel"`
	Status    string    `json:"status"`
	Type      string    `json:"type"`
	Services  []Service `json:"services"`
}

// Service is an active service attached to a customer.
type Service struct {
	ID          int64       `json:"id"`
	ServiceName string      `json:"serviceName"`
	Type        string      `json:"type"`
	Status      string      `json:"status"`
	SIM         bool        `json:"sim"`
	SIMNumber   string      `json:"simNumber"`
	SIMType     string      `json:"simType"`
	Components  []Component `json:"components"`
}

// Component is a catalog component attached to a service.
type Component struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	ParameterName  string `json:"parameterName"`
	ParameterValue string `json:"parameterValue"`
}

// CatalogItem is an entry of GET /component-catalog.
type CatalogItem struct {
	ID             int64       `json:"id"`
	Type           string      `json:"type"`
	ParameterName  string      `json:"parameterName"`
	ParameterValue string      `json:"parameterValue"`
	PriceMin       json.Number `json:"priceMin"`
	PriceMax       json.Number `json:"priceMax"`
	Status         string      `json:"status"`
}

// OrderRequest is the body of POST /order.
type OrderRequest struct {
	CustomerID          int64   `json:"customerId"`
	ComponentCatalogIDs []int64 `json:"componentCatalogIds"`
}

// Order is the order created by POST /order.
type Order struct {
	ID         int64       `json:"id"`
	CustomerID int64       `json:"customerId"`
	Status     string      `json:"status"`
	Items      []OrderItem `json:"items"`
}

// OrderItem is a line item of an order.
type OrderItem struct {
	ID                 int64       `json:"id"`
	ComponentCatalogID int64       `json:"componentCatalogId"`
	Type               string      `json:"type"`
	ParameterName      string      `json:"parameterName"`
	ParameterValue     string      `json:"parameterValue"`
	Price              json.Number `json:"price"`
	Status             string      `json:"status"`
}

// Invoice is an entry of GET /invoices.
type Invoice struct {
	ID            int64       `json:"id"`
	Status        string      `json:"status"`
	GrossPrice    json.Number `json:"grossPrice"`
	BillingPeriod string      `json:"billingPeriod"`
	CreateDate    string      `json:"createDate"`
}
