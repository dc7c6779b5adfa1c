package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCustomer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/customer", r.URL.Path)
		assert.Equal(t, "85010112345", r.URL.Query().Get("pesel"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":7,"firstName":"Jan","lastName":"Kowalski","pesel":"85010112345","status":"ACTIVE",
			"services":[{"serviceName":"Mobile","sim":true,"simNumber":"123","components":[{"name":"Data","parameterValue":"10","parameterName":"GB"}]}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", time.Second)
	customer, err := client.GetCustomer(context.Background(), "85010112345")
	require.NoError(t, err)
	assert.Equal(t, int64(7), customer.ID)
	assert.Equal(t, "Jan", customer.FirstName)
	require.Len(t, customer.Services, 1)
	assert.True(t, customer.Services[0].SIM)
	assert.Equal(t, "GB", customer.Services[0].Components[0].ParameterName)
}

func TestGetCatalogFilter(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`[{"id":5,"type":"INTERNET","priceMin":"10.00","priceMax":20,"status":"ACTIVE"}]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)

	items, err := client.GetCatalog(context.Background(), "INTERNET")
	require.NoError(t, err)
	assert.Equal(t, "type=INTERNET", gotQuery)
	require.Len(t, items, 1)
	assert.Equal(t, "10.00", items[0].PriceMin.String())
	assert.Equal(t, "20", items[0].PriceMax.String())

	_, err = client.GetCatalog(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "", gotQuery)
}

func TestCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/order", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req OrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, int64(123), req.CustomerID)
		assert.Equal(t, []int64{5, 12}, req.ComponentCatalogIDs)

		w.Write([]byte(`{"id":991,"status":"NEW","items":[{"id":1,"componentCatalogId":5},{"id":2,"componentCatalogId":12}]}`))
	}))
	defer srv.Close()

	order, err := NewClient(srv.URL, time.Second).CreateOrder(context.Background(), 123, []int64{5, 12})
	require.NoError(t, err)
	assert.Equal(t, int64(991), order.ID)
	assert.Len(t, order.Items, 2)
}

func TestGetInvoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "42", r.URL.Query().Get("customerId"))
		w.Write([]byte(`[{"id":1,"status":"PAID","grossPrice":49.99,"billingPeriod":"2024-01","createDate":"2024-02-01"}]`))
	}))
	defer srv.Close()

	invoices, err := NewClient(srv.URL, time.Second).GetInvoices(context.Background(), 42)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Equal(t, "49.99", invoices[0].GrossPrice.String())
}

func TestErrorClassification(t *testing.T) {
	t.Run("404 is not found", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, time.Second).GetCustomer(context.Background(), "1")
		require.Error(t, err)
		assert.True(t, IsNotFound(err))
		assert.Equal(t, KindNotFound, KindOf(err))
	})

	t.Run("500 is a status error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, time.Second).GetCustomer(context.Background(), "1")
		require.Error(t, err)
		assert.False(t, IsNotFound(err))

		var be *Error
		require.ErrorAs(t, err, &be)
		assert.Equal(t, KindStatus, be.Kind)
		assert.Equal(t, http.StatusInternalServerError, be.StatusCode)
		assert.Equal(t, "boom", be.Message)
	})

	t.Run("slow backend times out", func(t *testing.T) {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer srv.Close()
		defer close(release)

		_, err := NewClient(srv.URL, 50*time.Millisecond).GetCatalog(context.Background(), "")
		require.Error(t, err)
		assert.Equal(t, KindTimeout, KindOf(err))
	})

	t.Run("connection refused is unavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		addr := srv.URL
		srv.Close()

		_, err := NewClient(addr, time.Second).GetInvoices(context.Background(), 1)
		require.Error(t, err)
		assert.Equal(t, KindUnavailable, KindOf(err))
	})

	t.Run("malformed payload is a decode error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{not json`))
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL, time.Second).GetCustomer(context.Background(), "1")
		require.Error(t, err)
		assert.Equal(t, KindDecode, KindOf(err))
	})
}
