package pricing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePage(t *testing.T, w http.ResponseWriter, items []Meter, next string) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	err := json.NewEncoder(w).Encode(retailPage{Items: items, NextPageLink: next})
	require.NoError(t, err)
}

func TestRetailClientFetch(t *testing.T) {
	t.Run("single page", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, retailAPIVersion, r.URL.Query().Get("api-version"))
			assert.Contains(t, r.URL.Query().Get("$filter"), "serviceName eq 'Virtual Machines'")
			writePage(t, w, []Meter{
				{RetailPrice: 0.0416, UnitOfMeasure: "1 Hour", MeterName: "B2s", SKUName: "Standard_B2s",
					ServiceName: "Virtual Machines", ARMRegionName: "eastus", ProductName: "Virtual Machines BS Series"},
			}, "")
		}))
		defer server.Close()

		client := NewRetailClient()
		client.SetBaseURL(server.URL)

		meters, err := client.Fetch(context.Background(),
			"serviceName eq 'Virtual Machines' and armRegionName eq 'eastus'", 10)
		require.NoError(t, err)
		require.Len(t, meters, 1)
		assert.Equal(t, 0.0416, meters[0].RetailPrice)
		assert.Equal(t, "Standard_B2s", meters[0].SKUName)
	})

	t.Run("pagination follows next page link", func(t *testing.T) {
		var server *httptest.Server
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("page") == "2" {
				writePage(t, w, []Meter{{RetailPrice: 2, MeterName: "second"}}, "")
				return
			}
			writePage(t, w, []Meter{{RetailPrice: 1, MeterName: "first"}}, server.URL+"?page=2")
		}))
		defer server.Close()

		client := NewRetailClient()
		client.SetBaseURL(server.URL)

		meters, err := client.Fetch(context.Background(), "retailPrice ne 0", 10)
		require.NoError(t, err)
		require.Len(t, meters, 2)
		assert.Equal(t, "first", meters[0].MeterName)
		assert.Equal(t, "second", meters[1].MeterName)
	})

	t.Run("limit truncates results", func(t *testing.T) {
		var requests int32
		var server *httptest.Server
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&requests, 1)
			writePage(t, w, []Meter{{RetailPrice: 1}, {RetailPrice: 2}, {RetailPrice: 3}}, server.URL+"?page=next")
		}))
		defer server.Close()

		client := NewRetailClient()
		client.SetBaseURL(server.URL)

		meters, err := client.Fetch(context.Background(), "retailPrice ne 0", 2)
		require.NoError(t, err)
		assert.Len(t, meters, 2)
		assert.Equal(t, int32(1), atomic.LoadInt32(&requests), "limit reached on the first page")
	})

	t.Run("error status fails the fetch", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := NewRetailClient()
		client.SetBaseURL(server.URL)

		_, err := client.Fetch(context.Background(), "retailPrice ne 0", 10)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "status 404")
	})

	t.Run("malformed body fails the fetch", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}))
		defer server.Close()

		client := NewRetailClient()
		client.SetBaseURL(server.URL)

		_, err := client.Fetch(context.Background(), "retailPrice ne 0", 10)
		assert.Error(t, err)
	})
}
