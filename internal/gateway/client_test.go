package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/snap/v1/transactions", r.URL.Path)

		wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("sk-test:"))
		assert.Equal(t, wantAuth, r.Header.Get("Authorization"))

		var body struct {
			TransactionDetails struct {
				OrderID     string `json:"order_id"`
				GrossAmount int64  `json:"gross_amount"`
			} `json:"transaction_details"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ORD-101", body.TransactionDetails.OrderID)
		assert.Equal(t, int64(450000), body.TransactionDetails.GrossAmount)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Transaction{
			Token:       "tok-123",
			RedirectURL: "https://pay.example/tok-123",
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "sk-test")
	tr, err := c.CreateTransaction(context.Background(), "ORD-101", 450000)
	require.NoError(t, err)
	assert.Equal(t, "tok-123", tr.Token)
	assert.Equal(t, "https://pay.example/tok-123", tr.RedirectURL)
}

func TestCreateTransactionNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, "bad-key")
	_, err := c.CreateTransaction(context.Background(), "ORD-101", 450000)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestQueryStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v2/ORD-101/status", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"transaction_status": "settlement",
			"order_id":           "ORD-101",
		})
	}))
	defer srv.Close()

	c := New(srv.URL, "sk-test")
	status, err := c.QueryStatus(context.Background(), "ORD-101")
	require.NoError(t, err)
	assert.Equal(t, "settlement", status)
}

func TestQueryStatusNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, "sk-test")
	_, err := c.QueryStatus(context.Background(), "ORD-404")
	require.Error(t, err)
}
