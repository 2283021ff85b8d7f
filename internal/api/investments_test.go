package api

import (
	"net/http"
	"testing"

	"fintrack/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndListInvestments(t *testing.T) {
	db := newTestDB(t)
	r := newLedgerRouter(db)
	alice := createTestUser(t, db, "alice", "password123")
	token := accessTokenFor(t, alice.ID)

	w := doJSON(t, r, http.MethodPost, "/investments", token, map[string]any{
		"asset_type":     "Stock",
		"symbol":         "VTI",
		"quantity":       10.5,
		"purchase_price": 220.1234,
		"purchase_date":  "2024-01-15",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/investments", token, map[string]any{
		"asset_type":     "Crypto",
		"symbol":         "BTC",
		"quantity":       0.12345,
		"purchase_price": 42000,
		"current_price":  61000.505,
		"purchase_date":  "2024-02-01",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/investments", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Investments []domain.Investment `json:"investments"`
	}
	decodeBody(t, w, &resp)
	require.Len(t, resp.Investments, 2)

	// Insertion order, prices rounded to 2 places and quantity to 4
	first, second := resp.Investments[0], resp.Investments[1]
	assert.Equal(t, "VTI", first.Symbol)
	assert.Equal(t, "220.12", first.PurchasePrice.String())
	assert.Nil(t, first.CurrentPrice)
	assert.Equal(t, "BTC", second.Symbol)
	assert.Equal(t, "0.1235", second.Quantity.String())
	require.NotNil(t, second.CurrentPrice)
	assert.Equal(t, "61000.51", second.CurrentPrice.String())
	assert.Equal(t, "2024-02-01", second.PurchaseDate.String())
}

func TestInvestmentsAreOwnerScoped(t *testing.T) {
	db := newTestDB(t)
	r := newLedgerRouter(db)
	alice := createTestUser(t, db, "alice", "password123")
	bob := createTestUser(t, db, "bob", "password123")

	w := doJSON(t, r, http.MethodPost, "/investments", accessTokenFor(t, alice.ID), map[string]any{
		"asset_type":     "Stock",
		"symbol":         "VTI",
		"quantity":       1,
		"purchase_price": 200,
		"purchase_date":  "2024-01-15",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodGet, "/investments", accessTokenFor(t, bob.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Investments []domain.Investment `json:"investments"`
	}
	decodeBody(t, w, &resp)
	assert.Empty(t, resp.Investments)
}

func TestCreateInvestmentValidation(t *testing.T) {
	db := newTestDB(t)
	r := newLedgerRouter(db)
	alice := createTestUser(t, db, "alice", "password123")
	token := accessTokenFor(t, alice.ID)

	base := func() map[string]any {
		return map[string]any{
			"asset_type":     "Stock",
			"symbol":         "VTI",
			"quantity":       1,
			"purchase_price": 200,
			"purchase_date":  "2024-01-15",
		}
	}
	tests := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"unknown asset type", func(b map[string]any) { b["asset_type"] = "Bond" }},
		{"missing symbol", func(b map[string]any) { b["symbol"] = "" }},
		{"negative quantity", func(b map[string]any) { b["quantity"] = -1 }},
		{"negative price", func(b map[string]any) { b["purchase_price"] = -5 }},
		{"negative current price", func(b map[string]any) { b["current_price"] = -5 }},
		{"bad date", func(b map[string]any) { b["purchase_date"] = "15/01/2024" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := base()
			tt.mutate(body)
			w := doJSON(t, r, http.MethodPost, "/investments", token, body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			var resp struct {
				Kind string `json:"kind"`
			}
			decodeBody(t, w, &resp)
			assert.Equal(t, string(domain.ErrValidationFailed), resp.Kind)
		})
	}
}
