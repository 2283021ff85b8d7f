// Package plaid is a thin client for the bank-aggregation upstream.
// The aggregator is an opaque collaborator: this package only speaks its
// JSON API and normalizes fetched records into ledger transactions.
package plaid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fintrack/internal/domain"

	"github.com/shopspring/decimal"
)

// DefaultBaseURL points at the aggregator sandbox environment
const DefaultBaseURL = "https://sandbox.plaid.com"

// Client calls the aggregator API with configured credentials
type Client struct {
	ClientID   string
	Secret     string
	BaseURL    string
	HTTPClient *http.Client
}

// New builds a client; an empty baseURL selects the sandbox
func New(clientID, secret, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		ClientID:   clientID,
		Secret:     secret,
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// BankTransaction is the aggregator's transaction shape, reduced to the
// fields the ledger cares about
type BankTransaction struct {
	ID              string          `json:"transaction_id"`
	Amount          decimal.Decimal `json:"amount"`
	Date            string          `json:"date"`
	Name            string          `json:"name"`
	MerchantName    string          `json:"merchant_name"`
	Category        []string        `json:"category"`
	PaymentChannel  string          `json:"payment_channel"`
	ISOCurrencyCode string          `json:"iso_currency_code"`
}

// Balance is one account's balance snapshot
type Balance struct {
	AccountID string `json:"account_id"`
	Name      string `json:"name"`
	Balances  struct {
		Available       *float64 `json:"available"`
		Current         *float64 `json:"current"`
		ISOCurrencyCode string   `json:"iso_currency_code"`
	} `json:"balances"`
}

// CreateLinkToken requests a link token for the client-side link flow
func (c *Client) CreateLinkToken(ctx context.Context, clientUserID string) (string, error) {
	payload := map[string]any{
		"client_id":     c.ClientID,
		"secret":        c.Secret,
		"client_name":   "fintrack",
		"user":          map[string]string{"client_user_id": clientUserID},
		"products":      []string{"auth", "transactions"},
		"country_codes": []string{"US"},
		"language":      "en",
	}
	var resp struct {
		LinkToken string `json:"link_token"`
	}
	if err := c.post(ctx, "/link/token/create", payload, &resp); err != nil {
		return "", err
	}
	return resp.LinkToken, nil
}

// ExchangePublicToken swaps a public token for a persistent access token
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (string, error) {
	payload := map[string]any{
		"client_id":    c.ClientID,
		"secret":       c.Secret,
		"public_token": publicToken,
	}
	var resp struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.post(ctx, "/item/public_token/exchange", payload, &resp); err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

// GetTransactions fetches up to count transactions in [start, end]
func (c *Client) GetTransactions(ctx context.Context, accessToken string, start, end domain.Date, count int) ([]BankTransaction, error) {
	payload := map[string]any{
		"client_id":    c.ClientID,
		"secret":       c.Secret,
		"access_token": accessToken,
		"start_date":   start.String(),
		"end_date":     end.String(),
		"options":      map[string]int{"count": count, "offset": 0},
	}
	var resp struct {
		Transactions []BankTransaction `json:"transactions"`
	}
	if err := c.post(ctx, "/transactions/get", payload, &resp); err != nil {
		return nil, err
	}
	return resp.Transactions, nil
}

// GetBalances fetches current balances for all linked accounts
func (c *Client) GetBalances(ctx context.Context, accessToken string) ([]Balance, error) {
	payload := map[string]any{
		"client_id":    c.ClientID,
		"secret":       c.Secret,
		"access_token": accessToken,
	}
	var resp struct {
		Accounts []Balance `json:"accounts"`
	}
	if err := c.post(ctx, "/accounts/balance/get", payload, &resp); err != nil {
		return nil, err
	}
	return resp.Accounts, nil
}

// post sends one JSON request and decodes the response body into dest
func (c *Client) post(ctx context.Context, path string, payload, dest any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return domain.NewError(domain.ErrUpstreamUnavailable, "Bank aggregator unreachable: "+err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return domain.NewError(domain.ErrUpstreamUnavailable,
			fmt.Sprintf("Bank aggregator returned status %d", resp.StatusCode))
	}
	return json.NewDecoder(resp.Body).Decode(dest)
}

// Normalize maps an aggregator record into a ledger transaction for userID.
// Aggregator-positive amounts are money leaving the account (expense),
// negative amounts are money coming in (income); the ledger stores the
// magnitude and lets the kind carry the sign.
func Normalize(t BankTransaction, userID uint) (domain.Transaction, error) {
	date, err := domain.ParseDate(t.Date)
	if err != nil {
		return domain.Transaction{}, domain.NewError(domain.ErrValidationFailed,
			"Unparseable date on imported transaction "+t.ID)
	}
	kind := domain.TransactionExpense
	amount := t.Amount
	if amount.IsNegative() {
		kind = domain.TransactionIncome
		amount = amount.Neg()
	}
	name := t.Name
	if t.MerchantName != "" {
		name = t.MerchantName
	}
	var category *string
	if len(t.Category) > 0 && t.Category[0] != "" {
		category = &t.Category[0]
	}
	currency := strings.ToLower(t.ISOCurrencyCode)
	if !domain.ValidCurrency(currency) {
		currency = "usd"
	}
	return domain.Transaction{
		UserID:   userID,
		Name:     name,
		Kind:     kind,
		Category: category,
		Amount:   amount.Round(2),
		Currency: currency,
		Date:     date,
	}, nil
}
