package api

import (
	"encoding/json" // Upstream response decoding
	"net/http"      // HTTP client and status codes
	"strings"       // Currency code casing
	"time"          // Upstream timeout

	"fintrack/internal/domain" // Domain error kinds

	"github.com/gin-gonic/gin" // Gin web framework
)

// DefaultExchangeBaseURL is the exchange-rate upstream
const DefaultExchangeBaseURL = "https://v6.exchangerate-api.com/v6"

// ExchangeRateHandler is a pass-through to the currency exchange upstream.
// Upstream failure is UpstreamUnavailable, never a validation error.
func ExchangeRateHandler(apiKey, baseURL string) gin.HandlerFunc {
	if baseURL == "" {
		baseURL = DefaultExchangeBaseURL
	}
	client := &http.Client{Timeout: 10 * time.Second}
	return func(c *gin.Context) {
		from := strings.ToUpper(c.Param("from"))
		to := strings.ToUpper(c.Param("to"))
		resp, err := client.Get(baseURL + "/" + apiKey + "/latest/" + from)
		if err != nil {
			respondError(c, domain.NewError(domain.ErrUpstreamUnavailable, "Exchange rate service unreachable"))
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			respondError(c, domain.NewError(domain.ErrUpstreamUnavailable, "Exchange rate service error"))
			return
		}
		var payload struct {
			ConversionRates map[string]float64 `json:"conversion_rates"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			respondError(c, domain.NewError(domain.ErrUpstreamUnavailable, "Exchange rate service error"))
			return
		}
		rate, ok := payload.ConversionRates[to]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Currency not found", "kind": domain.ErrValidationFailed})
			return
		}
		c.JSON(http.StatusOK, gin.H{"rate": rate})
	}
}
