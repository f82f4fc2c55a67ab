package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Money is the tagged-sum representation the canonical schema stores (§3:
// "a money value is {amount:number, currency:string} or null").
type Money struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Cents rounds Amount to integer cents (§4.C2 "amounts are stored in integer cents").
func (m Money) Cents() int64 {
	return int64(m.Amount*100 + sign(m.Amount)*0.5)
}

func sign(f float64) float64 {
	if f < 0 {
		return -1
	}
	return 1
}

var moneyStringRegex = regexp.MustCompile(`[-+]?[¥￥$€£]?\s*(\d[\d,]*(?:\.\d+)?)`)

// ParseMoney coerces heterogeneous money-shaped inputs ("$10.00", 10.5,
// {"value":10.5,"currency":"USD"}, {"amount":...}, {"price":...}) into a
// *Money, or nil if nothing money-shaped could be found. currencyFallback
// is used when the input carries no currency of its own (§9 design note:
// "a single parse_money(input, currency_fallback) -> Money | null operation").
func ParseMoney(input any, currencyFallback string) *Money {
	if currencyFallback == "" {
		currencyFallback = "USD"
	}
	switch v := input.(type) {
	case nil:
		return nil
	case Money:
		if v.Currency == "" {
			v.Currency = currencyFallback
		}
		return &v
	case *Money:
		if v == nil {
			return nil
		}
		if v.Currency == "" {
			v.Currency = currencyFallback
		}
		return v
	case float64:
		return &Money{Amount: v, Currency: currencyFallback}
	case float32:
		return &Money{Amount: float64(v), Currency: currencyFallback}
	case int:
		return &Money{Amount: float64(v), Currency: currencyFallback}
	case int64:
		return &Money{Amount: float64(v), Currency: currencyFallback}
	case string:
		return parseMoneyString(v, currencyFallback)
	case map[string]any:
		return parseMoneyMap(v, currencyFallback)
	default:
		return nil
	}
}

func parseMoneyMap(m map[string]any, currencyFallback string) *Money {
	var amountKey string
	for _, k := range []string{"amount", "value", "price", "total"} {
		if _, ok := m[k]; ok {
			amountKey = k
			break
		}
	}
	if amountKey == "" {
		return nil
	}

	currency := currencyFallback
	if c, ok := m["currency"].(string); ok && strings.TrimSpace(c) != "" {
		currency = strings.ToUpper(strings.TrimSpace(c))
	}

	parsed := ParseMoney(m[amountKey], currency)
	if parsed == nil {
		return nil
	}
	parsed.Currency = currency
	return parsed
}

func parseMoneyString(s string, currencyFallback string) *Money {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	negative := strings.Contains(s, "-") || strings.Contains(s, "−")

	m := moneyStringRegex.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	numStr := strings.ReplaceAll(m[1], ",", "")
	amount, err := strconv.ParseFloat(numStr, 64)
	if err != nil {
		return nil
	}
	if negative {
		amount = -amount
	}

	currency := detectCurrency(s, currencyFallback)
	return &Money{Amount: amount, Currency: currency}
}

func detectCurrency(s, fallback string) string {
	switch {
	case strings.ContainsAny(s, "¥￥"):
		return "CNY"
	case strings.Contains(s, "$"):
		if fallback == "" {
			return "USD"
		}
		return fallback
	case strings.Contains(s, "€"):
		return "EUR"
	case strings.Contains(s, "£"):
		return "GBP"
	default:
		if fallback == "" {
			return "USD"
		}
		return fallback
	}
}

// FormatCents renders integer cents as a decimal string, e.g. 174885 -> "1748.85".
func FormatCents(cents int64) string {
	neg := cents < 0
	if neg {
		cents = -cents
	}
	s := fmt.Sprintf("%d.%02d", cents/100, cents%100)
	if neg {
		return "-" + s
	}
	return s
}
