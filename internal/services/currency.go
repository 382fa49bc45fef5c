// Package services provides business logic services.
package services

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyFormat describes how one vendor currency code is rendered.
type CurrencyFormat struct {
	Code       string
	Symbol     string
	Prefix     bool
	DecimalSep string
}

// Vendor numeric currency codes and their display conventions.
var currencyFormats = map[int]CurrencyFormat{
	1:  {Code: "USD", Symbol: "$", Prefix: true, DecimalSep: "."},
	2:  {Code: "GBP", Symbol: "£", Prefix: true, DecimalSep: "."},
	3:  {Code: "EUR", Symbol: "€", Prefix: true, DecimalSep: "."},
	5:  {Code: "RUB", Symbol: " руб.", Prefix: false, DecimalSep: ","},
	18: {Code: "UAH", Symbol: " ₴", Prefix: false, DecimalSep: ","},
	23: {Code: "BRL", Symbol: "R$ ", Prefix: true, DecimalSep: ","},
}

// Unknown codes fall back to USD rendering, matching the vendor's default.
var fallbackFormat = currencyFormats[1]

// CurrencyService formats wallet balances reported in minor units.
type CurrencyService struct{}

// NewCurrencyService creates a new CurrencyService.
func NewCurrencyService() *CurrencyService {
	return &CurrencyService{}
}

// Format renders a minor-unit balance in the given vendor currency code,
// e.g. 12345 with code 1 becomes "$123.45".
func (s *CurrencyService) Format(minorUnits int64, currencyCode int) string {
	format, ok := currencyFormats[currencyCode]
	if !ok {
		format = fallbackFormat
	}

	amount := decimal.NewFromInt(minorUnits).Div(decimal.NewFromInt(100)).StringFixed(2)
	if format.DecimalSep != "." {
		amount = strings.Replace(amount, ".", format.DecimalSep, 1)
	}

	if format.Prefix {
		return format.Symbol + amount
	}
	return amount + format.Symbol
}

// Code returns the ISO currency code for a vendor numeric code, defaulting
// to USD for codes outside the mapping.
func (s *CurrencyService) Code(currencyCode int) string {
	if format, ok := currencyFormats[currencyCode]; ok {
		return format.Code
	}
	return fallbackFormat.Code
}

// Major converts minor units to the major-unit amount, e.g. 12345 to 123.45.
func (s *CurrencyService) Major(minorUnits int64) float64 {
	f, _ := decimal.NewFromInt(minorUnits).Div(decimal.NewFromInt(100)).Float64()
	return f
}
