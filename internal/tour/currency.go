package tour

import (
	"encoding/json"
	"strings"
)

// Currency is an ISO code of one of the six supported booking currencies.
type Currency string

const (
	GBP Currency = "GBP"
	USD Currency = "USD"
	EUR Currency = "EUR"
	CAD Currency = "CAD"
	AUD Currency = "AUD"
	NZD Currency = "NZD"
)

// Currencies lists every supported currency in output order.
var Currencies = []Currency{GBP, USD, EUR, CAD, AUD, NZD}

// ParseCurrency accepts a case-insensitive ISO code.
func ParseCurrency(s string) (Currency, bool) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Currencies {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// PriceSet holds the headline price per currency. Values are never negative.
type PriceSet struct {
	GBP int `json:"price_GBP"`
	USD int `json:"price_USD"`
	EUR int `json:"price_EUR"`
	CAD int `json:"price_CAD"`
	AUD int `json:"price_AUD"`
	NZD int `json:"price_NZD"`
}

// Get returns the price for c, 0 for unknown currencies.
func (p PriceSet) Get(c Currency) int {
	switch c {
	case GBP:
		return p.GBP
	case USD:
		return p.USD
	case EUR:
		return p.EUR
	case CAD:
		return p.CAD
	case AUD:
		return p.AUD
	case NZD:
		return p.NZD
	}
	return 0
}

// Set stores v for c, clamping negatives to zero.
func (p *PriceSet) Set(c Currency, v int) {
	if v < 0 {
		v = 0
	}
	switch c {
	case GBP:
		p.GBP = v
	case USD:
		p.USD = v
	case EUR:
		p.EUR = v
	case CAD:
		p.CAD = v
	case AUD:
		p.AUD = v
	case NZD:
		p.NZD = v
	}
}

// UnmarshalJSON tolerates null members, which decode as 0.
func (p *PriceSet) UnmarshalJSON(data []byte) error {
	var raw map[string]*int
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = PriceSet{}
	for _, c := range Currencies {
		if v := raw["price_"+string(c)]; v != nil {
			p.Set(c, *v)
		}
	}
	return nil
}

// CurrencyAmounts maps currencies to optional amounts; nil means unknown.
type CurrencyAmounts map[Currency]*int

// PriceMatrix is the per-departure price breakdown from the booking ledger.
type PriceMatrix struct {
	Deposit CurrencyAmounts `json:"deposit"`
	Main    CurrencyAmounts `json:"main"`
}

// NewPriceMatrix returns a matrix with every currency present and unknown.
func NewPriceMatrix() PriceMatrix {
	m := PriceMatrix{Deposit: CurrencyAmounts{}, Main: CurrencyAmounts{}}
	for _, c := range Currencies {
		m.Deposit[c] = nil
		m.Main[c] = nil
	}
	return m
}

// Clone deep-copies the matrix.
func (m PriceMatrix) Clone() PriceMatrix {
	out := PriceMatrix{Deposit: CurrencyAmounts{}, Main: CurrencyAmounts{}}
	for c, v := range m.Deposit {
		out.Deposit[c] = copyInt(v)
	}
	for c, v := range m.Main {
		out.Main[c] = copyInt(v)
	}
	return out
}
