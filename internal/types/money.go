// README: Common money value object used across modules.
package types

import "github.com/shopspring/decimal"

type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func NewMoney(amount decimal.Decimal, currency string) Money {
	return Money{Amount: amount, Currency: currency}
}

// Round returns m rounded half-to-even to the given number of minor-unit places.
func (m Money) Round(places int32) Money {
	return Money{Amount: m.Amount.RoundBank(places), Currency: m.Currency}
}

// Format prints the amount with exactly places decimals, e.g. "1234.50 EUR" or "1500 JPY".
func (m Money) Format(places int32) string {
	return m.Round(places).Amount.StringFixed(places) + " " + m.Currency
}
