package coinbase

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type orderRequest struct {
	ClientOID   string `json:"client_oid,omitempty"`
	Type        string `json:"type"`
	Side        string `json:"side"`
	ProductID   string `json:"product_id"`
	Price       string `json:"price"`
	Size        string `json:"size"`
	TimeInForce string `json:"time_in_force,omitempty"`
}

type orderResponse struct {
	ID            string           `json:"id"`
	ProductID     string           `json:"product_id"`
	Side          string           `json:"side"`
	Status        string           `json:"status"`
	DoneReason    string           `json:"done_reason"`
	ExecutedValue *decimal.Decimal `json:"executed_value"`
	FillFees      *decimal.Decimal `json:"fill_fees"`
	FilledSize    *decimal.Decimal `json:"filled_size"`
	CreatedAt     time.Time        `json:"created_at"`
}

type accountResponse struct {
	ID        string          `json:"id"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	Available decimal.Decimal `json:"available"`
	Hold      decimal.Decimal `json:"hold"`
	ProfileID string          `json:"profile_id"`
}

type feesResponse struct {
	MakerFeeRate decimal.Decimal `json:"maker_fee_rate"`
	TakerFeeRate decimal.Decimal `json:"taker_fee_rate"`
}

type profileResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

type productResponse struct {
	ID             string `json:"id"`
	BaseCurrency   string `json:"base_currency"`
	QuoteCurrency  string `json:"quote_currency"`
	BaseIncrement  string `json:"base_increment"`
	QuoteIncrement string `json:"quote_increment"`
}

type transferRequest struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

type feedMessage struct {
	Type      string    `json:"type"`
	ProductID string    `json:"product_id"`
	Price     string    `json:"price"`
	Sequence  int64     `json:"sequence"`
	Time      time.Time `json:"time"`
	Message   string    `json:"message"`
	Reason    string    `json:"reason"`
}

type subscribeMessage struct {
	Type       string   `json:"type"`
	ProductIDs []string `json:"product_ids"`
	Channels   []string `json:"channels"`
}

func orZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
