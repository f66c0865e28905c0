// Package state persists the open position so a restart resumes where the
// last completed order left off.
package state

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Position is the engine's record of holdings. AcquiredPrice and AcquiredCost
// are meaningful only while Exists is true.
type Position struct {
	Exists        bool
	AcquiredPrice decimal.Decimal
	AcquiredCost  decimal.Decimal
}

// Flat is the no-position value
func Flat() Position {
	return Position{}
}

// Held is an open position bought at price for a total cost including fees
func Held(price, cost decimal.Decimal) Position {
	return Position{Exists: true, AcquiredPrice: price, AcquiredCost: cost}
}

// Validate checks that a held position carries non-negative price and cost
func (p Position) Validate() error {
	if !p.Exists {
		return nil
	}
	if p.AcquiredPrice.IsNegative() || p.AcquiredCost.IsNegative() {
		return fmt.Errorf("held position has negative price %s or cost %s", p.AcquiredPrice, p.AcquiredCost)
	}
	return nil
}

// Equal compares positions by value
func (p Position) Equal(o Position) bool {
	if p.Exists != o.Exists {
		return false
	}
	if !p.Exists {
		return true
	}
	return p.AcquiredPrice.Equal(o.AcquiredPrice) && p.AcquiredCost.Equal(o.AcquiredCost)
}

func (p Position) String() string {
	if !p.Exists {
		return "flat"
	}
	return fmt.Sprintf("held@%s cost=%s", p.AcquiredPrice, p.AcquiredCost)
}

type positionJSON struct {
	Exists        bool             `json:"exists"`
	AcquiredPrice *json.RawMessage `json:"acquiredPrice,omitempty"`
	AcquiredCost  *json.RawMessage `json:"acquiredCost,omitempty"`
}

// checkpointJSON also reads the positionData.json keys written by earlier versions
type checkpointJSON struct {
	Exists        *bool            `json:"exists"`
	AcquiredPrice *decimal.Decimal `json:"acquiredPrice"`
	AcquiredCost  *decimal.Decimal `json:"acquiredCost"`

	LegacyExists *bool            `json:"positionExists"`
	LegacyPrice  *decimal.Decimal `json:"positionAcquiredPrice"`
	LegacyCost   *decimal.Decimal `json:"positionAcquiredCost"`
}

var errMissingFields = errors.New("held position is missing acquiredPrice or acquiredCost")

// MarshalJSON writes {"exists","acquiredPrice","acquiredCost"} with plain JSON
// numbers; price and cost are omitted when flat
func (p Position) MarshalJSON() ([]byte, error) {
	out := positionJSON{Exists: p.Exists}
	if p.Exists {
		price := json.RawMessage(p.AcquiredPrice.String())
		cost := json.RawMessage(p.AcquiredCost.String())
		out.AcquiredPrice, out.AcquiredCost = &price, &cost
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the current and legacy key sets
func (p *Position) UnmarshalJSON(data []byte) error {
	var in checkpointJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	exists, price, cost := in.Exists, in.AcquiredPrice, in.AcquiredCost
	if exists == nil {
		exists, price, cost = in.LegacyExists, in.LegacyPrice, in.LegacyCost
	}
	if exists == nil {
		return errors.New("checkpoint has no exists flag")
	}

	if !*exists {
		*p = Flat()
		return nil
	}
	if price == nil || cost == nil {
		return errMissingFields
	}
	held := Held(*price, *cost)
	if err := held.Validate(); err != nil {
		return err
	}
	*p = held
	return nil
}
