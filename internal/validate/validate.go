// Package validate contains the pure pre-submission checks for order
// parameters. Nothing here touches the network; the authoritative checks
// happen server-side, these exist to reject malformed input before it
// leaves the process.
package validate

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"tradedesk/internal/domain"
)

// Exchange tick size, expressed as decimal places. US equities quote in
// cents; sub-penny prices are rejected.
const PriceDecimalPlaces = 2

// symbolPattern matches 1-6 uppercase alphanumerics, optionally with a
// single class suffix ("BRK.B").
var symbolPattern = regexp.MustCompile(`^[A-Z0-9]{1,6}(\.[A-Z])?$`)

var (
	ErrAmountNotPositive  = errors.New("quantity must be a positive number")
	ErrInsufficientFunds  = errors.New("estimated cost exceeds available balance")
	ErrPriceNotPositive   = errors.New("price must be a positive number")
	ErrPriceTooPrecise    = fmt.Errorf("price precision exceeds %d decimal places", PriceDecimalPlaces)
	ErrMissingLimitPrice  = errors.New("limit price is required for this order type")
	ErrMissingStopPrice   = errors.New("stop price is required for this order type")
	ErrInvalidSymbol      = errors.New("symbol must be 1-6 uppercase letters or digits")
	ErrInvalidSide        = errors.New("side must be buy or sell")
	ErrInvalidOrderType   = errors.New("unknown order type")
	ErrInvalidTimeInForce = errors.New("unknown time in force")
	ErrInvalidMode        = errors.New("mode must be paper or live")
)

// OrderAmount checks that qty is positive and, for buys, that the
// estimated notional (qty × estimatedPrice) does not exceed the available
// balance. The balance check is an estimate only; the server re-checks
// with authoritative prices.
func OrderAmount(qty, estimatedPrice, availableBalance decimal.Decimal) error {
	if qty.LessThanOrEqual(decimal.Zero) {
		return ErrAmountNotPositive
	}
	if estimatedPrice.IsPositive() && qty.Mul(estimatedPrice).GreaterThan(availableBalance) {
		return fmt.Errorf("%w: need %s, have %s",
			ErrInsufficientFunds, qty.Mul(estimatedPrice).StringFixed(2), availableBalance.StringFixed(2))
	}
	return nil
}

// Price checks that p is positive and respects the exchange tick size.
func Price(p decimal.Decimal) error {
	if p.LessThanOrEqual(decimal.Zero) {
		return ErrPriceNotPositive
	}
	if !p.Equal(p.Round(PriceDecimalPlaces)) {
		return ErrPriceTooPrecise
	}
	return nil
}

// ValidSymbol reports whether symbol is a well-formed ticker.
func ValidSymbol(symbol string) bool {
	return symbolPattern.MatchString(symbol)
}

// OrderRequest runs every local check against the request and returns all
// violations found, keyed by field. An empty map means the request is
// locally valid. estimatedPrice and availableBalance feed the notional
// check; pass zero for estimatedPrice to skip it (e.g. no quote yet).
func OrderRequest(req *domain.OrderRequest, estimatedPrice, availableBalance decimal.Decimal) map[string]error {
	errs := make(map[string]error)

	if !ValidSymbol(req.Symbol) {
		errs["symbol"] = ErrInvalidSymbol
	}
	if !req.Side.Valid() {
		errs["side"] = ErrInvalidSide
	}
	if !req.Type.Valid() {
		errs["order_type"] = ErrInvalidOrderType
	}
	if !req.TimeInForce.Valid() {
		errs["time_in_force"] = ErrInvalidTimeInForce
	}
	if !req.Mode.Valid() {
		errs["mode"] = ErrInvalidMode
	}

	// Balance only constrains buys; sells are constrained by the position,
	// which the server owns.
	if req.Side == domain.OrderSideSell {
		if err := OrderAmount(req.Qty, decimal.Zero, decimal.Zero); err != nil {
			errs["quantity"] = err
		}
	} else if err := OrderAmount(req.Qty, estimatedPrice, availableBalance); err != nil {
		errs["quantity"] = err
	}

	// Price fields not required by the order type are ignored here; the
	// order form strips them before submission.
	if req.Type.NeedsLimitPrice() {
		if req.LimitPrice == nil {
			errs["limit_price"] = ErrMissingLimitPrice
		} else if err := Price(*req.LimitPrice); err != nil {
			errs["limit_price"] = err
		}
	}

	if req.Type.NeedsStopPrice() {
		if req.StopPrice == nil {
			errs["stop_price"] = ErrMissingStopPrice
		} else if err := Price(*req.StopPrice); err != nil {
			errs["stop_price"] = err
		}
	}

	return errs
}
