package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

type Order struct {
	Side          Side
	Price         decimal.Decimal
	Size          decimal.Decimal
	ClientOrderID string
}

type OpenOrder struct {
	Ref   string
	Side  Side
	Price decimal.Decimal
	Size  decimal.Decimal
}

type Fill struct {
	OrderRef string
	TradeID  string
	Side     Side
	Price    decimal.Decimal
	Size     decimal.Decimal
	Time     time.Time
}

type Balances struct {
	Base  decimal.Decimal
	Quote decimal.Decimal
}

// Client is the venue connectivity capability consumed by the engine.
type Client interface {
	PlaceLimitOrder(ctx context.Context, order Order) (string, error)
	CancelOrder(ctx context.Context, ref string) error
	OpenOrders(ctx context.Context) ([]OpenOrder, error)
	RecentFills(ctx context.Context, since time.Time) ([]Fill, error)
	Balances(ctx context.Context) (Balances, error)
}

type ErrorKind string

const (
	KindRateLimited   ErrorKind = "RATE_LIMITED"
	KindRejected      ErrorKind = "REJECTED"
	KindMinimumNotMet ErrorKind = "MINIMUM_NOT_MET"
	KindTransient     ErrorKind = "TRANSIENT"
	KindPermanent     ErrorKind = "PERMANENT"
)

// Error is a classified venue error. Kind drives retry policy:
// Permanent halts the ladder, everything else cools down and retries.
type Error struct {
	Kind   ErrorKind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("exchange %s: %s", e.Kind, e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("exchange %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("exchange %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(kind ErrorKind, reason string, err error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: err}
}

// Classify maps an error to its kind. Unclassified errors, including
// network failures and deadline expiries, default to Transient.
func Classify(err error) ErrorKind {
	var ex *Error
	if errors.As(err, &ex) {
		return ex.Kind
	}
	return KindTransient
}

func IsPermanent(err error) bool     { return Classify(err) == KindPermanent }
func IsRateLimited(err error) bool   { return Classify(err) == KindRateLimited }
func IsMinimumNotMet(err error) bool { return Classify(err) == KindMinimumNotMet }

// ErrOrderGone reports a cancel attempt on an order the venue no
// longer knows. The order either filled or was already cancelled;
// only reconciliation can tell which, so callers must not treat it
// as a confirmed cancel.
var ErrOrderGone = errors.New("order gone")

// IsUnknownOutcome reports whether an order placement failure leaves
// the order's fate undetermined on the venue side. Such levels must
// stay Pending until reconciliation resolves them.
func IsUnknownOutcome(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}
