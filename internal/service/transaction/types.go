package transaction

import (
	"fmt"
	"time"

	"github.com/mrz1836/nopewallet/internal/chain"
)

// SendRequest is one user-initiated transfer.
type SendRequest struct {
	ChainID   chain.ID
	AccountID string
	Password  string
	To        string

	// AmountStr is the decimal amount in display units, or "all"/"max".
	AmountStr string

	// Balance is the known balance in display units. When set, the amount
	// is checked against it and an amount equal to it becomes send-max.
	Balance string
}

// SweepAll reports whether the whole balance was asked for.
func (r *SendRequest) SweepAll() bool {
	return IsAmountAll(r.AmountStr)
}

// SendResult is the outcome of a broadcast transfer. Amount, Fee and
// Balance are in display units.
type SendResult struct {
	ChainID chain.ID `json:"chain"`
	Hash    string   `json:"hash"`
	From    string   `json:"from"`
	To      string   `json:"to"`
	Amount  string   `json:"amount"`
	Fee     string   `json:"fee,omitempty"`
	Balance string   `json:"balance,omitempty"`
	Status  State    `json:"status"`
}

// State is where a send stands.
type State int

// Send states, in order. Failed can follow any state before Confirmed.
const (
	StateIdle State = iota
	StateAddressValidated
	StateKeysDerived
	StateBuilt
	StateSigned
	StateBroadcast
	StateConfirmed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAddressValidated:
		return "address_validated"
	case StateKeysDerived:
		return "keys_derived"
	case StateBuilt:
		return "built"
	case StateSigned:
		return "signed"
	case StateBroadcast:
		return "broadcast"
	case StateConfirmed:
		return "confirmed"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateConfirmed || s == StateFailed
}

// Pending is the in-flight record of one send. It lives only for the
// duration of the send and holds no key material.
type Pending struct {
	Chain     chain.ID
	From      string
	To        string
	Amount    string
	Fee       string
	State     State
	Err       error
	UpdatedAt time.Time
}

// TransitionError is returned when a state change would go backwards
// or leave a terminal state.
type TransitionError struct {
	From State
	To   State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s", e.From, e.To)
}

// advance moves p forward to next. Stages may be skipped, for signers that
// build remotely, but never revisited.
func (p *Pending) advance(next State) error {
	if p.State.Terminal() || (next != StateFailed && next <= p.State) {
		return &TransitionError{From: p.State, To: next}
	}
	p.State = next
	p.UpdatedAt = time.Now()
	return nil
}

// fail moves p to Failed with err. It is a no-op once p is terminal.
func (p *Pending) fail(err error) {
	if p.State.Terminal() {
		return
	}
	p.State = StateFailed
	p.Err = err
	p.UpdatedAt = time.Now()
}
