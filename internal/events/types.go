// internal/events/types.go
package events

import (
	"context"
	"time"
)

// EventType identifies the kind of event on the bus.
type EventType string

const (
	// TxConfirmed fires after a mutating transaction (mint, redeem,
	// claim) is mined. Fetchers refresh on it.
	TxConfirmed EventType = "tx_confirmed"

	// ChainSwitched fires after the wallet moves to a different network.
	ChainSwitched EventType = "chain_switched"

	// RefreshRequested is an explicit refresh of all cached state.
	RefreshRequested EventType = "refresh_requested"
)

// Event is anything published on the bus.
type Event interface {
	Type() EventType
	OccurredAt() time.Time
}

// Handler processes one event.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Subscription detaches a handler from the bus.
type Subscription interface {
	Unsubscribe()
}

type baseEvent struct {
	eventType EventType
	occurred  time.Time
}

func (e baseEvent) Type() EventType       { return e.eventType }
func (e baseEvent) OccurredAt() time.Time { return e.occurred }

// TxConfirmedEvent carries the confirmed transaction and the action that
// produced it.
type TxConfirmedEvent struct {
	baseEvent
	TxHash string
	Action string // "mint", "redeem", "claim"
}

// NewTxConfirmed builds a TxConfirmedEvent stamped now.
func NewTxConfirmed(txHash, action string) TxConfirmedEvent {
	return TxConfirmedEvent{
		baseEvent: baseEvent{eventType: TxConfirmed, occurred: time.Now()},
		TxHash:    txHash,
		Action:    action,
	}
}

// ChainSwitchedEvent carries the new chain id.
type ChainSwitchedEvent struct {
	baseEvent
	ChainID int64
}

// NewChainSwitched builds a ChainSwitchedEvent stamped now.
func NewChainSwitched(chainID int64) ChainSwitchedEvent {
	return ChainSwitchedEvent{
		baseEvent: baseEvent{eventType: ChainSwitched, occurred: time.Now()},
		ChainID:   chainID,
	}
}

// RefreshRequestedEvent asks every fetcher to refetch.
type RefreshRequestedEvent struct {
	baseEvent
	Reason string
}

// NewRefreshRequested builds a RefreshRequestedEvent stamped now.
func NewRefreshRequested(reason string) RefreshRequestedEvent {
	return RefreshRequestedEvent{
		baseEvent: baseEvent{eventType: RefreshRequested, occurred: time.Now()},
		Reason:    reason,
	}
}
