// internal/protocol/errors.go
package protocol

import (
	"errors"
	"fmt"
	"strings"
)

// ErrWrongNetwork is returned when the enforcement gate blocks a mutating
// action.
var ErrWrongNetwork = errors.New("wallet is on the wrong network")

// Kind buckets a mutating-flow failure by how the caller should present it.
type Kind int

const (
	// KindCancelled: the user rejected the signature. Dismissible, not
	// alarming ("cancelled", never "failed").
	KindCancelled Kind = iota

	// KindWrongNetwork: blocked by the enforcement gate.
	KindWrongNetwork

	// KindAlreadyClaimed: the entitlement was redeemed elsewhere; local
	// state is stale and a refresh is triggered.
	KindAlreadyClaimed

	// KindReverted: the contract rejected the transaction.
	KindReverted

	// KindUnknown: everything else; the raw message is the fallback.
	KindUnknown
)

// FlowError is a classified mutating-flow failure.
type FlowError struct {
	Kind    Kind
	Action  string
	Message string
	Err     error
}

func (e *FlowError) Error() string {
	return fmt.Sprintf("%s: %s", e.Action, e.Message)
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

// Classify maps a raw transaction error onto the flow taxonomy.
func Classify(action string, err error) *FlowError {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrWrongNetwork) {
		return &FlowError{
			Kind:    KindWrongNetwork,
			Action:  action,
			Message: "switch to the supported network to continue",
			Err:     err,
		}
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "user rejected") ||
		strings.Contains(errStr, "user denied") ||
		strings.Contains(errStr, "rejected by user"):
		return &FlowError{
			Kind:    KindCancelled,
			Action:  action,
			Message: "cancelled",
			Err:     err,
		}

	case strings.Contains(errStr, "already claimed"):
		return &FlowError{
			Kind:    KindAlreadyClaimed,
			Action:  action,
			Message: "this reward was already claimed; refreshing your claims",
			Err:     err,
		}

	case strings.Contains(errStr, "execution reverted") ||
		strings.Contains(errStr, "invalid opcode"):
		return &FlowError{
			Kind:    KindReverted,
			Action:  action,
			Message: "the contract rejected this transaction",
			Err:     err,
		}

	default:
		return &FlowError{
			Kind:    KindUnknown,
			Action:  action,
			Message: err.Error(),
			Err:     err,
		}
	}
}
