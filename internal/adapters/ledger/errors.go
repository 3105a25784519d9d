package ledger

import (
	"context"
	stderrs "errors"
	"strings"

	perr "github.com/ditsyandrea22/celo-identity/internal/platform/errors"
)

var rejectMarkers = []string{
	"execution reverted",
	"revert",
	"invalid opcode",
	"gas required exceeds allowance",
	"proof already used",
}

// classify maps a backend error onto Rejected or Unconfirmed
func classify(err error, op Op) error {
	if err == nil {
		return nil
	}
	if perr.IsCode(err, perr.ErrorCodeLedgerRejected) || perr.IsCode(err, perr.ErrorCodeLedgerUnconfirmed) {
		return err
	}
	if stderrs.Is(err, context.DeadlineExceeded) || stderrs.Is(err, context.Canceled) {
		return perr.LedgerUnconfirmedf(err, "%s: not confirmed in time", op)
	}
	msg := strings.ToLower(err.Error())
	for _, m := range rejectMarkers {
		if strings.Contains(msg, m) {
			return perr.LedgerRejectedf(err, "%s rejected", op)
		}
	}
	return perr.LedgerUnconfirmedf(err, "%s unconfirmed", op)
}

// IsRejected reports a definitive refusal by the ledger
func IsRejected(err error) bool { return perr.IsCode(err, perr.ErrorCodeLedgerRejected) }

// IsUnconfirmed reports an outcome that may still land
func IsUnconfirmed(err error) bool { return perr.IsCode(err, perr.ErrorCodeLedgerUnconfirmed) }

// rebroadcast answers that mean the node already has our signed tx
func alreadyKnown(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already known") || strings.Contains(msg, "known transaction")
}
