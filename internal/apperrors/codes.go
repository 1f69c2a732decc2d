// Package apperrors provides the structured error codes shared by the
// economy engines and the ledger service contract.
package apperrors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Precondition errors, detected locally before any ledger call.
	CodeInsufficientFunds     Code = "INSUFFICIENT_FUNDS"
	CodeInvalidPullCount      Code = "INVALID_PULL_COUNT"
	CodeInvalidAmount         Code = "INVALID_AMOUNT"
	CodeInvalidSelectionCount Code = "INVALID_SELECTION_COUNT"
	CodeInvalidRarity         Code = "INVALID_RARITY"
	CodeMixedRarity           Code = "MIXED_RARITY"
	CodeNoHigherRarity        Code = "NO_HIGHER_RARITY"
	CodeInsufficientSurplus   Code = "INSUFFICIENT_SURPLUS"
	CodeAlreadyMaxTier        Code = "ALREADY_MAX_TIER"
	CodeNotEnoughFood         Code = "NOT_ENOUGH_FOOD"
	CodeOperationPending      Code = "OPERATION_PENDING"

	// Transaction errors, reported by the ledger service after it
	// re-validated the request against authoritative state.
	CodeTransactionRejected Code = "TRANSACTION_REJECTED"

	// Lookup errors.
	CodeNotFound Code = "NOT_FOUND"

	// Transport errors.
	CodeUnavailable Code = "UNAVAILABLE"
)

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - malformed input regardless of current state
	case CodeInvalidPullCount,
		CodeInvalidAmount,
		CodeInvalidSelectionCount,
		CodeInvalidRarity:
		return codes.InvalidArgument

	// FailedPrecondition - current wallet/inventory state disallows the operation
	case CodeInsufficientFunds,
		CodeMixedRarity,
		CodeNoHigherRarity,
		CodeInsufficientSurplus,
		CodeAlreadyMaxTier,
		CodeNotEnoughFood:
		return codes.FailedPrecondition

	// Aborted - another submission is in flight or the ledger refused the txn
	case CodeOperationPending,
		CodeTransactionRejected:
		return codes.Aborted

	case CodeNotFound:
		return codes.NotFound

	case CodeUnavailable:
		return codes.Unavailable
	}
	return codes.Internal
}
