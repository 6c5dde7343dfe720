// Copyright 2025 The Push Chain Authors
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package errors

import "fmt"

// Status is an operation status code.
type Status uint64

const (
	// OK indicates success.
	OK Status = 200

	// Unauthorized means the caller does not hold the role the operation
	// requires.
	Unauthorized Status = 401

	// NotFound means a record does not exist.
	NotFound Status = 404

	// Conflict means the operation contradicts recorded state, such as
	// closing a season twice or declaring a weight that does not match the
	// record.
	Conflict Status = 409

	// ZeroAmount means an amount was zero or negative.
	ZeroAmount Status = 440

	// InvalidWeight means a declared reward multiplier was out of range.
	InvalidWeight Status = 441

	// InvalidProof means an admission proof did not verify against the
	// published root.
	InvalidProof Status = 442

	// InsufficientBalance means an amount exceeds the recorded principal.
	InsufficientBalance Status = 443

	// InvalidRange means a value is out of its valid range, such as a claim
	// checkpoint that is already current or a negative duration.
	InvalidRange Status = 444

	// NothingPending means no withdrawal request is outstanding.
	NothingPending Status = 445

	// NoEntitlement means the remaining entitled share is zero.
	NoEntitlement Status = 446

	// LockActive means the stake lock has not expired.
	LockActive Status = 460

	// CooldownActive means the withdrawal cooldown has not finished.
	CooldownActive Status = 461

	// BucketClosed means the epoch or season no longer accepts funding.
	BucketClosed Status = 462

	// SeasonOpen means the season cannot be closed yet.
	SeasonOpen Status = 463

	// SeasonNotFinalized means the season has not been closed.
	SeasonNotFinalized Status = 464

	// SweepLocked means the native recovery delay has not elapsed.
	SweepLocked Status = 465

	// InternalError indicates an internal failure.
	InternalError Status = 500

	// EncodingError means a record could not be encoded or decoded.
	EncodingError Status = 501

	// NotReady means the database has been closed.
	NotReady Status = 502

	// TransferFailed means an outbound value transfer failed and the
	// operation was rolled back.
	TransferFailed Status = 503

	// UnknownError is used when wrapping an error of unknown provenance.
	UnknownError Status = 599
)

// Success returns true if the status represents success.
func (s Status) Success() bool { return s < 300 }

// IsKnownError returns true if the status is non-zero and not UnknownError.
func (s Status) IsKnownError() bool { return s != 0 && s != UnknownError }

// IsValidation returns true if the status is a validation error: the
// operation was rejected with no state change and retrying unchanged will
// fail again.
func (s Status) IsValidation() bool { return s >= 440 && s < 460 }

// IsTemporal returns true if the status is a temporal error: the operation
// was rejected but becomes valid once time passes.
func (s Status) IsTemporal() bool { return s >= 460 && s < 480 }

// IsClientError returns true if the status is a client error.
func (s Status) IsClientError() bool { return s >= 400 && s < 500 }

// IsServerError returns true if the status is a server error.
func (s Status) IsServerError() bool { return s >= 500 }

func (s Status) String() string {
	switch s {
	case OK:
		return "ok"
	case Unauthorized:
		return "unauthorized"
	case NotFound:
		return "not found"
	case Conflict:
		return "conflict"
	case ZeroAmount:
		return "zero amount"
	case InvalidWeight:
		return "invalid weight"
	case InvalidProof:
		return "invalid proof"
	case InsufficientBalance:
		return "insufficient balance"
	case InvalidRange:
		return "invalid range"
	case NothingPending:
		return "nothing pending"
	case NoEntitlement:
		return "no entitlement"
	case LockActive:
		return "lock active"
	case CooldownActive:
		return "cooldown active"
	case BucketClosed:
		return "bucket closed"
	case SeasonOpen:
		return "season open"
	case SeasonNotFinalized:
		return "season not finalized"
	case SweepLocked:
		return "sweep locked"
	case InternalError:
		return "internal error"
	case EncodingError:
		return "encoding error"
	case NotReady:
		return "not ready"
	case TransferFailed:
		return "transfer failed"
	case UnknownError:
		return "unknown error"
	default:
		return fmt.Sprintf("status %d", uint64(s))
	}
}
