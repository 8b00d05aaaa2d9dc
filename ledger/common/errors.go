// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package common

import (
	"errors"
	"fmt"
)

// ErrorKind groups ledger errors by the class of condition that caused them
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	KindNotFound
	KindAlreadyExists
	KindInvalidInput
	KindUnauthorized
	KindStateConflict
	KindInsufficientFunds
	KindTimingNotElapsed
	KindReentrancyBlocked
	KindInitialization
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindAlreadyExists:
		return "AlreadyExists"
	case KindInvalidInput:
		return "InvalidInput"
	case KindUnauthorized:
		return "Unauthorized"
	case KindStateConflict:
		return "StateConflict"
	case KindInsufficientFunds:
		return "InsufficientFunds"
	case KindTimingNotElapsed:
		return "TimingNotElapsed"
	case KindReentrancyBlocked:
		return "ReentrancyBlocked"
	case KindInitialization:
		return "Initialization"
	default:
		return "Unknown"
	}
}

// Error is a ledger rule violation. Each value is a sentinel and should be
// compared with errors.Is
type Error struct {
	Message string
	Code    uint32
	Kind    ErrorKind
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

// KindOf returns the kind of the first ledger error in the chain
func KindOf(err error) ErrorKind {
	var lerr *Error
	if errors.As(err, &lerr) {
		return lerr.Kind
	}
	return KindUnknown
}

// IsKind reports whether err wraps a ledger error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

func newError(code uint32, kind ErrorKind, msg string) *Error {
	return &Error{Code: code, Kind: kind, Message: msg}
}

// Campaign, pool and multi-sig errors
var (
	ErrCampaignNotFound         = newError(1, KindNotFound, "campaign not found")
	ErrInvalidTitle             = newError(2, KindInvalidInput, "invalid title")
	ErrInvalidGoal              = newError(3, KindInvalidInput, "invalid goal")
	ErrInvalidDeadline          = newError(4, KindInvalidInput, "invalid deadline")
	ErrCampaignAlreadyExists    = newError(5, KindAlreadyExists, "campaign already exists")
	ErrPoolNotFound             = newError(6, KindNotFound, "pool not found")
	ErrInvalidPoolName          = newError(7, KindInvalidInput, "invalid pool name")
	ErrInvalidPoolTarget        = newError(8, KindInvalidInput, "invalid pool target")
	ErrInvalidPoolDeadline      = newError(9, KindInvalidInput, "invalid pool deadline")
	ErrPoolAlreadyExists        = newError(10, KindAlreadyExists, "pool already exists")
	ErrInvalidPoolState         = newError(11, KindStateConflict, "invalid pool state")
	ErrInvalidMultiSigConfig    = newError(12, KindInvalidInput, "invalid multi-sig config")
	ErrNotAuthorizedSigner      = newError(13, KindUnauthorized, "not an authorized signer")
	ErrAlreadyApproved          = newError(14, KindAlreadyExists, "already approved")
	ErrDisbursementNotFound     = newError(15, KindNotFound, "disbursement not found")
	ErrDisbursementExecuted     = newError(16, KindStateConflict, "disbursement already executed")
	ErrInsufficientApprovals    = newError(17, KindInsufficientFunds, "insufficient approvals")
	ErrSignerAlreadyExists      = newError(18, KindAlreadyExists, "signer already exists")
	ErrSignerNotFound           = newError(19, KindNotFound, "signer not found")
	ErrCannotRemoveLastSigner   = newError(20, KindStateConflict, "cannot remove last signer")
	ErrInvalidSignerCount       = newError(21, KindInvalidInput, "invalid signer count")
	ErrCampaignExpired          = newError(22, KindStateConflict, "campaign expired")
	ErrCampaignAlreadyFunded    = newError(23, KindStateConflict, "campaign already funded")
	ErrCampaignCancelled        = newError(24, KindStateConflict, "campaign cancelled")
	ErrInvalidDonationAmount    = newError(25, KindInvalidInput, "invalid donation amount")
	ErrInvalidGoalUpdate        = newError(26, KindInvalidInput, "invalid goal update")
	ErrRefundNotAvailable       = newError(27, KindStateConflict, "refund not available")
	ErrNoContributionToRefund   = newError(28, KindNotFound, "no contribution to refund")
	ErrPoolAlreadyClosed        = newError(29, KindStateConflict, "pool already closed")
	ErrPoolNotDisbursedOrRefund = newError(30, KindStateConflict, "pool not disbursed or refunded")
	ErrPoolNotExpired           = newError(31, KindTimingNotElapsed, "pool not expired")
	ErrPoolAlreadyDisbursed     = newError(32, KindStateConflict, "pool already disbursed")
	ErrRefundGracePeriod        = newError(33, KindTimingNotElapsed, "refund grace period not passed")
	ErrInvalidMetadata          = newError(34, KindInvalidInput, "invalid metadata")
	ErrStringTooLong            = newError(35, KindInvalidInput, "string too long")
)

// Funds, fee and transfer errors
var (
	ErrInvalidAmount          = newError(40, KindInvalidInput, "invalid amount")
	ErrInvalidFeeRate         = newError(41, KindInvalidInput, "invalid fee rate")
	ErrInvalidFee             = newError(42, KindInvalidInput, "invalid fee")
	ErrInsufficientBalance    = newError(43, KindInsufficientFunds, "insufficient balance")
	ErrInsufficientFees       = newError(44, KindInsufficientFunds, "insufficient platform fees")
	ErrInsufficientFunds      = newError(45, KindInsufficientFunds, "insufficient pool funds")
	ErrTokenTransferFailed    = newError(46, KindInvalidInput, "token transfer failed")
	ErrArithmeticOverflow     = newError(47, KindInvalidInput, "arithmetic overflow")
	ErrReentrancyLocked       = newError(48, KindReentrancyBlocked, "reentrancy lock held")
	ErrUnauthorized           = newError(49, KindUnauthorized, "unauthorized")
	ErrNotInitialized         = newError(50, KindInitialization, "not initialized")
	ErrAlreadyInitialized     = newError(51, KindInitialization, "already initialized")
	ErrContractPaused         = newError(52, KindStateConflict, "contract paused")
	ErrContractAlreadyPaused  = newError(53, KindStateConflict, "contract already paused")
	ErrContractNotPaused      = newError(54, KindStateConflict, "contract already unpaused")
	ErrPoolsPaused            = newError(55, KindStateConflict, "pools paused")
	ErrPoolsAlreadyPaused     = newError(56, KindStateConflict, "pools already paused")
	ErrPoolsNotPaused         = newError(57, KindStateConflict, "pools already unpaused")
	ErrCampaignsPaused        = newError(58, KindStateConflict, "campaigns paused")
	ErrCampaignsAlreadyPaused = newError(59, KindStateConflict, "campaigns already paused")
	ErrCampaignsNotPaused     = newError(60, KindStateConflict, "campaigns already unpaused")
)

// Emergency withdrawal errors
var (
	ErrEmergencyAlreadyRequested = newError(70, KindStateConflict, "emergency withdrawal already requested")
	ErrEmergencyNotRequested     = newError(71, KindNotFound, "emergency withdrawal not requested")
	ErrEmergencyPeriodNotPassed  = newError(72, KindTimingNotElapsed, "emergency withdrawal period not passed")
)
