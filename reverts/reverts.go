// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package reverts defines the failures an accounting or authorization call can abort with.
// A revert never leaves partial state behind.
package reverts

import (
	"errors"
	"fmt"
)

// Code enumerates revert reasons.
type Code uint8

const (
	CodeUnknown Code = iota

	// input validation
	CodeZeroStake
	CodeAmountTooSmall
	CodeAmountTooLarge
	CodeInvalidFeeRate

	// ownership and authorization
	CodePoolPositionMismatch
	CodeInvalidCapability
	CodeUnauthorized
	CodePaused
	CodeKeeperNotActive
	CodeInvalidStatus
	CodeInvalidKeeperSignature
	CodeMeasurementMismatch
	CodeNonceReused

	// economic state
	CodeInsufficientShares
	CodeInsufficientGasBalance
	CodeInsufficientGasDebt
	CodeNoProtocolFee
	CodeInsufficientRewardBalance

	// lookups
	CodePositionNotFound
	CodeNotFound

	// numeric bounds
	CodeOverflow
)

var codeNames = map[Code]string{
	CodeUnknown:                   "Unknown",
	CodeZeroStake:                 "ZeroStake",
	CodeAmountTooSmall:            "AmountTooSmall",
	CodeAmountTooLarge:            "AmountTooLarge",
	CodeInvalidFeeRate:            "InvalidFeeRate",
	CodePoolPositionMismatch:      "PoolPositionMismatch",
	CodeInvalidCapability:         "InvalidCapability",
	CodeUnauthorized:              "Unauthorized",
	CodePaused:                    "Paused",
	CodeKeeperNotActive:           "KeeperNotActive",
	CodeInvalidStatus:             "InvalidStatus",
	CodeInvalidKeeperSignature:    "InvalidKeeperSignature",
	CodeMeasurementMismatch:       "MeasurementMismatch",
	CodeNonceReused:               "NonceReused",
	CodeInsufficientShares:        "InsufficientShares",
	CodeInsufficientGasBalance:    "InsufficientGasBalance",
	CodeInsufficientGasDebt:       "InsufficientGasDebt",
	CodeNoProtocolFee:             "NoProtocolFee",
	CodeInsufficientRewardBalance: "InsufficientRewardBalance",
	CodePositionNotFound:          "PositionNotFound",
	CodeNotFound:                  "NotFound",
	CodeOverflow:                  "Overflow",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Code(%d)", uint8(c))
}

type ErrRevert struct {
	code    Code
	message string
}

// New creates a revert with the given reason and message.
func New(code Code, message string) *ErrRevert {
	return &ErrRevert{
		code:    code,
		message: message,
	}
}

// Newf creates a revert with a formatted message.
func Newf(code Code, format string, args ...any) *ErrRevert {
	return New(code, fmt.Sprintf(format, args...))
}

func (e *ErrRevert) Error() string {
	if e.message == "" {
		return e.code.String()
	}
	return e.code.String() + ": " + e.message
}

// Code returns the revert reason.
func (e *ErrRevert) Code() Code {
	return e.code
}

func IsRevertErr(err any) bool {
	if err == nil {
		return false
	}
	e, ok := err.(error)
	if !ok {
		return false
	}
	var ve *ErrRevert
	return errors.As(e, &ve)
}

// Is reports whether err is a revert with the given code.
func Is(err error, code Code) bool {
	var ve *ErrRevert
	if !errors.As(err, &ve) {
		return false
	}
	return ve.code == code
}

// CodeOf returns the revert code of err, or CodeUnknown when err is not a revert.
func CodeOf(err error) Code {
	var ve *ErrRevert
	if !errors.As(err, &ve) {
		return CodeUnknown
	}
	return ve.code
}
