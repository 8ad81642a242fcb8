package contract

import "errors"

// Code is the machine-readable kind of a rejected call.
type Code string

const (
	CodeGoalTooLow                 Code = "GOAL_TOO_LOW"
	CodeBelowMinimumContribution   Code = "BELOW_MINIMUM_CONTRIBUTION"
	CodeInactiveCampaign           Code = "INACTIVE_CAMPAIGN"
	CodeNotOwner                   Code = "NOT_OWNER"
	CodeNotActive                  Code = "NOT_ACTIVE"
	CodeNotSuccessful              Code = "NOT_SUCCESSFUL"
	CodeExceedsAvailableBalance    Code = "EXCEEDS_AVAILABLE_BALANCE"
	CodeNotFailed                  Code = "NOT_FAILED"
	CodeNoContribution             Code = "NO_CONTRIBUTION"
	CodeInsufficientContribution   Code = "INSUFFICIENT_CONTRIBUTION"
	CodeUnrecognizedDirectTransfer Code = "UNRECOGNIZED_DIRECT_TRANSFER"
	CodeNotBadgeHolder             Code = "NOT_BADGE_HOLDER"
	CodeUnknownBadge               Code = "UNKNOWN_BADGE"
	CodeCampaignNotFound           Code = "CAMPAIGN_NOT_FOUND"
	CodeAmountOverflow             Code = "AMOUNT_OVERFLOW"
	CodeInvalidAmount              Code = "INVALID_AMOUNT"
	CodeInvalidAddress             Code = "INVALID_ADDRESS"
	CodeInvalidArgument            Code = "INVALID_ARGUMENT"
	CodeCampaignBusy               Code = "CAMPAIGN_BUSY"
	CodeUnknown                    Code = "UNKNOWN"
)

// Error is a rejected call. Two errors match under errors.Is when their codes match.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

var (
	ErrGoalTooLow                 = newError(CodeGoalTooLow, "goal is below the minimum contribution")
	ErrBelowMinimumContribution   = newError(CodeBelowMinimumContribution, "contribution is below the minimum")
	ErrInactiveCampaign           = newError(CodeInactiveCampaign, "campaign is not accepting contributions")
	ErrNotOwner                   = newError(CodeNotOwner, "caller is not the campaign owner")
	ErrNotActive                  = newError(CodeNotActive, "campaign is not active")
	ErrNotSuccessful              = newError(CodeNotSuccessful, "campaign has not succeeded")
	ErrExceedsAvailableBalance    = newError(CodeExceedsAvailableBalance, "amount exceeds the available balance")
	ErrNotFailed                  = newError(CodeNotFailed, "campaign has not failed")
	ErrNoContribution             = newError(CodeNoContribution, "nothing to refund")
	ErrInsufficientContribution   = newError(CodeInsufficientContribution, "contribution too small for another badge")
	ErrUnrecognizedDirectTransfer = newError(CodeUnrecognizedDirectTransfer, "direct transfers are not accepted, use contribute")
	ErrNotBadgeHolder             = newError(CodeNotBadgeHolder, "caller does not hold this badge")
	ErrUnknownBadge               = newError(CodeUnknownBadge, "badge does not exist")
	ErrCampaignNotFound           = newError(CodeCampaignNotFound, "campaign not found")
	ErrAmountOverflow             = newError(CodeAmountOverflow, "amount overflow")
	ErrInvalidAmount              = newError(CodeInvalidAmount, "invalid amount")
	ErrInvalidAddress             = newError(CodeInvalidAddress, "invalid address")
	ErrInvalidArgument            = newError(CodeInvalidArgument, "invalid argument")
	ErrCampaignBusy               = newError(CodeCampaignBusy, "campaign is locked by another call, retry")
)

func newError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// withCause returns a copy of a sentinel carrying extra context. It still matches the
// sentinel under errors.Is.
func withCause(sentinel *Error, cause error) *Error {
	return &Error{Code: sentinel.Code, Message: sentinel.Message, Cause: cause}
}

// CodeOf extracts the code of err, or CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}
