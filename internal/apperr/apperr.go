// Package apperr defines the error kinds returned by the service layer.
//
// Every failure a caller needs to react to is one of three kinds: the
// referenced record does not exist, the request broke a business rule, or
// the store failed. A stable Code narrows the reason within a kind.
package apperr

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindValidation
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation_failed"
	case KindPersistence:
		return "persistence_error"
	default:
		return "unknown"
	}
}

type Code string

const (
	// not found
	CodeCustomerNotFound Code = "CUSTOMER_NOT_FOUND"
	CodeDressNotFound    Code = "DRESS_NOT_FOUND"
	CodeRentalNotFound   Code = "RENTAL_NOT_FOUND"
	CodePaymentNotFound  Code = "PAYMENT_NOT_FOUND"
	CodeUserNotFound     Code = "USER_NOT_FOUND"
	CodeSettingNotFound  Code = "SETTING_NOT_FOUND"
	CodeOrderNotFound    Code = "ORDER_NOT_FOUND"
	CodeReportNotFound   Code = "REPORT_NOT_FOUND"

	// rental rules
	CodeDurationOutOfRange   Code = "DURATION_OUT_OF_RANGE"
	CodeRentalLimitReached   Code = "RENTAL_LIMIT_REACHED"
	CodeItemCountOutOfRange  Code = "ITEM_COUNT_OUT_OF_RANGE"
	CodeDuplicateItem        Code = "DUPLICATE_ITEM"
	CodeInvalidDate          Code = "INVALID_DATE"
	CodeItemNotAvailable     Code = "ITEM_NOT_AVAILABLE"
	CodeItemAlreadyBooked    Code = "ITEM_ALREADY_BOOKED"
	CodeAlreadyReturned      Code = "ALREADY_RETURNED"
	CodeInvalidTransition    Code = "INVALID_STATUS_TRANSITION"
	CodeReturnBeforeRental   Code = "RETURN_BEFORE_RENTAL_DATE"
	CodeHasActiveRentals     Code = "CUSTOMER_HAS_ACTIVE_RENTALS"
	CodeDressRented          Code = "DRESS_CURRENTLY_RENTED"
	CodeInvalidAvailability  Code = "INVALID_AVAILABILITY_STATUS"

	// input
	CodeInvalidInput         Code = "INVALID_INPUT"
	CodeDuplicateIC          Code = "DUPLICATE_IC"
	CodeUnderage             Code = "UNDERAGE"
	CodeInvalidPaymentMethod Code = "INVALID_PAYMENT_METHOD"
	CodeInvalidPaymentStatus Code = "INVALID_PAYMENT_STATUS"
	CodeWeakPassword         Code = "WEAK_PASSWORD"
	CodeDuplicateUsername    Code = "DUPLICATE_USERNAME"
	CodeInvalidCredentials   Code = "INVALID_CREDENTIALS"
	CodeAccountInactive      Code = "ACCOUNT_INACTIVE"
	CodeTOTPRequired         Code = "TOTP_REQUIRED"
	CodeInvalidTOTP          Code = "INVALID_TOTP"
	CodeInvalidSignature     Code = "INVALID_SIGNATURE"
	CodeGatewayDisabled      Code = "ONLINE_PAYMENTS_DISABLED"

	CodeStorage Code = "STORAGE_ERROR"
)

// Error is a classified failure. Err, when set, is the underlying cause.
type Error struct {
	Kind Kind
	Code Code
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Msg != "" {
		return e.Msg + ": " + e.Err.Error()
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(code Code, msg string) error {
	return &Error{Kind: KindNotFound, Code: code, Msg: msg}
}

func Validation(code Code, msg string) error {
	return &Error{Kind: KindValidation, Code: code, Msg: msg}
}

// Persistence wraps a store failure. A nil err yields nil so call sites can
// wrap unconditionally.
func Persistence(msg string, err error) error {
	if err == nil {
		return nil
	}
	// Already classified errors pass through unchanged
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return &Error{Kind: KindPersistence, Code: CodeStorage, Msg: msg, Err: err}
}

// KindOf reports the kind of err, looking through wrapping.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// CodeOf reports the code of err, or "" when err is not classified.
func CodeOf(err error) Code {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}

func IsNotFound(err error) bool   { return KindOf(err) == KindNotFound }
func IsValidation(err error) bool { return KindOf(err) == KindValidation }

// conflicts are validation failures against existing state
var conflictCodes = map[Code]bool{
	CodeDuplicateIC:       true,
	CodeDuplicateUsername: true,
	CodeAlreadyReturned:   true,
	CodeItemAlreadyBooked: true,
	CodeHasActiveRentals:  true,
	CodeDressRented:       true,
}

// HTTPStatus maps err onto a response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation:
		code := CodeOf(err)
		switch {
		case conflictCodes[code]:
			return http.StatusConflict
		case code == CodeInvalidCredentials, code == CodeTOTPRequired, code == CodeInvalidTOTP:
			return http.StatusUnauthorized
		case code == CodeAccountInactive:
			return http.StatusForbidden
		}
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
