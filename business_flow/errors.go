package businessflow

import (
	"errors"
	"fmt"
	"strings"
)

// Business flow error constants
var (
	// Pricing rule errors
	ErrRuleValidationFailed   = errors.New("pricing rule validation failed")
	ErrPricingRuleNotFound    = errors.New("pricing rule not found")
	ErrPricingRuleDuplicateID = errors.New("pricing rule id already exists")
	ErrRuleFileInvalid        = errors.New("rule file is invalid")
	ErrUnsupportedRuleFormat  = errors.New("unsupported rule file format")
	ErrRuleIDMismatch         = errors.New("rule id cannot be changed")

	// Quote errors
	ErrQuoteInputInvalid   = errors.New("quote input is invalid")
	ErrInvalidAsOf         = errors.New("as_of must be a date or RFC 3339 timestamp")
	ErrInvalidDateFilter   = errors.New("date filters must be dates or RFC 3339 timestamps")
	ErrUpstreamUnavailable = errors.New("garment cost upstream unavailable")

	// Filter errors
	ErrInvalidPage           = errors.New("page must be at least 1")
	ErrInvalidPageSize       = errors.New("page size must be between 1 and 100")
	ErrStartDateAfterEndDate = errors.New("start date cannot be after end date")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

// ErrorCode returns the code of the outermost BusinessError in the chain, if any.
func ErrorCode(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

func IsRuleValidationFailed(err error) bool {
	return errors.Is(err, ErrRuleValidationFailed)
}

func IsPricingRuleNotFound(err error) bool {
	return errors.Is(err, ErrPricingRuleNotFound)
}

func IsPricingRuleDuplicateID(err error) bool {
	return errors.Is(err, ErrPricingRuleDuplicateID)
}

func IsRuleFileInvalid(err error) bool {
	return errors.Is(err, ErrRuleFileInvalid)
}

func IsUnsupportedRuleFormat(err error) bool {
	return errors.Is(err, ErrUnsupportedRuleFormat)
}

func IsRuleIDMismatch(err error) bool {
	return errors.Is(err, ErrRuleIDMismatch)
}

func IsQuoteInputInvalid(err error) bool {
	return errors.Is(err, ErrQuoteInputInvalid)
}

func IsInvalidAsOf(err error) bool {
	return errors.Is(err, ErrInvalidAsOf)
}

func IsInvalidDateFilter(err error) bool {
	return errors.Is(err, ErrInvalidDateFilter)
}

func IsUpstreamUnavailable(err error) bool {
	return errors.Is(err, ErrUpstreamUnavailable)
}

func IsInvalidPage(err error) bool {
	return errors.Is(err, ErrInvalidPage)
}

func IsInvalidPageSize(err error) bool {
	return errors.Is(err, ErrInvalidPageSize)
}

func IsStartDateAfterEndDate(err error) bool {
	return errors.Is(err, ErrStartDateAfterEndDate)
}

// IsClientError reports whether err was caused by the request rather than the service.
func IsClientError(err error) bool {
	return IsRuleValidationFailed(err) ||
		IsRuleFileInvalid(err) ||
		IsUnsupportedRuleFormat(err) ||
		IsRuleIDMismatch(err) ||
		IsQuoteInputInvalid(err) ||
		IsInvalidAsOf(err) ||
		IsInvalidDateFilter(err) ||
		IsInvalidPage(err) ||
		IsInvalidPageSize(err) ||
		IsStartDateAfterEndDate(err)
}

// RuleValidationError carries every problem found in a rejected rule or rule file
type RuleValidationError struct {
	Errors []string
}

func (e *RuleValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrRuleValidationFailed.Error(), strings.Join(e.Errors, "; "))
}

func (e *RuleValidationError) Unwrap() error {
	return ErrRuleValidationFailed
}

// ValidationErrors returns the individual problems of a RuleValidationError in err's chain
func ValidationErrors(err error) []string {
	var ve *RuleValidationError
	if errors.As(err, &ve) {
		return ve.Errors
	}
	return nil
}
