package checkout

import (
	"regexp"
	"strings"
	"time"

	"github.com/RomanDenysov/kromka-sub000/internal/entity"
	"github.com/RomanDenysov/kromka-sub000/pkg/errorbank"
)

// Stable business-rule codes surfaced to clients. These are part of the API
// contract and must not change.
const (
	CodeOrdersDisabled       = "ORDERS_DISABLED"
	CodeInvalidName          = "INVALID_NAME"
	CodeInvalidEmail         = "INVALID_EMAIL"
	CodeInvalidPhone         = "INVALID_PHONE"
	CodeBadRequest           = "BAD_REQUEST"
	CodeStoreNotFound        = "STORE_NOT_FOUND"
	CodeEmptyCart            = "EMPTY_CART"
	CodeInvalidProducts      = "INVALID_PRODUCTS"
	CodeInvalidPaymentMethod = "INVALID_PAYMENT_METHOD"
)

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9 ()-]{6,20}$`)
)

const pickupDateLayout = "2006-01-02"

// validateContactInfo checks the submitted name/email/phone. Contact info is
// required even for signed-in users; the order stores a fresh copy.
func validateContactInfo(name, email, phone string) *errorbank.AppError {
	if strings.TrimSpace(name) == "" {
		return errorbank.Unprocessable("name is required", errorbank.WithCode(CodeInvalidName))
	}
	if !emailPattern.MatchString(strings.TrimSpace(email)) {
		return errorbank.Unprocessable("a valid email is required", errorbank.WithCode(CodeInvalidEmail))
	}
	if !phonePattern.MatchString(strings.TrimSpace(phone)) {
		return errorbank.Unprocessable("a valid phone number is required", errorbank.WithCode(CodeInvalidPhone))
	}
	return nil
}

// validatePickupDate parses the pickup date and requires it to be strictly
// later than today; same-day pickup is not supported.
func validatePickupDate(raw string, now time.Time) (time.Time, *errorbank.AppError) {
	date, err := time.Parse(pickupDateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, errorbank.BadRequest("pickup date must be YYYY-MM-DD",
			errorbank.WithCode(CodeBadRequest), errorbank.WithCause(err))
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if !date.After(today) {
		return time.Time{}, errorbank.BadRequest("pickup date must be after today",
			errorbank.WithCode(CodeBadRequest))
	}
	return date, nil
}

// validatePaymentMethod enforces method eligibility per channel: invoice is
// wholesale-only, in-store payment is retail-only.
func validatePaymentMethod(channel entity.Channel, method entity.PaymentMethod) *errorbank.AppError {
	switch channel {
	case entity.ChannelB2C:
		if method == entity.PaymentMethodInStore {
			return nil
		}
	case entity.ChannelB2B:
		if method == entity.PaymentMethodInvoice {
			return nil
		}
	}
	return errorbank.Unprocessable("payment method not available for this channel",
		errorbank.WithCode(CodeInvalidPaymentMethod))
}
