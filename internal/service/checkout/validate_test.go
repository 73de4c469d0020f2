package checkout

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RomanDenysov/kromka-sub000/internal/entity"
)

func TestValidateContactInfo(t *testing.T) {
	tests := []struct {
		name     string
		custName string
		email    string
		phone    string
		wantCode string
	}{
		{"valid", "Jana Novak", "jana@example.com", "+421 900 123 456", ""},
		{"blank name", "   ", "jana@example.com", "+421900123456", CodeInvalidName},
		{"missing at sign", "Jana", "jana.example.com", "+421900123456", CodeInvalidEmail},
		{"missing domain dot", "Jana", "jana@example", "+421900123456", CodeInvalidEmail},
		{"empty email", "Jana", "", "+421900123456", CodeInvalidEmail},
		{"phone too short", "Jana", "jana@example.com", "12345", CodeInvalidPhone},
		{"phone with letters", "Jana", "jana@example.com", "call me maybe", CodeInvalidPhone},
		{"empty phone", "Jana", "jana@example.com", "", CodeInvalidPhone},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			appErr := validateContactInfo(tc.custName, tc.email, tc.phone)
			if tc.wantCode == "" {
				assert.Nil(t, appErr)
				return
			}
			require.NotNil(t, appErr)
			assert.Equal(t, tc.wantCode, appErr.Code())
		})
	}
}

func TestValidatePickupDate(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"tomorrow is fine", "2026-03-16", false},
		{"far future is fine", "2026-12-24", false},
		{"today is rejected", "2026-03-15", true},
		{"yesterday is rejected", "2026-03-14", true},
		{"garbage is rejected", "next tuesday", true},
		{"wrong layout is rejected", "16.03.2026", true},
		{"empty is rejected", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			date, appErr := validatePickupDate(tc.raw, now)
			if tc.wantErr {
				require.NotNil(t, appErr)
				assert.Equal(t, CodeBadRequest, appErr.Code())
				return
			}
			assert.Nil(t, appErr)
			assert.Equal(t, tc.raw, date.Format(pickupDateLayout))
		})
	}
}

func TestValidatePaymentMethod(t *testing.T) {
	tests := []struct {
		name    string
		channel entity.Channel
		method  entity.PaymentMethod
		wantErr bool
	}{
		{"retail pays in store", entity.ChannelB2C, entity.PaymentMethodInStore, false},
		{"wholesale pays by invoice", entity.ChannelB2B, entity.PaymentMethodInvoice, false},
		{"retail cannot use invoice", entity.ChannelB2C, entity.PaymentMethodInvoice, true},
		{"wholesale cannot pay in store", entity.ChannelB2B, entity.PaymentMethodInStore, true},
		{"unknown method", entity.ChannelB2C, entity.PaymentMethod("card"), true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			appErr := validatePaymentMethod(tc.channel, tc.method)
			if tc.wantErr {
				require.NotNil(t, appErr)
				assert.Equal(t, CodeInvalidPaymentMethod, appErr.Code())
				return
			}
			assert.Nil(t, appErr)
		})
	}
}
