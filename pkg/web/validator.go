package web

import (
	"errors"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/appdotbuilder/personal-finance-manager-1934/internal/domain"
)

// ValidAccountType validates whether the account type is supported.
var ValidAccountType validator.Func = func(fl validator.FieldLevel) bool {
	return domain.AccountType(fl.Field().String()).Valid()
}

// ValidAccountSubtype validates whether the account subtype is supported.
var ValidAccountSubtype validator.Func = func(fl validator.FieldLevel) bool {
	return domain.AccountSubtype(fl.Field().String()).Valid()
}

// ValidAmount validates a positive money amount with at most 2 fraction digits
// that fits domain.MaxAmount.
var ValidAmount validator.Func = func(fl validator.FieldLevel) bool {
	d, ok := money(fl.Field().String())
	return ok && d.IsPositive()
}

// ValidBalance validates a non negative money amount with at most 2 fraction digits
// that fits domain.MaxAmount.
var ValidBalance validator.Func = func(fl validator.FieldLevel) bool {
	d, ok := money(fl.Field().String())
	return ok && !d.IsNegative()
}

// ValidDate validates a calendar date in the YYYY-MM-DD layout.
var ValidDate validator.Func = func(fl validator.FieldLevel) bool {
	_, err := time.Parse(domain.DateLayout, fl.Field().String())
	return err == nil
}

func money(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}

	return d, d.Equal(d.Round(domain.AmountScale)) && d.Abs().LessThanOrEqual(domain.MaxAmount)
}

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterValidators registers the custom binding tags with the gin validator engine.
// It is safe to call more than once.
func RegisterValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerErr = errors.New("unexpected gin validator engine")
			return
		}

		validations := map[string]validator.Func{
			"accounttype":    ValidAccountType,
			"accountsubtype": ValidAccountSubtype,
			"amount":         ValidAmount,
			"balance":        ValidBalance,
			"date":           ValidDate,
		}

		for tag, fn := range validations {
			if err := v.RegisterValidation(tag, fn); err != nil {
				registerErr = err
				return
			}
		}
	})

	return registerErr
}

// BindingError builds the error response for a failed request binding.
func BindingError(err error) Response {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		return ValidationError(ve)
	}

	return Error(err)
}
