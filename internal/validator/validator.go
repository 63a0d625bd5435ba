// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"stockfolio/internal/date"
	"stockfolio/internal/entitlement"
	"stockfolio/internal/ticker"
)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("asset_type", validateAssetType)
		_ = v.RegisterValidation("distribution_type", validateDistributionType)
		_ = v.RegisterValidation("iso_date", validateISODate)
		_ = v.RegisterValidation("ticker", validateTicker)
	}
}

func validateAssetType(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case ticker.AssetStock, ticker.AssetFII, ticker.AssetBDR, ticker.AssetUnit, ticker.AssetETF:
		return true
	}
	return false
}

func validateDistributionType(fl validator.FieldLevel) bool {
	switch entitlement.Type(fl.Field().String()) {
	case entitlement.TypeDividend, entitlement.TypeInterestOnEquity:
		return true
	}
	return false
}

func validateISODate(fl validator.FieldLevel) bool {
	_, err := date.Parse(fl.Field().String())
	return err == nil
}

func validateTicker(fl validator.FieldLevel) bool {
	_, err := ticker.Canonicalize(fl.Field().String())
	return err == nil
}
