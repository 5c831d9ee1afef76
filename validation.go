package main

import (
	"stockroom/internal/validation"
)

// Thin wrappers over internal/validation so handlers can call the helpers
// without qualifying every name or threading the db handle around.

type ValidationError = validation.ValidationError
type ValidationErrors = validation.ValidationErrors

var (
	validTransactionTypes  = validation.ValidTransactionTypes
	validAssetStatuses     = validation.ValidAssetStatuses
	validMaintenanceTypes  = validation.ValidMaintenanceTypes
	validMaintenanceStates = validation.ValidMaintenanceStates
	validStaffRoles        = validation.ValidStaffRoles
	validUserRoles         = validation.ValidUserRoles
	validSavedViewEntities = validation.ValidSavedViewEntities
)

func requireField(ve *ValidationErrors, field, value string) {
	validation.RequireField(ve, field, value)
}

func validateEnum(ve *ValidationErrors, field, value string, allowed []string) {
	validation.ValidateEnum(ve, field, value, allowed)
}

func validateDate(ve *ValidationErrors, field, value string) {
	validation.ValidateDate(ve, field, value)
}

func validatePositiveFloat(ve *ValidationErrors, field string, value float64) {
	validation.ValidatePositiveFloat(ve, field, value)
}

func validateNonNegativeFloat(ve *ValidationErrors, field string, value float64) {
	validation.ValidateNonNegativeFloat(ve, field, value)
}

func validateMaxQuantity(ve *ValidationErrors, field string, value float64) {
	validation.ValidateMaxQuantity(ve, field, value)
}

func validateMaxPrice(ve *ValidationErrors, field string, value float64) {
	validation.ValidateMaxPrice(ve, field, value)
}

func validateEmail(ve *ValidationErrors, field, value string) {
	validation.ValidateEmail(ve, field, value)
}

func validateMaxLength(ve *ValidationErrors, field, value string, max int) {
	validation.ValidateMaxLength(ve, field, value, max)
}

func validateForeignKey(ve *ValidationErrors, field, table, id string) {
	validation.ValidateForeignKey(ve, db, field, table, id)
}

func hasReferences(id string, refs []struct{ Table, Col string }) bool {
	return validation.HasReferences(db, id, refs)
}
