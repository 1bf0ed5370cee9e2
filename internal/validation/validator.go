// Sharewarden - Plex Account Sharing Enforcement
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sharewarden

// Package validation checks decoded Plex records with go-playground/validator.
//
// A single validator instance is shared process-wide; it caches struct
// metadata so repeated validation of session records stays cheap.
//
//	if err := validation.ValidateStruct(&session); err != nil {
//	    logging.Warn().Strs("fields", err.Fields()).Msg("Dropping malformed session")
//	}
package validation

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// FieldError describes one failed validation rule.
type FieldError struct {
	namespace string
	field     string
	tag       string
	param     string
	message   string
}

// Namespace is the dotted path to the field, e.g. "PlexSession.Player.Address".
func (e FieldError) Namespace() string { return e.namespace }

// Field is the struct field name.
func (e FieldError) Field() string { return e.field }

// Tag is the rule that failed.
func (e FieldError) Tag() string { return e.tag }

// Param is the rule parameter ("" when the rule has none).
func (e FieldError) Param() string { return e.param }

func (e FieldError) Error() string { return e.message }

// StructError collects every failed rule for one value.
type StructError struct {
	errors []FieldError
}

// Errors returns the individual failures.
func (se *StructError) Errors() []FieldError {
	return se.errors
}

// Fields returns the namespaces of the failing fields.
func (se *StructError) Fields() []string {
	out := make([]string, len(se.errors))
	for i, fe := range se.errors {
		out[i] = fe.namespace
	}
	return out
}

func (se *StructError) Error() string {
	if len(se.errors) == 0 {
		return "validation failed"
	}
	messages := make([]string, len(se.errors))
	for i, fe := range se.errors {
		messages[i] = fe.message
	}
	return strings.Join(messages, "; ")
}

// GetValidator returns the shared validator instance.
func GetValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// ValidateStruct validates s. It returns nil when s is valid.
func ValidateStruct(s any) *StructError {
	err := GetValidator().Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return &StructError{errors: []FieldError{{
			field:   "unknown",
			tag:     "unknown",
			message: err.Error(),
		}}}
	}

	fieldErrors := make([]FieldError, len(validationErrs))
	for i, fe := range validationErrs {
		fieldErrors[i] = FieldError{
			namespace: fe.Namespace(),
			field:     fe.Field(),
			tag:       fe.Tag(),
			param:     fe.Param(),
			message:   translateError(fe),
		}
	}
	return &StructError{errors: fieldErrors}
}

var errorMessageTemplates = map[string]string{
	"required": "%s is required",
	"ip":       "%s must be a valid IP address",
	"ipv4":     "%s must be a valid IPv4 address",
	"url":      "%s must be a valid URL",
}

var errorMessageWithParam = map[string]string{
	"oneof": "%s must be one of: %s",
	"gte":   "%s must be greater than or equal to %s",
	"lte":   "%s must be less than or equal to %s",
	"min":   "%s must be at least %s",
	"max":   "%s must be at most %s",
}

func translateError(fe validator.FieldError) string {
	name := fe.Namespace()
	if tmpl, ok := errorMessageTemplates[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, name)
	}
	if tmpl, ok := errorMessageWithParam[fe.Tag()]; ok {
		return fmt.Sprintf(tmpl, name, fe.Param())
	}
	return fmt.Sprintf("%s failed %s validation", name, fe.Tag())
}
