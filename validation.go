package accounts

import (
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/nyaruka/phonenumbers"
)

// Validate will run validation rules for the signup payload
func (i SignupInput) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(
			&i.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&i.Password,
			validation.Required,
		),
		validation.Field(
			&i.Role,
			validation.In(RoleUser, RoleAdmin, RoleOwner),
		),
	)
}

// DefaultPhoneRegion is the region used to parse national phone numbers.
var DefaultPhoneRegion = "US"

// NormalizePhone parses and normalizes a phone number to E.164. Invalid
// input is a validation error, not a parse panic.
func NormalizePhone(raw, region string) (string, error) {
	if region == "" {
		region = DefaultPhoneRegion
	}

	num, err := phonenumbers.Parse(raw, region)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryValidation, "invalid phone number").
			WithCode(goerrors.CodeBadRequest)
	}

	if !phonenumbers.IsValidNumber(num) {
		return "", goerrors.New("phone number is not valid for region "+region, goerrors.CategoryValidation).
			WithCode(goerrors.CodeBadRequest)
	}

	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field -> message map for callers that render forms or JSON errors.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	if verrs, ok := err.(validation.Errors); ok {
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}

	out["payload"] = err.Error()
	return out
}
