package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validationError turns validator output into the first user-facing
// ValidationError.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Message: "Invalid request"}
	}
	fe := verrs[0]
	return &ValidationError{Field: fe.Field(), Message: fieldMessage(fe)}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "Mode":
		return "Mode must be solo or duo"
	case "PartnerID":
		return "Choose a partner for a duo challenge"
	case "Value":
		return "The goal must be greater than 0"
	case "ActivityTypes":
		return "Choose at least one activity type"
	case "Date":
		return "The activity needs a date"
	case "Type":
		return fmt.Sprintf("Unknown type %q", fe.Value())
	}
	if strings.HasPrefix(fe.Field(), "ActivityTypes[") {
		return fmt.Sprintf("Unknown activity type %q", fe.Value())
	}
	switch fe.Tag() {
	case "oneof":
		return fmt.Sprintf("Unknown %s %q", fe.Field(), fe.Value())
	case "gte", "gt":
		return fmt.Sprintf("%s cannot be negative", fe.Field())
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}
