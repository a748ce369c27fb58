package provisioner

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var draftValidator *validator.Validate

// V returns the validator instance used for tenant drafts.
func V() *validator.Validate {
	if draftValidator == nil {
		draftValidator = validator.New(validator.WithRequiredStructEnabled())
	}
	return draftValidator
}

// subdomains are DNS labels: lowercase alphanumerics and hyphens, no edge
// hyphens
var validSubdomainRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

func subdomainValidator(fl validator.FieldLevel) bool {
	return validSubdomainRegex.MatchString(fl.Field().String())
}

func init() {
	V().RegisterValidation("subdomainValidator", subdomainValidator)
}

// validationErrMsg renders a field error in a form safe to return to admin
// clients.
func validationErrMsg(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "subdomainValidator":
		return fe.Field() + " must be a lowercase DNS label"
	case "fqdn":
		return fe.Field() + " must be a fully qualified domain name"
	case "max":
		return fe.Field() + " exceeds maximum length"
	case "gte":
		return fe.Field() + " must be positive"
	default:
		return fe.Field() + " is invalid"
	}
}
