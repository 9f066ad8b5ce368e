// Package inputval validates request payloads using waffle/pantry/validate.
//
// Define an input struct with validate tags, decode the request into it, and
// call Validate to get user-friendly error messages.
//
// Example:
//
//	type loginInput struct {
//	    Username string `json:"username" validate:"required" label:"Username"`
//	    Password string `json:"password" validate:"required" label:"Password"`
//	}
//
//	if res := inputval.Validate(input); res.HasErrors() {
//	    jsonutil.BadRequest(w, "Validation failed", res.First())
//	    return
//	}
package inputval

import (
	"net/mail"
	"net/url"
	"reflect"
	"strings"
	"sync"

	"github.com/dalemusser/waffle/pantry/validate"
	"github.com/vicarhk/vicarapi/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Result holds validation results with user-friendly messages.
type Result struct {
	Errors []FieldError
}

// FieldError represents a validation error for a single field.
type FieldError struct {
	Field   string
	Label   string
	Message string
}

// HasErrors returns true if there are any validation errors.
func (r *Result) HasErrors() bool {
	return len(r.Errors) > 0
}

// First returns the first error message, or empty string if no errors.
func (r *Result) First() string {
	if len(r.Errors) > 0 {
		return r.Errors[0].Message
	}
	return ""
}

// Fields returns the errors keyed by field name.
func (r *Result) Fields() map[string]string {
	out := make(map[string]string, len(r.Errors))
	for _, e := range r.Errors {
		out[e.Field] = e.Message
	}
	return out
}

var (
	customValidator *validate.Validator
	validatorOnce   sync.Once
)

func getValidator() *validate.Validator {
	validatorOnce.Do(func() {
		customValidator = validate.New(validate.WithStopOnFirstError())

		customValidator.RegisterRuleFunc("role", func(value any) bool {
			if s, ok := value.(string); ok {
				return models.IsValidRole(strings.ToLower(strings.TrimSpace(s)))
			}
			return false
		}, "role")

		customValidator.RegisterRuleFunc("bannerpage", func(value any) bool {
			if s, ok := value.(string); ok {
				return models.IsValidBannerPage(models.BannerPage(s))
			}
			return false
		}, "bannerpage")

		customValidator.RegisterRuleFunc("httpurl", func(value any) bool {
			if s, ok := value.(string); ok {
				return IsValidHTTPURL(s)
			}
			return false
		}, "httpurl")

		// linkurl: empty, an http(s) URL, or a site-relative path
		customValidator.RegisterRuleFunc("linkurl", func(value any) bool {
			if s, ok := value.(string); ok {
				return IsValidLink(s)
			}
			return false
		}, "linkurl")

		customValidator.RegisterRuleFunc("objectid", func(value any) bool {
			if s, ok := value.(string); ok {
				return IsValidObjectID(s)
			}
			return false
		}, "objectid")
	})
	return customValidator
}

// Validate validates a struct and returns a Result with user-friendly errors.
// Fields use `validate` tags for rules and optional `label` tags for
// user-friendly names.
//
// Built-in rules (from pantry/validate): required, email, oneof, min, max.
// Rules registered here: role, bannerpage, httpurl, linkurl, objectid.
func Validate(s any) *Result {
	result := &Result{}

	err := getValidator().Struct(s)
	if err == nil {
		return result
	}

	labels := getFieldLabels(s)

	if errs, ok := err.(validate.Errors); ok {
		for _, e := range errs {
			label := labels[e.Field]
			if label == "" {
				label = e.Field
			}
			result.Errors = append(result.Errors, FieldError{
				Field:   e.Field,
				Label:   label,
				Message: formatMessage(label, e.Rule, e.Param),
			})
		}
	}

	return result
}

// getFieldLabels extracts the "label" tag from struct fields, keyed by the
// json name when there is one.
func getFieldLabels(s any) map[string]string {
	labels := make(map[string]string)

	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return labels
	}

	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)

		fieldName := field.Name
		if jsonTag := field.Tag.Get("json"); jsonTag != "" {
			name, _, _ := strings.Cut(jsonTag, ",")
			if name != "" && name != "-" {
				fieldName = name
			}
		}

		if label := field.Tag.Get("label"); label != "" {
			labels[fieldName] = label
		}
	}

	return labels
}

func formatMessage(label, rule, param string) string {
	switch rule {
	case "required":
		return label + " is required."
	case "email":
		return "Please enter a valid email address."
	case "oneof", "enum":
		return label + " must be one of: " + strings.ReplaceAll(param, " ", ", ") + "."
	case "min":
		return label + " must be at least " + param + " characters."
	case "max":
		return label + " must be at most " + param + " characters."
	case "role":
		return label + " must be one of: " + strings.Join(models.AllRoles(), ", ") + "."
	case "bannerpage":
		pages := make([]string, 0, len(models.AllBannerPages()))
		for _, p := range models.AllBannerPages() {
			pages = append(pages, string(p))
		}
		return label + " must be one of: " + strings.Join(pages, ", ") + "."
	case "httpurl":
		return label + " must be a valid URL starting with http:// or https://."
	case "linkurl":
		return label + " must be a URL or a path starting with /."
	case "objectid":
		return label + " is not a valid ID."
	default:
		return label + " is invalid."
	}
}

// IsValidEmail checks if the given string is a bare RFC 5322 address.
func IsValidEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	// ParseAddress accepts "Name <email>", so require the bare form.
	return addr.Address == email && strings.Contains(email[strings.LastIndex(email, "@"):], ".")
}

// IsValidHTTPURL checks if the given string is a valid http:// or https:// URL.
func IsValidHTTPURL(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// IsValidLink accepts an empty string, an http(s) URL, or a site-relative path.
func IsValidLink(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	if strings.HasPrefix(s, "/") && !strings.HasPrefix(s, "//") {
		_, err := url.Parse(s)
		return err == nil
	}
	return IsValidHTTPURL(s)
}

// IsValidObjectID checks if the given string is a valid MongoDB ObjectID hex.
func IsValidObjectID(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	_, err := primitive.ObjectIDFromHex(s)
	return err == nil
}
