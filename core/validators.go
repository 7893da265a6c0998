package core

import (
	"reflect"
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/shopspring/decimal"
)

var (
	// custom validation tags & texts
	numericCodeTag   = "numcode"
	numericCodeText  = "{0} must only contain digits"
	numericCodeRegex = regexp.MustCompile(`^[0-9]+$`)

	positiveAmountTag  = "positive_amount"
	positiveAmountText = "{0} must be greater than 0"
	nonNegAmountTag    = "nonneg_amount"
	nonNegAmountText   = "{0} cannot be negative"

	phoneTag  = "e164"
	phoneText = "{0} must be an international phone number like +243810000000"

	oneOfTag  = "oneof"
	oneOfText = "{0} must be one of: {1}"

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"
)

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// money fields are validated on their exact decimal text
	validate.RegisterCustomTypeFunc(func(v reflect.Value) interface{} {
		if d, ok := v.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	// register custom validators
	_ = validate.RegisterValidation(numericCodeTag, numericCodeValidation)
	RegisterCustomTranslation(validate, translator, numericCodeTag, numericCodeText)

	_ = validate.RegisterValidation(positiveAmountTag, amountValidation(decimal.Decimal.IsPositive))
	RegisterCustomTranslation(validate, translator, positiveAmountTag, positiveAmountText)
	_ = validate.RegisterValidation(nonNegAmountTag, amountValidation(func(d decimal.Decimal) bool { return !d.IsNegative() }))
	RegisterCustomTranslation(validate, translator, nonNegAmountTag, nonNegAmountText)

	RegisterCustomTranslation(validate, translator, phoneTag, phoneText, true)
	registerParamTranslation(validate, translator, oneOfTag, oneOfText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// registerParamTranslation overrides tag's text with one that lists the tag's space separated param.
func registerParamTranslation(validate *validator.Validate, translator ut.Translator, tag, text string) {
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field(), strings.Join(strings.Fields(fe.Param()), ", "))
			return s
		},
	)
}

// Custom Global Validators

// numericCodeValidation only allows digits.
func numericCodeValidation(fl validator.FieldLevel) bool {
	return numericCodeRegex.MatchString(fl.Field().String())
}

func amountValidation(ok func(decimal.Decimal) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && ok(d)
	}
}
