package validator

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	govalidator "github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/stemsi/curriculum-backend/internal/model"
)

var (
	// trans is the singleton English translator for validation errors.
	trans ut.Translator

	docValidator *govalidator.Validate
	setupOnce    sync.Once
)

// unionTypes lists every OneOrMany instantiation used by the model.
var unionTypes = []interface{}{
	model.OneOrMany[string]{},
	model.OneOrMany[float64]{},
	model.OneOrMany[model.Availability]{},
	model.OneOrMany[model.Frequency]{},
}

type validationValuer interface {
	ValidationValue() any
}

// Setup builds the document validator and registers English translations on
// both it and Gin's binding engine. Safe to call more than once.
func Setup() {
	setupOnce.Do(func() {
		enLocale := en.New()
		uni := ut.New(enLocale, enLocale)
		trans, _ = uni.GetTranslator("en")

		docValidator = govalidator.New(govalidator.WithRequiredStructEnabled())
		configure(docValidator)

		if v, ok := binding.Validator.Engine().(*govalidator.Validate); ok {
			configure(v)
		}
	})
}

func configure(v *govalidator.Validate) {
	// Use JSON tag name for field names in error messages.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// A OneOrMany is validated as its list of values so that "required"
	// means present and "dive" reaches every element of either form.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if u, ok := field.Interface().(validationValuer); ok {
			return u.ValidationValue()
		}
		return nil
	}, unionTypes...)

	en_translations.RegisterDefaultTranslations(v, trans)
}

// FieldError is one rule violation at one field path.
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError collects every violation found in a document.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fe.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Fields returns the violations as field -> message.
func (e *ValidationError) Fields() map[string]string {
	fields := make(map[string]string, len(e.Errors))
	for _, fe := range e.Errors {
		fields[fe.Field] = fe.Message
	}
	return fields
}

// Validate checks a curriculum document (or any part of one) against the
// model's rules. It returns nil or a *ValidationError.
func Validate(v interface{}) error {
	Setup()

	err := docValidator.Struct(v)
	if err == nil {
		return nil
	}

	var ve govalidator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}

	out := &ValidationError{Errors: make([]FieldError, 0, len(ve))}
	for _, fe := range ve {
		field := fieldPath(fe.Namespace())
		msg := fe.Translate(trans)
		if fe.Field() != field {
			msg = strings.Replace(msg, fe.Field(), field, 1)
		}
		out.Errors = append(out.Errors, FieldError{
			Field:   field,
			Rule:    fe.Tag(),
			Message: msg,
		})
	}
	return out
}

// fieldPath drops the root struct name from a validator namespace:
// "Curriculum.courses[0].id" becomes "courses[0].id".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

// TranslateErrors takes a binding/validation error and returns a map of
// field name → human-readable error message. If the error is not a
// validation error, it returns a single-key map with "detail".
func TranslateErrors(err error) map[string]string {
	Setup()

	var doc *ValidationError
	if errors.As(err, &doc) {
		return doc.Fields()
	}

	fields := make(map[string]string)

	var ve govalidator.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			fields[fe.Field()] = fe.Translate(trans)
		}
		return fields
	}

	// Not a validation error (e.g., JSON syntax error).
	fields["detail"] = err.Error()
	return fields
}

// BindQuery binds and validates query parameters into dst.
// Returns nil on success or a translated field error map on failure.
func BindQuery(c *gin.Context, dst interface{}) map[string]string {
	if err := c.ShouldBindQuery(dst); err != nil {
		return TranslateErrors(err)
	}
	return nil
}
