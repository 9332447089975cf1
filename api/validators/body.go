package validators

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	pkgerrors "github.com/angelmondragon/ecofinds-storefront/pkg/errors"
)

const maxJSONBodyBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name, _, _ := strings.Cut(f.Tag.Get("json"), ","); name != "" && name != "-" {
			return name
		}
		return f.Name
	})
	// document ids travel in URL paths and storage keys
	_ = v.RegisterValidation("docid", func(fl validator.FieldLevel) bool {
		id := fl.Field().String()
		return id == strings.TrimSpace(id) && id != "" && !strings.ContainsAny(id, "/?#")
	})
	return v
}

// Decode reads exactly one JSON object into a T, rejecting unknown fields,
// then validates it.
func Decode[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	return decode[T](w, r, false)
}

// DecodeOptional is Decode that treats an empty body as the zero T.
func DecodeOptional[T any](w http.ResponseWriter, r *http.Request) (T, error) {
	return decode[T](w, r, true)
}

func decode[T any](w http.ResponseWriter, r *http.Request, allowEmpty bool) (T, error) {
	var dest T
	body := http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	defer func() { _, _ = io.Copy(io.Discard, body) }()

	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	err := dec.Decode(&dest)
	switch {
	case err == nil:
		if dec.More() {
			return dest, pkgerrors.New(pkgerrors.CodeValidation, "request body must hold a single JSON object")
		}
	case allowEmpty && errors.Is(err, io.EOF):
	default:
		return dest, bodyError(err)
	}

	if err := validate.Struct(&dest); err != nil {
		return dest, fieldErrors(err)
	}
	return dest, nil
}

func bodyError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "request body exceeds %d bytes", tooLarge.Limit)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").
		WithDetails(map[string]any{"error": err.Error()})
}

func fieldErrors(err error) error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		details[fe.Field()] = describe(fe)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gte":
		return "must be greater than or equal to " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "docid":
		return "is not a valid id"
	default:
		return fmt.Sprintf("failed %s", fe.Tag())
	}
}
