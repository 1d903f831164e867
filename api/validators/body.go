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
	"github.com/shopspring/decimal"

	pkgerrors "github.com/littlelight-store/backend/pkg/errors"
)

const maxBodyBytes = 1 << 20

var validate = newValidator()

// Field errors are keyed by JSON name. Money validates as float64 so gte/lte
// apply to decimals.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := d.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
	return v
}

// DecodeJSONBody reads one JSON object of at most 1 MiB into dest, then runs
// its validate tags. Unknown fields and trailing data are rejected. w may be
// nil; with it the server also closes the connection after an oversize body.
func DecodeJSONBody(w http.ResponseWriter, r *http.Request, dest any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() {
		_, _ = io.Copy(io.Discard, body)
	}()
	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return decodeError(err)
	}
	if decoder.More() {
		return invalidBody("body", "must hold a single JSON object")
	}
	return Struct(dest)
}

// Struct runs validate tags on an already decoded value.
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := make(map[string]string, len(fields))
	for _, fe := range fields {
		details[fe.Field()] = ruleMessage(fe)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
}

func invalidBody(field, problem string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid request body").WithDetails(map[string]string{field: problem})
}

func decodeError(err error) error {
	var (
		tooLarge   *http.MaxBytesError
		syntax     *json.SyntaxError
		wrongType  *json.UnmarshalTypeError
		unknownKey = "json: unknown field "
	)
	switch {
	case errors.As(err, &tooLarge):
		return pkgerrors.New(pkgerrors.CodeValidation, "request body too large")
	case errors.Is(err, io.EOF):
		return invalidBody("body", "is required")
	case errors.As(err, &syntax):
		return invalidBody("body", fmt.Sprintf("malformed JSON at offset %d", syntax.Offset))
	case errors.As(err, &wrongType) && wrongType.Field != "":
		return invalidBody(wrongType.Field, "must be "+wrongType.Type.String()+", not "+wrongType.Value)
	case strings.HasPrefix(err.Error(), unknownKey):
		return invalidBody(strings.Trim(strings.TrimPrefix(err.Error(), unknownKey), `"`), "is not allowed")
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").WithDetails(map[string]string{"body": err.Error()})
}

var ruleMessages = map[string]string{
	"required": "is required",
	"email":    "must be a valid email",
	"uuid":     "must be a uuid",
	"min":      "must be at least %s",
	"max":      "must be at most %s",
	"gte":      "must be greater than or equal to %s",
	"lte":      "must be less than or equal to %s",
	"oneof":    "must be one of %s",
	"dive":     "has an invalid element",
}

func ruleMessage(fe validator.FieldError) string {
	msg, ok := ruleMessages[fe.Tag()]
	if !ok {
		return "is invalid"
	}
	if strings.Contains(msg, "%s") {
		return fmt.Sprintf(msg, fe.Param())
	}
	return msg
}
