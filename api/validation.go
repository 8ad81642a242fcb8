package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"crowdfundr/sdk"
)

const maxBodyBytes = 1 << 16

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// address: anything sdk.Address accepts, zero address excluded
	_ = v.RegisterValidation("address", func(fl validator.FieldLevel) bool {
		a := sdk.Address(fl.Field().String()).Normalize()
		return a.IsValid() && !a.IsZero()
	})
	// amount: a unit amount with at most 18 decimals, range checks belong to the campaign
	_ = v.RegisterValidation("amount", func(fl validator.FieldLevel) bool {
		_, err := sdk.ParseAmount(fl.Field().String())
		return err == nil
	})
	return v
}

// decode reads a JSON body into dst and runs struct validation on it.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return badRequest("INVALID_BODY", "request body is not valid JSON", err)
	}
	if err := s.validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			fe := ve[0]
			code := "INVALID_ARGUMENT"
			switch fe.Tag() {
			case "address":
				code = "INVALID_ADDRESS"
			case "amount":
				code = "INVALID_AMOUNT"
			}
			return badRequest(code, fmt.Sprintf("field '%s' failed validation: %s", fe.Field(), fe.Tag()), err)
		}
		return badRequest("INVALID_ARGUMENT", "validation failed", err)
	}
	return nil
}
