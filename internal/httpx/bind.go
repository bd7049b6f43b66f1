package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/agrolink/tradepost/internal/fault"
)

// decodeValid binds the JSON body into out and runs struct validation.
// Failures come back as fault.Validation so writeError maps them to 400.
func decodeValid(r *http.Request, v *validatorv10.Validate, out any) error {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return fault.Validation("invalid request body")
	}
	if err := v.Struct(out); err != nil {
		var ve validatorv10.ValidationErrors
		if errors.As(err, &ve) {
			fields := make([]string, 0, len(ve))
			for _, fe := range ve {
				fields = append(fields, fe.StructNamespace())
			}
			return fault.Validation("validation failed: %s", strings.Join(fields, ", "))
		}
		return fault.Validation("validation failed")
	}
	return nil
}
