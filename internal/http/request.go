package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"fondi/internal/core"
)

// errMalformedBody marks bodies the JSON decoder rejected so writeError can
// answer 400 instead of treating the failure as internal.
var errMalformedBody = errors.New("malformed request body")

// validate is shared across handlers; validator instances cache struct
// metadata and are safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// decodeBody parses a JSON request body into dst and runs struct
// validation. Unknown fields are rejected to catch client typos early.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	if err := validate.Struct(dst); err != nil {
		return err
	}
	return nil
}

// pathID parses the {id} path segment of a request.
func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

// pathMonthKey parses the {month} path segment of a request.
func pathMonthKey(r *http.Request) (core.MonthKey, error) {
	return core.ParseMonthKey(r.PathValue("month"))
}

// queryMonthKey parses a required month query parameter.
func queryMonthKey(r *http.Request) (core.MonthKey, error) {
	return core.ParseMonthKey(r.URL.Query().Get("month"))
}
