/*
Package req provides helpers for request parsing and data binding.

BindJSON binds HTTP request bodies; BindPayload binds the payload of a websocket
event envelope and runs struct-tag validation on the result.
*/
package req

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"pairchat/internal/pkg/errs"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// BindJSON attempts to bind the JSON data from the HTTP request body to dst.
func BindJSON(r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	if err := validate.Struct(dst); err != nil {
		return errs.NewError(errs.ErrInvalidParams)
	}

	return nil
}

// BindPayload decodes a raw event payload into dst and validates it.
// An absent payload decodes as an empty object so that "required" rules report it.
// Unknown fields are tolerated; clients routinely send extra keys.
func BindPayload(raw json.RawMessage, dst any) *errs.CustomError {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if err := validate.Struct(dst); err != nil {
		return errs.NewError(errs.ErrInvalidPayload)
	}

	return nil
}
