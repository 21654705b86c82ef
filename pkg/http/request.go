package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"sharebasket/pkg/basketcode"
	apperrors "sharebasket/pkg/errors"

	"github.com/julienschmidt/httprouter"
)

// DecodeJSON reads a JSON body into target. An empty body is accepted when
// allowEmpty is set and leaves target untouched.
func DecodeJSON(r *http.Request, target any, allowEmpty bool) error {
	if r.Body == nil {
		if allowEmpty {
			return nil
		}
		return apperrors.InvalidInput("Request body is required")
	}

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			if allowEmpty {
				return nil
			}
			return apperrors.InvalidInput("Request body is required")
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return apperrors.TooLarge(tooLarge.Limit)
		}
		return apperrors.InvalidInput("Invalid JSON: " + err.Error())
	}
	return nil
}

// BasketCode returns the normalized :code route parameter.
func BasketCode(ps httprouter.Params) string {
	return basketcode.Normalize(ps.ByName("code"))
}

// ItemID parses the :id route parameter.
func ItemID(ps httprouter.Params) (int64, error) {
	raw := ps.ByName("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, apperrors.InvalidInput("invalid item id: " + raw)
	}
	return id, nil
}
