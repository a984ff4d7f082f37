/*
Package req provides helper functions for HTTP request parsing and data binding.

It encapsulates the logic for parsing JSON request bodies with strict field and
size checks, facilitating the control dashboard's write endpoints.
*/
package req

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"howdybot/internal/pkg/errs"
)

// MaxRequestBodySize defines the maximum allowed size (1 MB) for a dashboard
// request body. This limit is enforced via http.MaxBytesReader.
const MaxRequestBodySize int64 = 1 << 20

// BindJSON attempts to bind the JSON data from the HTTP request body to the destination struct dst.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	// A valid JSON document followed by anything but EOF means the client
	// sent trailing garbage.
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}
