package httpx

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-json-experiment/json"
	"github.com/gorilla/schema"
)

var decoder = func() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}()

// Params decodes the request parameters into v, a pointer to a struct with
// json and schema tags. Parameters come from the query string, or for
// requests with a body, from a JSON or form encoded body. Decoding failures
// are reported as 400, unsupported bodies as 415.
func Params(r *http.Request, v any) error {
	var values url.Values
	switch mediaType(r) {
	case "application/json":
		if err := json.UnmarshalFull(r.Body, v); err != nil {
			return Error(http.StatusBadRequest, err)
		}
		return nil
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return Error(http.StatusBadRequest, err)
		}
		values = r.Form
	case "":
		var err error
		if values, err = url.ParseQuery(r.URL.RawQuery); err != nil {
			return Error(http.StatusBadRequest, err)
		}
	default:
		return Error(http.StatusUnsupportedMediaType, fmt.Errorf("unsupported media type: %q", r.Header.Get("Content-Type")))
	}
	if err := decoder.Decode(v, values); err != nil {
		return Error(http.StatusBadRequest, err)
	}
	return nil
}

func mediaType(r *http.Request) string {
	return strings.TrimSpace(strings.Split(r.Header.Get("Content-Type"), ";")[0])
}
