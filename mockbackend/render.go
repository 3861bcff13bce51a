package mockbackend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func init() {
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

type errorBody struct {
	DisplayError string `json:"displayError"`
}

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

func renderData(w http.ResponseWriter, code int, data any) {
	renderJSON(w, code, envelope{Success: true, Data: data})
}

func renderError(w http.ResponseWriter, code int, displayError string) {
	renderJSON(w, code, envelope{Success: false, Error: &errorBody{DisplayError: displayError}})
}

func renderJSON(w http.ResponseWriter, code int, body envelope) {
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(body); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}

// bindAndValidate decodes the body into T and checks its validate tags,
// rendering a 400 on failure.
func bindAndValidate[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var value T
	if err := json.NewDecoder(r.Body).Decode(&value); err != nil {
		renderError(w, http.StatusBadRequest, "Request body is not valid JSON")
		return value, false
	}
	if err := validate.Struct(value); err != nil {
		renderError(w, http.StatusBadRequest, validationMessage(err))
		return value, false
	}
	return value, true
}

func validationMessage(err error) string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return "Request validation failed"
	}
	fe := errs[0]
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
