// Package validate wraps go-playground/validator behind a single Struct
// call, so request structs (registration, profile update, password change)
// carry their rules as tags.
package validate

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var v = validator.New()

// Struct checks s against its validate tags and flattens any violations into
// one readable error, e.g. "field 'Email' failed 'required'". Callers wrap
// the result as a bad-request sentinel; the text reaches API clients as-is.
func Struct(s interface{}) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fmt.Sprintf("field '%s' failed '%s'", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
