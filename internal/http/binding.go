package http

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerTagNameOnce sync.Once

// registerJSONTagNames makes validation errors report json field names.
func registerJSONTagNames() {
	registerTagNameOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		engine.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return field.Name
			}
			return name
		})
	})
}

// BindJSON decodes and validates the request body. On failure it returns a
// short client-facing message.
func BindJSON(c *gin.Context, dst any) (string, bool) {
	registerJSONTagNames()
	if errBind := c.ShouldBindJSON(dst); errBind != nil {
		return BindErrorMessage(errBind), false
	}
	return "", true
}

// BindErrorMessage converts a binding error into a client-facing message.
func BindErrorMessage(err error) string {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return "invalid json"
	}
	fe := validationErrs[0]
	switch fe.Tag() {
	case "required":
		return "missing " + fe.Field()
	case "oneof":
		return fe.Field() + " must be one of " + fe.Param()
	case "max":
		return fe.Field() + " is too long"
	case "email":
		return fe.Field() + " must be an email address"
	default:
		return "invalid " + fe.Field()
	}
}

// QueryInt reads a positive integer query parameter, or def.
func QueryInt(c *gin.Context, key string, def int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def
	}
	n, errParse := strconv.Atoi(raw)
	if errParse != nil || n < 1 {
		return def
	}
	return n
}
