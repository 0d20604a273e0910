package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// BindChecked binds the JSON body into out. Tag-level validation failures
// come back as a field -> messages map for the caller to extend and render;
// a body that is not valid JSON at all is answered with a 400 directly.
// The second return value is false when a response has already been written.
func BindChecked(ctx *gin.Context, out interface{}) (map[string][]string, bool) {
	err := ctx.ShouldBindJSON(out)

	if err == nil {
		return nil, true
	}

	rootType := baseStructType(out)

	var validatorError validator.ValidationErrors

	if errors.As(err, &validatorError) {
		fields := make(map[string][]string, len(validatorError))

		for _, fieldError := range validatorError {
			field := jsonFieldName(rootType, fieldError.StructField())

			fields[field] = append(fields[field], validationMessage(field, fieldError.Tag(), fieldError.Param()))
		}

		return fields, true
	}

	// a well-formed body with a wrong-typed field is still a validation
	// failure from the client's point of view

	var unmatchedTypeError *json.UnmarshalTypeError

	if errors.As(err, &unmatchedTypeError) && unmatchedTypeError.Field != "" {
		field := strings.TrimSpace(unmatchedTypeError.Field)

		return map[string][]string{
			field: {fmt.Sprintf("The %s field is invalid.", field)},
		}, true
	}

	// decoder errors carry type/offset internals; never echo them

	var syntaxError *json.SyntaxError

	if errors.As(err, &syntaxError) {
		RespondBadRequest(ctx, "Invalid request body", gin.H{"json": "invalid_json_syntax"})
		return nil, false
	}

	RespondBadRequest(ctx, "Invalid request body", nil)

	return nil, false
}

func baseStructType(v interface{}) reflect.Type {
	t := reflect.TypeOf(v)

	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t != nil && t.Kind() == reflect.Struct {
		return t
	}

	return nil
}

// jsonFieldName maps a struct field name back to its json tag. Request
// structs here are flat, so no path walking is needed.
func jsonFieldName(rootType reflect.Type, structField string) string {
	if rootType == nil {
		return strings.ToLower(structField)
	}

	sf, ok := rootType.FieldByName(structField)

	if !ok {
		return strings.ToLower(structField)
	}

	tag := sf.Tag.Get("json")

	name, _, _ := strings.Cut(tag, ",")

	if name == "" || name == "-" {
		return strings.ToLower(structField)
	}

	return name
}

func validationMessage(field, rule, param string) string {
	switch rule {
	case "required":
		return fmt.Sprintf("The %s field is required.", field)
	case "email":
		return fmt.Sprintf("The %s must be a valid email address.", field)
	case "max":
		return fmt.Sprintf("The %s may not be greater than %s characters.", field, param)
	case "min":
		return fmt.Sprintf("The %s must be at least %s characters.", field, param)
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", field)
	default:
		return fmt.Sprintf("The %s field is invalid.", field)
	}
}
