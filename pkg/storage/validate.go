package storage

import (
	"reflect"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks v against the `validate` tags of every struct reachable
// through pointers, slices and maps. Values without structs always pass.
func Validate(v any) error {
	return validateValue(reflect.ValueOf(v))
}

func validateValue(rv reflect.Value) error {
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return validateValue(rv.Elem())
	case reflect.Struct:
		return validate.Struct(rv.Interface())
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if err := validateValue(rv.Index(i)); err != nil {
				return err
			}
		}
	case reflect.Map:
		iter := rv.MapRange()
		for iter.Next() {
			if err := validateValue(iter.Value()); err != nil {
				return err
			}
		}
	}
	return nil
}
