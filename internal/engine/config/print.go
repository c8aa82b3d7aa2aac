package config

import (
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
	"time"
)

// secretFields are printed masked.
var secretFields = map[string]struct{}{
	"jwt_secret": {},
	"api_keys":   {},
}

func (c *Compositor) Print(w io.Writer, v any) {
	c.printConfig(w, v, "  ")
}

func (c *Compositor) printConfig(w io.Writer, v any, prefix string) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldName := typ.Field(i).Name
		if tag, ok := typ.Field(i).Tag.Lookup("mapstructure"); ok && tag != "" {
			fieldName = tag
		}

		if field.Kind() == reflect.Ptr {
			if field.IsNil() {
				fmt.Fprintf(w, "%s%s: <nil>\n", prefix, fieldName)
				continue
			}
			field = field.Elem()
		}

		if _, secret := secretFields[fieldName]; secret {
			fmt.Fprintf(w, "%s%s: %s\n", prefix, fieldName, mask(field))
			continue
		}

		switch {
		case field.Type() == reflect.TypeOf(time.Duration(0)):
			fmt.Fprintf(w, "%s%s: %s\n", prefix, fieldName, time.Duration(field.Int()).String())
		case field.Kind() == reflect.Struct:
			fmt.Fprintf(w, "%s%s:\n", prefix, fieldName)
			c.printConfig(w, field.Addr().Interface(), prefix+"  ")
		case field.Kind() == reflect.String:
			fmt.Fprintf(w, "%s%s: %q\n", prefix, fieldName, field.String())
		default:
			fmt.Fprintf(w, "%s%s: %v\n", prefix, fieldName, field.Interface())
		}
	}
}

func mask(field reflect.Value) string {
	switch field.Kind() {
	case reflect.Map:
		keys := make([]string, 0, field.Len())
		for _, k := range field.MapKeys() {
			keys = append(keys, fmt.Sprint(k.Interface()))
		}
		sort.Strings(keys)
		return "[" + strings.Join(keys, " ") + "] (values hidden)"
	case reflect.String:
		if field.Len() == 0 {
			return `""`
		}
	}
	return "********"
}
