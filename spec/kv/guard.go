package kv

import (
	"fmt"
	"reflect"
	"strings"
	"unicode/utf8"
)

const WildcardSuffix = "%"

func MustNotBeEmpty(name, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s must not be empty", ErrInvalidArgument, name)
	}
	return nil
}

func MustNotBeNil(name string, value any) error {
	if value == nil {
		return fmt.Errorf("%w: %s must not be nil", ErrInvalidArgument, name)
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		if v.IsNil() {
			return fmt.Errorf("%w: %s must not be nil", ErrInvalidArgument, name)
		}
	}
	return nil
}

func ValidateKey(key string) error {
	if err := MustNotBeEmpty("key", key); err != nil {
		return err
	}
	if n := utf8.RuneCountInString(key); n > MaxKeyLength {
		return fmt.Errorf("%w: key has %d characters, limit is %d", ErrInvalidArgument, n, MaxKeyLength)
	}
	return nil
}

// ValidateElement checks an element before it is written.
func ValidateElement(e *Element) error {
	if err := MustNotBeNil("element", e); err != nil {
		return err
	}
	if err := ValidateKey(e.Key); err != nil {
		return err
	}
	return MustNotBeEmpty("value", e.Value)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// PrefixPattern turns a key prefix into a LIKE pattern (escaped with '\') that ends in
// exactly one wildcard. A prefix that already ends with WildcardSuffix is not extended again.
func PrefixPattern(prefix string) string {
	prefix = strings.TrimSuffix(prefix, WildcardSuffix)
	return likeEscaper.Replace(prefix) + WildcardSuffix
}
