// Package models defines the core domain models for pipeline graph construction.
package models

import (
	"fmt"
	"reflect"
)

// TypeTag is the semantic value type of a pipeline variable.
type TypeTag string

const (
	TypeString  TypeTag = "string"
	TypeInteger TypeTag = "integer"
	TypeFloat   TypeTag = "float"
	TypeBool    TypeTag = "boolean"
	TypeList    TypeTag = "list"
	TypeMap     TypeTag = "map"
	TypeFile    TypeTag = "file"
	TypeAny     TypeTag = "any"
)

// Valid reports whether the tag is one of the known type tags.
func (t TypeTag) Valid() bool {
	switch t {
	case TypeString, TypeInteger, TypeFloat, TypeBool, TypeList, TypeMap, TypeFile, TypeAny:
		return true
	}

	return false
}

// CheckValue validates a concrete value against the tag. A mismatch is a
// type error reported at bind time, never deferred to remote execution.
func (t TypeTag) CheckValue(value any) error {
	if value == nil {
		return fmt.Errorf("type %q: got nil value", t)
	}

	switch t {
	case TypeAny:
		return nil
	case TypeString:
		if _, ok := value.(string); ok {
			return nil
		}
	case TypeInteger:
		switch value.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return nil
		}
	case TypeFloat:
		switch value.(type) {
		case float32, float64:
			return nil
		}
	case TypeBool:
		if _, ok := value.(bool); ok {
			return nil
		}
	case TypeList:
		kind := reflect.ValueOf(value).Kind()
		if kind == reflect.Slice || kind == reflect.Array {
			return nil
		}
	case TypeMap:
		if reflect.ValueOf(value).Kind() == reflect.Map {
			return nil
		}
	case TypeFile:
		if _, ok := value.(*File); ok {
			return nil
		}
	default:
		return fmt.Errorf("unknown type tag %q", t)
	}

	return fmt.Errorf("type %q: incompatible value of type %T", t, value)
}

// Matches reports whether a value of type other can flow into a slot
// declared as t. TypeAny is compatible in either direction.
func (t TypeTag) Matches(other TypeTag) bool {
	if t == TypeAny || other == TypeAny {
		return true
	}

	return t == other
}
