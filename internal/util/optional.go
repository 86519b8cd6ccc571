package util

import (
	"database/sql/driver"
	"encoding/json"
)

// Optional distinguishes a field that was absent from a payload from one that
// was explicitly set, including explicitly set to null. IsSet reports presence
// in the payload; a set Optional whose Null flag is true carries a JSON null.
type Optional[T any] struct {
	Val   T
	IsSet bool
	Null  bool
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Val: v, IsSet: true}
}

// Null returns an Optional explicitly set to null.
func Null[T any]() Optional[T] {
	return Optional[T]{IsSet: true, Null: true}
}

// None returns an absent Optional.
func None[T any]() Optional[T] {
	return Optional[T]{}
}

func (o Optional[T]) MarshalJSON() ([]byte, error) {
	if !o.IsSet || o.Null {
		return []byte("null"), nil
	}
	return json.Marshal(o.Val)
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.IsSet = true
	if string(data) == "null" {
		o.Null = true
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Val = v
	return nil
}

// Value implements driver.Valuer.
func (o Optional[T]) Value() (driver.Value, error) {
	if !o.IsSet || o.Null {
		return nil, nil
	}
	return o.Val, nil
}
