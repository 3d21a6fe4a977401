package proto

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Decode unmarshals data into v and validates struct tags. Slices are
// validated element by element.
func Decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		return fmt.Errorf("empty payload")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	if err := Validate(v); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	return nil
}

// Validate runs struct validation on v, or on every element when v points to
// a slice of structs.
func Validate(v any) error {
	switch t := v.(type) {
	case *[]UserSummary:
		return validateSlice(*t)
	case *[]MessagePayload:
		return validateSlice(*t)
	case *[]ChannelPayload:
		return validateSlice(*t)
	case *string, *json.RawMessage:
		return nil
	}
	return validatorInstance().Struct(v)
}

func validateSlice[T any](items []T) error {
	for i := range items {
		if err := validatorInstance().Struct(&items[i]); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}
	return nil
}

// Encode builds a wire frame for event with payload.
func Encode(event string, payload any) ([]byte, error) {
	f := Frame{Event: event}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", event, err)
		}
		f.Data = data
	}
	return json.Marshal(f)
}
