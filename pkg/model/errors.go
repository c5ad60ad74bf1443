package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidParameter is wrapped by every validation failure of pipeline inputs.
var ErrInvalidParameter = errors.New("invalid parameter")

// SchemaMismatchError reports a prediction record that does not fit the feature set.
type SchemaMismatchError struct {
	Missing []string
	Invalid []string
}

func (e *SchemaMismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing features: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "non-numeric features: "+strings.Join(e.Invalid, ", "))
	}
	return "record does not match feature set: " + strings.Join(parts, "; ")
}

// UnseenCategoryError reports a categorical value outside the known set.
type UnseenCategoryError struct {
	Column string
	Value  string
}

func (e *UnseenCategoryError) Error() string {
	return fmt.Sprintf("unknown value %q for categorical attribute %s", e.Value, e.Column)
}
