package httputil

import (
	"bytes"
	"encoding/json"
)

// OptionalString tells an absent JSON field apart from an explicit null:
//   - Present=false: field absent
//   - Present=true, Value=nil: field is null
//   - Present=true, Value=&s: field is the string s
//
// Moves use it so that "destination_folder_id": null means the library root
// while a missing field is a client error.
type OptionalString struct {
	Present bool
	Value   *string
}

// UnmarshalJSON is only called for fields present in the document.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Present = true
	if string(bytes.TrimSpace(data)) == "null" {
		o.Value = nil
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		// An empty id is the root, same as null.
		o.Value = nil
		return nil
	}
	o.Value = &s
	return nil
}
