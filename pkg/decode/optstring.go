package decode

import "encoding/json"

// OptString decodes upstream fields that are sometimes a bare string,
// sometimes a `{"#text": ...}` wrapper object, and sometimes null. All
// shape quirks are normalized here so business logic only ever sees one
// optional-string type.
type OptString struct {
	Value string
	Set   bool
}

func (o *OptString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*o = OptString{}
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*o = OptString{Value: s, Set: true}
		return nil
	}

	var wrapper struct {
		Text string `json:"#text"`
	}
	if err := json.Unmarshal(b, &wrapper); err != nil {
		// Unknown shape: treat as unset rather than failing the record.
		*o = OptString{}
		return nil
	}
	*o = OptString{Value: wrapper.Text, Set: wrapper.Text != ""}
	return nil
}

// Or returns the value when set, def otherwise.
func (o OptString) Or(def string) string {
	if o.Set {
		return o.Value
	}
	return def
}
