package dto

import (
	"encoding/json"
	"strings"
)

// FlexNumber keeps the raw text of a JSON value that may arrive as a number,
// a numeric string or null. Interpretation (defaults, finiteness) is left to
// the service layer so noisy input is never rejected at decode time.
type FlexNumber string

func (n *FlexNumber) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*n = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = FlexNumber(strings.TrimSpace(s))
		return nil
	}
	*n = FlexNumber(raw)
	return nil
}

func (n FlexNumber) MarshalJSON() ([]byte, error) {
	if n == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(n))
}

func (n FlexNumber) String() string { return string(n) }
