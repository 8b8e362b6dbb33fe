package broker

import (
	"encoding/json"
	"fmt"

	"github.com/dkeye/Attendance/internal/domain"
)

// DecodeCardID extracts the card identifier named by field from a JSON
// object payload. Any other fields are ignored.
func DecodeCardID(payload []byte, field string) (domain.CardID, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(payload, &obj); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMalformedEvent, err)
	}
	if obj == nil {
		return "", fmt.Errorf("%w: payload is not an object", domain.ErrMalformedEvent)
	}
	raw, ok := obj[field]
	if !ok {
		return "", fmt.Errorf("%w: missing %q", domain.ErrMalformedEvent, field)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("%w: %q is not a string", domain.ErrMalformedEvent, field)
	}
	id := domain.NormalizeCardID(s)
	if id == "" {
		return "", fmt.Errorf("%w: empty %q", domain.ErrMalformedEvent, field)
	}
	return id, nil
}

// EncodeScan builds the payload a reader publishes for one scan.
func EncodeScan(field string, id string) ([]byte, error) {
	return json.Marshal(map[string]string{field: id})
}
