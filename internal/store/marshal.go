package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// marshalSlots converts a slot -> type[format] map to JSON TEXT.
// encoding/json sorts map keys, so equal maps give equal text.
func marshalSlots(slots map[string]string) (string, error) {
	if len(slots) == 0 {
		return "{}", nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(slots); err != nil {
		return "", fmt.Errorf("marshal slots: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func unmarshalSlots(data string) (map[string]string, error) {
	slots := make(map[string]string)
	if data == "" || data == "{}" {
		return slots, nil
	}
	if err := json.Unmarshal([]byte(data), &slots); err != nil {
		return nil, fmt.Errorf("unmarshal slots: %w", err)
	}
	return slots, nil
}
