package postgresql

import (
	"encoding/json"
	"fmt"
)

// marshalJSONB encodes v for a JSONB column; nil stays SQL NULL.
func marshalJSONB(v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal jsonb value: %w", err)
	}

	return data, nil
}

// unmarshalJSONB decodes a JSONB column into out, treating NULL as absent.
func unmarshalJSONB(data []byte, out any) error {
	if len(data) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal jsonb value: %w", err)
	}

	return nil
}
