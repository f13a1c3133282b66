package cycle

import (
	"encoding/json"
	"fmt"

	"giftexchange/internal/pairing/models"
)

type scanner interface {
	Scan(dest ...any) error
}

func encodeAssignments(assignments []models.Assignment) ([]byte, error) {
	if assignments == nil {
		assignments = []models.Assignment{}
	}
	b, err := json.Marshal(assignments)
	if err != nil {
		return nil, fmt.Errorf("encode assignments: %w", err)
	}
	return b, nil
}

func decodeAssignments(raw []byte) ([]models.Assignment, error) {
	var out []models.Assignment
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode assignments: %w", err)
	}
	return out, nil
}
