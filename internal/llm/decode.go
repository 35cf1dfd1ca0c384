package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ozanyurtsever/promopipe/internal/common"
)

// DecodeObject strictly unmarshals a service answer into v. Unknown fields
// are tolerated (the service is free-form), but type mismatches are not.
func DecodeObject(raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", common.ErrSchemaMismatch, err)
	}
	return nil
}

// RepairAnswer is the targeted-repair contract: a patch object, a numeric
// confidence, and free-text notes.
type RepairAnswer struct {
	Patch      json.RawMessage `json:"patch"`
	Confidence *float64        `json:"confidence"`
	Notes      string          `json:"notes"`
}

// DecodeRepairAnswer validates the shape of a repair answer. Both the patch
// object and a numeric confidence must be present; field presence is never
// trusted unchecked.
func DecodeRepairAnswer(raw json.RawMessage) (*RepairAnswer, error) {
	var answer RepairAnswer
	if err := json.Unmarshal(raw, &answer); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrSchemaMismatch, err)
	}

	if len(answer.Patch) == 0 || bytes.Equal(answer.Patch, []byte("null")) {
		return nil, fmt.Errorf("%w: repair answer has no patch object", common.ErrSchemaMismatch)
	}
	if !bytes.HasPrefix(bytes.TrimSpace(answer.Patch), []byte("{")) {
		return nil, fmt.Errorf("%w: repair patch is not an object", common.ErrSchemaMismatch)
	}
	if answer.Confidence == nil {
		return nil, fmt.Errorf("%w: repair answer has no numeric confidence", common.ErrSchemaMismatch)
	}

	return &answer, nil
}
