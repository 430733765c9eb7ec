package quiz

import (
	"bytes"
	"encoding/json"

	"github.com/google/uuid"
)

// Answer is the tagged payload of a submitted response. Exactly one field is
// populated, selected by the question's type: SelectedOptionID for
// multiple_choice / true_false, SelectedOptionIDs for multiple_select.
type Answer struct {
	SelectedOptionID  *uuid.UUID  `json:"selected_option_id,omitempty"`
	SelectedOptionIDs []uuid.UUID `json:"selected_option_ids,omitempty"`
}

// ParseAnswer decodes a raw answer payload strictly: unknown fields are
// rejected so shape errors surface before any state is touched.
func ParseAnswer(raw json.RawMessage) (*Answer, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var a Answer
	if err := dec.Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}
