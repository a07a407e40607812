package oracle

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// GenerateResponseSchema produces a JSON Schema Draft 2020-12 document
// from the PlanResponse struct. The schema is embedded in the oracle
// prompt as the response contract and drives semantic validation of
// replies.
func GenerateResponseSchema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = false

	s := r.Reflect(&PlanResponse{})
	s.ID = "https://github.com/planrun/planrun/schemas/plan-response-v0.json"
	s.Title = "planrun Plan Response v0"
	s.Description = "Schema for planning oracle responses (Draft 2020-12)"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return data, nil
}
