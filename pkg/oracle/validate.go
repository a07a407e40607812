package oracle

import (
	"bytes"
	"encoding/json"
	"fmt"

	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// ValidationError reports an oracle response that violates the shape
// its tool kind requires. It is always surfaced verbatim to the
// caller and never retried.
type ValidationError struct {
	Field   string `json:"field"` // JSON-path-like location, e.g. "capabilities[2].origin"
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid planning response: %s", e.Message)
	}
	return fmt.Sprintf("invalid planning response: %s: %s", e.Field, e.Message)
}

// Decode runs the full validation pipeline on a raw oracle reply.
// Phase 1: structural (strict JSON decode).
// Phase 2: semantic (JSON Schema validation).
// Phase 3: domain (per-kind required-field rules).
func Decode(raw []byte, kind ToolKind) (*PlanResponse, error) {
	// Phase 1: structural — strict decode, unknown fields rejected.
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var resp PlanResponse
	if err := dec.Decode(&resp); err != nil {
		return nil, &ValidationError{Message: fmt.Sprintf("decode response: %v", err)}
	}

	// Phase 2: semantic — validate against the generated schema.
	if err := validateSemantic(raw); err != nil {
		return nil, err
	}

	// Phase 3: domain — per-kind rules.
	if err := validateKind(&resp, kind); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Validate applies the kind-specific rules to an already-decoded
// response.
func Validate(resp *PlanResponse, kind ToolKind) error {
	return validateKind(resp, kind)
}

func validateSemantic(raw []byte) error {
	schemaJSON, err := GenerateResponseSchema()
	if err != nil {
		return &ValidationError{Message: fmt.Sprintf("generate schema: %v", err)}
	}

	schemaDoc, err := sjsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return &ValidationError{Message: fmt.Sprintf("unmarshal schema: %v", err)}
	}

	c := sjsonschema.NewCompiler()
	if err := c.AddResource("plan-response-v0.json", schemaDoc); err != nil {
		return &ValidationError{Message: fmt.Sprintf("add schema resource: %v", err)}
	}
	sch, err := c.Compile("plan-response-v0.json")
	if err != nil {
		return &ValidationError{Message: fmt.Sprintf("compile schema: %v", err)}
	}

	doc, err := sjsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return &ValidationError{Message: fmt.Sprintf("parse response: %v", err)}
	}
	if err := sch.Validate(doc); err != nil {
		return &ValidationError{Message: err.Error()}
	}
	return nil
}

// validateKind enforces the required fields of each tool kind, naming
// the missing or invalid field in the error.
func validateKind(resp *PlanResponse, kind ToolKind) error {
	if !kind.Known() {
		return &ValidationError{Message: fmt.Sprintf("unknown tool kind %q", kind)}
	}
	if resp.Message == "" {
		return &ValidationError{Field: "message", Message: "required string is missing or empty"}
	}

	switch kind {
	case KindAnswer:
		if resp.Question == "" {
			return &ValidationError{Field: "question", Message: "required string is missing or empty"}
		}
		if resp.Answer == "" {
			return &ValidationError{Field: "answer", Message: "required string is missing or empty"}
		}
	case KindIntrospect:
		if len(resp.Capabilities) == 0 {
			return &ValidationError{Field: "capabilities", Message: "required list is missing or empty"}
		}
		for i, c := range resp.Capabilities {
			if c.Name == "" {
				return &ValidationError{Field: fmt.Sprintf("capabilities[%d].name", i), Message: "required string is missing or empty"}
			}
			if c.Description == "" {
				return &ValidationError{Field: fmt.Sprintf("capabilities[%d].description", i), Message: "required string is missing or empty"}
			}
			if !validOrigin(c.Origin) {
				return &ValidationError{Field: fmt.Sprintf("capabilities[%d].origin", i), Message: fmt.Sprintf("%q is not one of builtin, plugin, learned", c.Origin)}
			}
		}
	case KindExecute:
		for i := range resp.Tasks {
			if err := resp.Tasks[i].Validate(); err != nil {
				return &ValidationError{Field: fmt.Sprintf("tasks[%d]", i), Message: err.Error()}
			}
		}
		for i, cmd := range resp.Commands {
			if cmd.Command == "" {
				return &ValidationError{Field: fmt.Sprintf("commands[%d].command", i), Message: "required string is missing or empty"}
			}
		}
	}
	return nil
}

func validOrigin(o Origin) bool {
	for _, v := range Origins {
		if o == v {
			return true
		}
	}
	return false
}
