package ipc

import (
	"encoding/json"
	"fmt"

	schemagen "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/nstehr/saltbot/saltbot-core/model"
)

// Validator checks inbound payloads against schemas reflected from the Go
// message types, so a malformed observation is rejected before it reaches
// the step function.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// NewValidator reflects and compiles schemas for every inbound message type.
func NewValidator() (*Validator, error) {
	inbound := map[string]any{
		TypeHello:       HelloMessage{},
		TypeObservation: model.Observation{},
		TypeEpisodeEnd:  EpisodeEndMessage{},
	}
	v := &Validator{schemas: make(map[string]*jsonschema.Schema, len(inbound))}
	for msgType, sample := range inbound {
		raw, err := SchemaJSON(sample)
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", msgType, err)
		}
		s, err := jsonschema.CompileString(msgType+".schema.json", string(raw))
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", msgType, err)
		}
		v.schemas[msgType] = s
	}
	return v, nil
}

// SchemaJSON renders the JSON schema for a message value.
func SchemaJSON(sample any) ([]byte, error) {
	r := schemagen.Reflector{
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
		AllowAdditionalProperties:  true,
		Anonymous:                  true,
	}
	s := r.Reflect(sample)
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return raw, nil
}

// Validate checks data against the schema registered for msgType.
// Types without a schema pass.
func (v *Validator) Validate(msgType string, data json.RawMessage) error {
	s, ok := v.schemas[msgType]
	if !ok {
		return nil
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode %s payload: %w", msgType, err)
	}
	if err := s.Validate(doc); err != nil {
		return fmt.Errorf("invalid %s payload: %w", msgType, err)
	}
	return nil
}
