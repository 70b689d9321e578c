package refdata

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ActionRules is the typed form of the rules blob attached to an action.
// Every field is optional; absent keys take the zero value.
type ActionRules struct {
	Scope        string  `json:"scope,omitempty" yaml:"scope"`                   // "global" or "local"
	OncePerGame  bool    `json:"once_per_game,omitempty" yaml:"once_per_game"`
	LastWeekOnly bool    `json:"last_week_only,omitempty" yaml:"last_week_only"`
	Duration     int     `json:"duration,omitempty" yaml:"duration"`             // skill lifetime in turns
	DoorDiscount bool    `json:"door_discount,omitempty" yaml:"door_discount"`   // action benefits from a door_discount skill
	TVEligible   bool    `json:"tv_eligible,omitempty" yaml:"tv_eligible"`       // action benefits from a tv_bonus skill
	Effect       string  `json:"effect,omitempty" yaml:"effect"`                 // skill effect id
	Discount     float64 `json:"discount,omitempty" yaml:"discount"`             // fraction for door_discount skills
	Bonus        float64 `json:"bonus,omitempty" yaml:"bonus"`                   // fraction for tv_bonus / foreign_aid skills
}

// Skill effect identifiers recognized by the engine.
const (
	EffectDoorDiscount = "door_discount"
	EffectTVBonus      = "tv_bonus"
	EffectForeignAid   = "foreign_aid"
)

// Global reports whether the rules mark the action as countrywide.
func (r ActionRules) Global() bool {
	return r.Scope == "global"
}

const rulesSchemaJSON = `{
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"scope": {"type": "string", "enum": ["global", "local"]},
		"once_per_game": {"type": "boolean"},
		"last_week_only": {"type": "boolean"},
		"duration": {"type": "integer", "minimum": 1},
		"door_discount": {"type": "boolean"},
		"tv_eligible": {"type": "boolean"},
		"effect": {"type": "string", "enum": ["door_discount", "tv_bonus", "foreign_aid"]},
		"discount": {"type": "number", "minimum": 0, "maximum": 1},
		"bonus": {"type": "number", "minimum": 0}
	}
}`

var rulesSchema = jsonschema.MustCompileString("action_rules.json", rulesSchemaJSON)

// ParseRules decodes a rules blob, tolerating empty input. Unknown keys or
// type mismatches make the blob invalid as a whole; callers that cannot fail
// (mid-game reads) use Action.Rules which falls back to zero-value rules.
func ParseRules(raw string) (ActionRules, error) {
	var r ActionRules
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return r, nil
	}
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return ActionRules{}, fmt.Errorf("parse rules: %w", err)
	}
	return r, nil
}

// ValidateRules checks a rules blob against the recognized-key schema.
// Seed loading runs this so a typo in reference data fails at startup
// instead of silently becoming an ignored rule mid-game.
func ValidateRules(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var doc any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return fmt.Errorf("rules not valid JSON: %w", err)
	}
	if err := rulesSchema.Validate(doc); err != nil {
		return fmt.Errorf("rules schema: %w", err)
	}
	return nil
}

// MarshalRules encodes typed rules back into the stored blob form.
func MarshalRules(r ActionRules) string {
	b, err := json.Marshal(r)
	if err != nil {
		return "{}"
	}
	return string(b)
}
