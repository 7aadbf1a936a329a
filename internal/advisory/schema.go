package advisory

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	jsonschemav6 "github.com/santhosh-tekuri/jsonschema/v6"
)

// verdictSchema pins the judge output shape. Anything the model returns
// outside this contract is treated as a REJECT upstream.
const verdictSchema = `{
  "type": "object",
  "required": ["decision"],
  "properties": {
    "decision": {"type": "string"},
    "confidence": {"type": ["integer", "string"], "minimum": 0, "maximum": 100},
    "reason": {"type": "string"}
  }
}`

var compiledVerdictSchema = jsonschema.MustCompileString("verdict.json", verdictSchema)

func validateVerdict(raw string) error {
	doc, err := jsonschemav6.UnmarshalJSON(strings.NewReader(raw))
	if err != nil {
		return fmt.Errorf("verdict is not valid json: %w", err)
	}
	if err := compiledVerdictSchema.Validate(doc); err != nil {
		return fmt.Errorf("verdict schema violation: %w", err)
	}
	return nil
}
