package recovery

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

type ObjectResult struct {
	// Raw is the recovered JSON text, "{}" when nothing was found.
	Raw   json.RawMessage
	Value map[string]any
	Stage Stage
}

// Object recovers a JSON object from raw, falling back to an empty one.
func Object(raw string) ObjectResult {
	if msg, stage, ok := run(raw, KindObject); ok {
		var v map[string]any
		if err := json.Unmarshal(msg, &v); err == nil && v != nil {
			return ObjectResult{Raw: msg, Value: v, Stage: stage}
		}
	}

	log.Warn().Str("excerpt", excerpt(raw)).Msg("no JSON object in model output, using empty object")
	return ObjectResult{Raw: json.RawMessage("{}"), Value: map[string]any{}, Stage: StageEmpty}
}
