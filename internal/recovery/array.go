package recovery

import (
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"
)

type ArrayResult struct {
	Items []string
	Stage Stage
}

// listMarkers are stripped from both ends of a candidate line.
const listMarkers = "-•*0123456789.)\"', \t"

// Array recovers a list of strings from raw. It never fails: when no JSON
// array can be found, question-like lines are taken from the text.
func Array(raw string) ArrayResult {
	if msg, stage, ok := run(raw, KindArray); ok {
		items, err := stringItems(msg)
		if err == nil {
			return ArrayResult{Items: items, Stage: stage}
		}
	}

	items := Heuristic(StripFences(raw))
	log.Warn().Int("lines", len(items)).Str("excerpt", excerpt(raw)).Msg("no JSON array in model output, using heuristic lines")
	return ArrayResult{Items: items, Stage: StageHeuristic}
}

// Heuristic keeps lines that read like questions: longer than 10
// characters once list markers are stripped, and containing a '?'.
func Heuristic(text string) []string {
	out := []string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.Trim(strings.TrimSpace(line), listMarkers)
		if len(line) > 10 && strings.Contains(line, "?") {
			out = append(out, line)
			if len(out) == MaxItems {
				break
			}
		}
	}
	return out
}

func stringItems(msg json.RawMessage) ([]string, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(msg, &elems); err != nil {
		return nil, err
	}

	out := make([]string, 0, min(len(elems), MaxItems))
	for _, e := range elems {
		var s string
		if err := json.Unmarshal(e, &s); err != nil {
			var v any
			if err := json.Unmarshal(e, &v); err != nil || v == nil {
				continue
			}
			compact, err := json.Marshal(v)
			if err != nil {
				continue
			}
			s = string(compact)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
		if len(out) == MaxItems {
			break
		}
	}
	return out, nil
}
