// Package recovery turns free-form model output into JSON arrays of strings
// or JSON objects. Strategies run in a fixed order and the first one that
// yields a value of the requested kind wins; the result records which one.
package recovery

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// MaxItems caps recovered question lists.
const MaxItems = 20

type Kind int

const (
	KindArray Kind = iota
	KindObject
)

func (k Kind) String() string {
	if k == KindObject {
		return "object"
	}
	return "array"
}

func (k Kind) delims() (byte, byte) {
	if k == KindObject {
		return '{', '}'
	}
	return '[', ']'
}

type Stage string

const (
	StageDirect    Stage = "direct"
	StageBalanced  Stage = "balanced"
	StageLoose     Stage = "loose"
	StageHeuristic Stage = "heuristic"
	StageEmpty     Stage = "empty"
)

// Strategy is one pure recovery attempt over fence-stripped text.
type Strategy struct {
	Stage Stage
	Run   func(text string, kind Kind) (json.RawMessage, error)
}

var errNoMatch = errors.New("no match")

// Chain is the ordered list of structural strategies shared by both kinds.
var Chain = []Strategy{
	{StageDirect, direct},
	{StageBalanced, balanced},
	{StageLoose, loose},
}

var (
	fencePattern         = regexp.MustCompile("```(?:json|JSON)?\\n?")
	trailingCommaPattern = regexp.MustCompile(`,\s*([\]}])`)
	looseArray           = []*regexp.Regexp{regexp.MustCompile(`\[[\s\S]*?\]`), regexp.MustCompile(`\[[\s\S]*\]`)}
	looseObject          = []*regexp.Regexp{regexp.MustCompile(`\{[\s\S]*\}`), regexp.MustCompile(`\{[\s\S]*?\}`)}
)

// StripFences removes markdown code fences and surrounding whitespace.
func StripFences(raw string) string {
	return strings.TrimSpace(fencePattern.ReplaceAllString(raw, ""))
}

// RepairTrailingCommas drops commas that directly precede a closing bracket.
func RepairTrailingCommas(s string) string {
	return trailingCommaPattern.ReplaceAllString(s, "$1")
}

func run(raw string, kind Kind) (json.RawMessage, Stage, bool) {
	text := StripFences(raw)
	for _, s := range Chain {
		if msg, err := s.Run(text, kind); err == nil {
			if s.Stage != StageDirect {
				log.Warn().Str("stage", string(s.Stage)).Str("kind", kind.String()).
					Str("excerpt", excerpt(raw)).Msg("recovered malformed model output")
			}
			return msg, s.Stage, true
		}
	}
	return nil, "", false
}

func direct(text string, kind Kind) (json.RawMessage, error) {
	return validate(text, kind)
}

// balanced walks the top-level bracketed spans from the first opener on,
// ignoring brackets inside string literals, and returns the first one that
// parses. Spans nested inside a rejected span are never tried.
func balanced(text string, kind Kind) (json.RawMessage, error) {
	open, closer := kind.delims()
	start := strings.IndexByte(text, open)
	if start < 0 {
		return nil, errNoMatch
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case open:
			if depth == 0 {
				start = i
			}
			depth++
		case closer:
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				if msg, err := validate(RepairTrailingCommas(text[start:i+1]), kind); err == nil {
					return msg, nil
				}
			}
		}
	}
	return nil, errNoMatch
}

// loose tries every bracketed span matched by the kind's patterns in order.
// Arrays try the shortest spans first; objects try the longest first so a
// nested object is not mistaken for the payload.
func loose(text string, kind Kind) (json.RawMessage, error) {
	patterns := looseArray
	if kind == KindObject {
		patterns = looseObject
	}
	for _, re := range patterns {
		for _, m := range re.FindAllString(text, -1) {
			if msg, err := validate(RepairTrailingCommas(m), kind); err == nil {
				return msg, nil
			}
		}
	}
	return nil, errNoMatch
}

func validate(text string, kind Kind) (json.RawMessage, error) {
	b := bytes.TrimSpace([]byte(text))
	open, _ := kind.delims()
	if len(b) == 0 || b[0] != open {
		return nil, errNoMatch
	}
	if !json.Valid(b) {
		return nil, errNoMatch
	}
	return json.RawMessage(b), nil
}

func excerpt(s string) string {
	const n = 200
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
