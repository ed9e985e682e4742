package batch

import "strings"

// Reply format markers.
const (
	questionMarker = "Question:"
	answerMarker   = "Answer:"
)

// ParsedResult is the generated question/answer pair for one row.
type ParsedResult struct {
	GeneratedQuestion string
	GeneratedAnswer   string
}

// ParseResponse splits raw on the first "Answer:". The part before it, with
// "Question:" removed, is the question. A reply without the marker is all
// question and no answer.
func ParseResponse(raw string) ParsedResult {
	before, after, found := strings.Cut(raw, answerMarker)
	res := ParsedResult{
		GeneratedQuestion: strings.TrimSpace(strings.ReplaceAll(before, questionMarker, "")),
	}
	if found {
		res.GeneratedAnswer = strings.TrimSpace(after)
	}
	return res
}
