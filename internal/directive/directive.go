// ABOUTME: Tool call extraction from model output text.
// ABOUTME: Finds <tool_call> spans and parses each through the strategy chain.

package directive

import (
	"errors"
	"regexp"
	"strings"
)

// ErrMalformed indicates a directive span that no parse strategy could recover.
var ErrMalformed = errors.New("malformed tool call")

// Request is a structured action request extracted from model text.
type Request struct {
	Action string         `json:"action"`
	Params map[string]any `json:"params"`
}

// Result pairs the raw text of one directive span with its parse outcome.
// Exactly one of Request and Err is set.
type Result struct {
	Raw     string
	Request *Request
	Err     error
}

var toolCallRe = regexp.MustCompile(`(?s)<tool_call>(.*?)</tool_call>`)

// Extract finds every <tool_call> span in text, in order, and parses each one.
// Text outside the spans is ignored. A span that cannot be parsed produces a
// Result with Err set; it never aborts extraction of the remaining spans.
func Extract(text string) []Result {
	matches := toolCallRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		raw := m[1]
		req, err := Parse(raw)
		results = append(results, Result{Raw: raw, Request: req, Err: err})
	}
	return results
}

// Parse runs a single directive span through the strategy chain and returns
// the first successful parse. Returns ErrMalformed when every strategy fails.
func Parse(raw string) (*Request, error) {
	return defaultChain.Parse(raw)
}

// Strip removes all <tool_call> spans from text and trims the remainder.
// Used when turning a model response into a final answer.
func Strip(text string) string {
	return strings.TrimSpace(toolCallRe.ReplaceAllString(text, ""))
}
