// ABOUTME: Renders the system prompt from its embedded template.
// ABOUTME: Substitution uses plain markers; the text is full of literal braces.

package catalog

import (
	_ "embed"
	"strconv"
	"strings"
)

//go:embed prompt.txt
var promptText string

// SystemPrompt renders the full system prompt. contextJSON is the serialized
// host snapshot; nextVMID is surfaced separately so the model does not have
// to dig it out of the snapshot.
func SystemPrompt(contextJSON string, nextVMID int) string {
	r := strings.NewReplacer(
		"{{context}}", contextJSON,
		"{{next_vmid}}", strconv.Itoa(nextVMID),
		"{{iso_urls}}", CurrentTable(),
		"{{iso_patterns}}", PatternTable(),
	)
	return r.Replace(promptText)
}
