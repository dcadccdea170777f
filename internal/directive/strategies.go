// ABOUTME: Ordered parse strategies for recovering tool calls from broken JSON.
// ABOUTME: Each strategy is independently testable; a chain composes them by first success.

package directive

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Strategy attempts one style of recovery on a raw directive span.
// Implementations must be stateless and safe for concurrent use.
type Strategy interface {
	// Name identifies the strategy in logs and test failures.
	Name() string
	// Parse returns the recovered request, or an error if this strategy
	// cannot make sense of the input.
	Parse(raw string) (*Request, error)
}

// Chain tries strategies in order and returns the first success.
type Chain struct {
	strategies []Strategy
}

// NewChain builds a chain from the given strategies, tried in order.
func NewChain(strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies}
}

// Parse runs the span through each strategy until one succeeds.
func (c *Chain) Parse(raw string) (*Request, error) {
	s := strings.TrimSpace(raw)
	for _, st := range c.strategies {
		if req, err := st.Parse(s); err == nil {
			return req, nil
		}
	}
	return nil, fmt.Errorf("%w: exhausted %d strategies", ErrMalformed, len(c.strategies))
}

// defaultChain is the production permissiveness ladder, strict to loose.
var defaultChain = NewChain(
	directStrategy{},
	stringFixStrategy{},
	braceExtractStrategy{},
	regexRecoverStrategy{},
)

// decodeRequest unmarshals a candidate JSON object into a Request and
// validates that an action name is present.
func decodeRequest(s string) (*Request, error) {
	var req Request
	if err := json.Unmarshal([]byte(s), &req); err != nil {
		return nil, err
	}
	if req.Action == "" {
		return nil, fmt.Errorf("missing action field")
	}
	if req.Params == nil {
		req.Params = map[string]any{}
	}
	return &req, nil
}

var (
	fenceOpenRe  = regexp.MustCompile("^```\\w*\n?")
	fenceCloseRe = regexp.MustCompile("\n?```$")
)

// stripFences removes surrounding markdown code fence markers, if any.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = fenceOpenRe.ReplaceAllString(s, "")
	s = fenceCloseRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// directStrategy strips code fences and parses the remainder as-is.
type directStrategy struct{}

func (directStrategy) Name() string { return "direct" }

func (directStrategy) Parse(raw string) (*Request, error) {
	return decodeRequest(stripFences(raw))
}

// stringFixStrategy rewrites literal newline, carriage-return, and tab bytes
// found inside JSON string values into their escape sequences, then reparses.
// This is the dominant failure mode: generated shell commands routinely
// contain real line breaks.
type stringFixStrategy struct{}

func (stringFixStrategy) Name() string { return "string_fix" }

func (stringFixStrategy) Parse(raw string) (*Request, error) {
	return decodeRequest(fixStrings(stripFences(raw)))
}

// fixStrings walks the input tracking whether the cursor is inside a quoted
// string. Backslash escapes are passed through untouched so an already-escaped
// sequence is never double-escaped. Carriage returns inside strings are
// dropped rather than escaped.
func fixStrings(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case ch == '\\' && i+1 < len(s):
				b.WriteByte(ch)
				b.WriteByte(s[i+1])
				i++
			case ch == '"':
				inString = false
				b.WriteByte(ch)
			case ch == '\n':
				b.WriteString(`\n`)
			case ch == '\r':
				// dropped
			case ch == '\t':
				b.WriteString(`\t`)
			default:
				b.WriteByte(ch)
			}
		} else {
			if ch == '"' {
				inString = true
			}
			b.WriteByte(ch)
		}
	}
	return b.String()
}

var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

// braceExtractStrategy locates the outermost {...} span in the input and
// retries parsing on it with progressively heavier rewrites: trailing-comma
// removal, the in-string fix, and finally a single-to-double quote swap.
type braceExtractStrategy struct{}

func (braceExtractStrategy) Name() string { return "brace_extract" }

func (braceExtractStrategy) Parse(raw string) (*Request, error) {
	s := stripFences(raw)
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no object span found")
	}
	candidate := trailingCommaRe.ReplaceAllString(s[start:end+1], "$1")

	if req, err := decodeRequest(candidate); err == nil {
		return req, nil
	}
	if req, err := decodeRequest(fixStrings(candidate)); err == nil {
		return req, nil
	}
	return decodeRequest(strings.ReplaceAll(candidate, "'", `"`))
}

// regexRecoverStrategy is the last resort: it pulls out individual fields by
// name with type-appropriate patterns. The command field gets special handling
// because its value may contain arbitrary quotes, escapes, and newlines.
type regexRecoverStrategy struct{}

func (regexRecoverStrategy) Name() string { return "regex_recover" }

var (
	actionRe   = regexp.MustCompile(`"action"\s*:\s*"(\w+)"`)
	vmidRe     = regexp.MustCompile(`"vmid"\s*:\s*"?(\d+)"?`)
	commandRe  = regexp.MustCompile(`"command"\s*:\s*"`)
	cmdCloseRe = regexp.MustCompile(`"\s*\}\s*\}?\s*$`)
)

// stringParamKeys are scalar string fields recovered by a narrow quoted pattern.
var stringParamKeys = []string{
	"hostname", "name", "template", "storage", "filename",
	"url", "ostype", "password", "ostemplate", "net0",
	"content", "description", "snapname", "target", "disk",
	"size", "tags", "features", "nameserver", "searchdomain",
	"startup", "delete", "net_bridge", "notes", "kind", "ip", "gw",
}

// intParamKeys are numeric fields recovered as bare digit runs.
var intParamKeys = []string{
	"memory", "disk_size", "cores", "swap",
	"newid", "onboot", "protection", "tty", "cpuunits", "full",
}

func (regexRecoverStrategy) Parse(raw string) (*Request, error) {
	s := stripFences(raw)
	am := actionRe.FindStringSubmatch(s)
	if am == nil {
		return nil, fmt.Errorf("no action field found")
	}
	action := am[1]
	params := map[string]any{}

	if vm := vmidRe.FindStringSubmatch(s); vm != nil {
		n, _ := strconv.Atoi(vm[1])
		params["vmid"] = n
	}

	if action == "exec_container" || action == "exec_host" {
		if cmd, ok := recoverCommand(s); ok {
			params["command"] = cmd
		}
	} else {
		for _, key := range stringParamKeys {
			re := regexp.MustCompile(`"` + key + `"\s*:\s*"([^"]*)"`)
			if m := re.FindStringSubmatch(s); m != nil {
				params[key] = m[1]
			}
		}
		for _, key := range intParamKeys {
			re := regexp.MustCompile(`"` + key + `"\s*:\s*(\d+)`)
			if m := re.FindStringSubmatch(s); m != nil {
				n, _ := strconv.Atoi(m[1])
				params[key] = n
			}
		}
	}

	if len(params) == 0 {
		return nil, fmt.Errorf("no parameters recovered")
	}
	return &Request{Action: action, Params: params}, nil
}

// recoverCommand extracts the value of the command field. The opening quote is
// found by pattern; the closing quote is located by matching the structurally
// plausible tail `"}}"` first, and failing that by scanning for the last
// unescaped quote. Escape sequences are then decoded into real characters.
func recoverCommand(s string) (string, bool) {
	m := commandRe.FindStringIndex(s)
	if m == nil {
		return "", false
	}
	start := m[1]
	tail := strings.TrimRight(s, " \t\n\r")

	var end int
	if loc := cmdCloseRe.FindStringIndex(tail[start:]); loc != nil {
		end = start + loc[0]
	} else {
		// No clean closing sequence: take the last unescaped quote.
		last := -1
		for j := start; j < len(s); j++ {
			if s[j] == '\\' && j+1 < len(s) {
				j++
				continue
			}
			if s[j] == '"' {
				last = j
			}
		}
		if last <= start {
			return "", false
		}
		end = last
	}

	return decodeEscapes(s[start:end]), true
}

// decodeEscapes converts JSON backslash escapes into their literal characters.
// Order matters: the double-backslash rewrite must run last.
func decodeEscapes(s string) string {
	s = strings.ReplaceAll(s, `\n`, "\n")
	s = strings.ReplaceAll(s, `\t`, "\t")
	s = strings.ReplaceAll(s, `\"`, `"`)
	s = strings.ReplaceAll(s, `\/`, "/")
	s = strings.ReplaceAll(s, `\\`, `\`)
	return s
}
