// Package directive extracts structured tool calls from free-form model text.
//
// Models emit actions as <tool_call>{"action": ..., "params": {...}}</tool_call>
// spans embedded in otherwise conversational output. The JSON inside those spans
// is frequently malformed: literal newlines inside string values (shell commands
// are the usual culprit), markdown code fences, trailing commas, single quotes.
//
// Parsing runs an ordered chain of strategies, from strict to permissive, and
// stops at the first one that succeeds:
//
//  1. Strip code fences, parse directly.
//  2. Escape literal newlines/tabs inside string values, reparse.
//  3. Extract the first balanced {...} span, strip trailing commas, retry with
//     the string fix and a single-quote rewrite.
//  4. Field-level regex recovery, including a backward scan to find the true
//     closing quote of a command value that itself contains quotes.
//
// A directive that defeats every strategy yields ErrMalformed for that span
// only; later directives in the same text are still extracted.
package directive
