// Package parse recovers structured JSON from collaborator model responses.
// Models wrap JSON in prose and code fences and emit small syntax slips, so
// extraction and a pipeline of idempotent repair stages run before decoding.
// Already-valid input passes through every stage unchanged.
package parse

import (
	"fmt"
	"strings"

	"github.com/simforge/worldsim/core"
	"github.com/tidwall/gjson"
)

const maxNestingDepth = 16

// Extract isolates the JSON payload of a raw model response. It prefers the
// last fenced code block carrying JSON; failing that it takes the span from
// the first opening brace to the last closing brace.
func Extract(raw string) (string, error) {
	if block, ok := lastFencedBlock(raw); ok {
		return block, nil
	}
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start == -1 || end <= start {
		return "", fmt.Errorf("%w: no JSON object found in response", core.ErrUnparseableResponse)
	}
	return raw[start : end+1], nil
}

// lastFencedBlock returns the contents of the last ``` fence in the text,
// tolerating a "json" language tag.
func lastFencedBlock(raw string) (string, bool) {
	var blocks []string
	rest := raw
	for {
		open := strings.Index(rest, "```")
		if open == -1 {
			break
		}
		rest = rest[open+3:]
		closeIdx := strings.Index(rest, "```")
		if closeIdx == -1 {
			break
		}
		body := rest[:closeIdx]
		rest = rest[closeIdx+3:]
		body = strings.TrimPrefix(strings.TrimSpace(body), "json")
		body = strings.TrimSpace(body)
		if body != "" {
			blocks = append(blocks, body)
		}
	}
	for i := len(blocks) - 1; i >= 0; i-- {
		if strings.HasPrefix(blocks[i], "{") || strings.HasPrefix(blocks[i], "[") {
			return blocks[i], true
		}
	}
	return "", false
}

// Repair applies the repair stages in order until the document validates:
// strip trailing commas, insert missing commas, balance brackets. Each stage
// is a no-op on input it cannot improve.
func Repair(doc string) (string, error) {
	if gjson.Valid(doc) {
		return doc, nil
	}
	stages := []func(string) string{
		stripTrailingCommas,
		insertMissingCommas,
		balanceBrackets,
	}
	// Two passes: balancing can expose a trailing comma that the first
	// strip pass ran too early to see.
	for pass := 0; pass < 2; pass++ {
		for _, stage := range stages {
			doc = stage(doc)
			if gjson.Valid(doc) {
				return doc, nil
			}
		}
	}
	return "", fmt.Errorf("%w: response remains invalid after repair", core.ErrUnparseableResponse)
}

// Clean runs extraction and repair in one step.
func Clean(raw string) (string, error) {
	doc, err := Extract(raw)
	if err != nil {
		return "", err
	}
	return Repair(doc)
}

// stripTrailingCommas removes commas that directly precede a closing bracket,
// outside string literals.
func stripTrailingCommas(doc string) string {
	var b strings.Builder
	b.Grow(len(doc))
	inString, escaped := false, false
	for i := 0; i < len(doc); i++ {
		c := doc[i]
		if inString {
			b.WriteByte(c)
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			b.WriteByte(c)
			continue
		}
		if c == ',' {
			j := i + 1
			for j < len(doc) && isSpace(doc[j]) {
				j++
			}
			if j < len(doc) && (doc[j] == '}' || doc[j] == ']') {
				continue
			}
		}
		b.WriteByte(c)
	}
	return b.String()
}

// insertMissingCommas adds a comma between a closing bracket or string and a
// following opening brace or quoted key on a new line. This covers the common
// model slip of dropping the separator between array elements or object
// members.
func insertMissingCommas(doc string) string {
	var b strings.Builder
	b.Grow(len(doc) + 8)
	inString, escaped := false, false
	for i := 0; i < len(doc); i++ {
		c := doc[i]
		b.WriteByte(c)
		if inString {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		if c == '"' {
			inString = true
			continue
		}
		if c != '}' && c != ']' {
			continue
		}
		j := i + 1
		sawNewline := false
		for j < len(doc) && isSpace(doc[j]) {
			if doc[j] == '\n' {
				sawNewline = true
			}
			j++
		}
		if j < len(doc) && sawNewline && (doc[j] == '{' || doc[j] == '[' || doc[j] == '"') {
			b.WriteByte(',')
		}
	}
	return b.String()
}

// balanceBrackets appends the closers needed to balance unclosed braces and
// brackets, up to a bounded nesting depth. An unterminated string is closed
// first.
func balanceBrackets(doc string) string {
	var stack []byte
	inString, escaped := false, false
	for i := 0; i < len(doc); i++ {
		c := doc[i]
		if inString {
			if escaped {
				escaped = false
			} else if c == '\\' {
				escaped = true
			} else if c == '"' {
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) > 0 && stack[len(stack)-1] == c {
				stack = stack[:len(stack)-1]
			}
		}
	}
	if len(stack) > maxNestingDepth {
		return doc
	}
	var b strings.Builder
	b.WriteString(doc)
	if inString {
		b.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String()
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
