package agent

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/soyeahso/collig/internal/llm"
	"github.com/soyeahso/collig/internal/logging"
)

// fencedCall is the JSON body of a ```tool_call block. Models without
// native tool calling are told to emit these.
type fencedCall struct {
	Tool  string          `json:"tool"`
	Input json.RawMessage `json:"input"`
}

// toolCallRe matches ```tool_call\n{...}\n``` blocks in model output.
var toolCallRe = regexp.MustCompile("(?s)```tool_call\\s*\n(\\{.*?\\})\n\\s*```")

// xmlFuncCallRe matches <function_calls>...</function_calls> blocks.
var xmlFuncCallRe = regexp.MustCompile(`(?s)<function_calls>.*?</function_calls>`)

// xmlBlockLevelRe matches self-contained XML blocks some models emit for
// tool use; replaced with a paragraph break.
var xmlBlockLevelRe = regexp.MustCompile(`(?s)(?:` +
	`<invoke\b[^>]*>.*?</invoke>` +
	`|<tool_call\b[^>]*>.*?</tool_call>` +
	`|<tool_use\b[^>]*>.*?</tool_use>` +
	`)`)

// xmlInlineTagRe matches parameter tags that can appear inline within text.
var xmlInlineTagRe = regexp.MustCompile(`(?s)\s*<parameter\b[^>]*>.*?</parameter>`)

// whitespaceLineRe matches lines containing only horizontal whitespace.
var whitespaceLineRe = regexp.MustCompile(`(?m)^[ \t]+$`)

// blankLineCollapseRe collapses 3+ consecutive newlines to a single blank line.
var blankLineCollapseRe = regexp.MustCompile(`\n{3,}`)

// parseToolCalls extracts ```tool_call blocks from text. Calls get
// positional ids since the provider assigned none.
func parseToolCalls(text string) []llm.ToolCall {
	matches := toolCallRe.FindAllStringSubmatch(text, -1)
	var calls []llm.ToolCall
	for _, match := range matches {
		if len(match) < 2 {
			continue
		}
		var fc fencedCall
		if err := json.Unmarshal([]byte(match[1]), &fc); err != nil {
			continue
		}
		if fc.Tool == "" {
			continue
		}
		input := string(fc.Input)
		if input == "" || input == "null" {
			input = "{}"
		}
		calls = append(calls, llm.ToolCall{
			ID:    fmt.Sprintf("fenced_%d", len(calls)),
			Name:  fc.Tool,
			Input: input,
		})
	}
	return calls
}

// stripToolCalls removes tool-invocation markup from a final answer,
// leaving the surrounding text. Ordinary fenced code blocks are kept
// because the REPL renders markdown.
func stripToolCalls(text string, log *logging.Logger) string {
	cleaned := toolCallRe.ReplaceAllString(text, "\n\n")

	if log != nil {
		for _, m := range xmlFuncCallRe.FindAllString(cleaned, -1) {
			log.Debug().Str("xml", m).Msg("stripped XML function_calls from model output")
		}
	}
	cleaned = xmlFuncCallRe.ReplaceAllString(cleaned, "\n\n")
	cleaned = xmlBlockLevelRe.ReplaceAllString(cleaned, "\n\n")
	cleaned = xmlInlineTagRe.ReplaceAllString(cleaned, "")

	cleaned = whitespaceLineRe.ReplaceAllString(cleaned, "")
	cleaned = blankLineCollapseRe.ReplaceAllString(cleaned, "\n\n")

	return strings.TrimSpace(cleaned)
}

var secretMarkers = []string{"password", "secret", "key", "token", "credential"}

// MaskArgs renders tool arguments as indented JSON with secret-looking
// fields replaced. Non-object input is returned unchanged.
func MaskArgs(input string) string {
	var args map[string]any
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return input
	}
	for k := range args {
		lk := strings.ToLower(k)
		for _, marker := range secretMarkers {
			if strings.Contains(lk, marker) {
				args[k] = "******"
				break
			}
		}
	}
	out, err := json.MarshalIndent(args, "", "  ")
	if err != nil {
		return input
	}
	return string(out)
}
