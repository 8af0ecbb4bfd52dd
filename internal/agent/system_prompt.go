package agent

import (
	"fmt"
	"strings"
	"time"

	"github.com/soyeahso/collig/internal/llm"
)

// PromptConfig controls system prompt generation.
type PromptConfig struct {
	Provider string
	Model    string
	Tools    []llm.ToolDefinition
	// FencedTools adds instructions for ```tool_call blocks, for models
	// that do not call tools natively.
	FencedTools bool
	Now         time.Time
	ExtraPrompt string
}

// BuildSystemPrompt constructs the system prompt for the model.
func BuildSystemPrompt(cfg PromptConfig) string {
	var b strings.Builder

	b.WriteString("You are Collig, an intelligent AI co-worker. Use the available tools to assist the user. If you need to write code, use the file system tools.\n\n")

	now := cfg.Now
	if now.IsZero() {
		now = time.Now()
	}
	fmt.Fprintf(&b, "Current date: %s\n", now.Format("Monday, 2006-01-02 15:04"))
	if cfg.Model != "" {
		fmt.Fprintf(&b, "Model: %s (%s)\n", cfg.Model, cfg.Provider)
	}

	if len(cfg.Tools) > 0 {
		b.WriteString("\n## Available Tools\n\n")
		if cfg.FencedTools {
			b.WriteString("You can call tools by outputting a fenced code block with the language tag `tool_call`:\n\n")
			b.WriteString("```tool_call\n{\"tool\": \"tool_name\", \"input\": {\"param\": \"value\"}}\n```\n\n")
			b.WriteString("After a tool is executed, the result will be provided. You may call multiple tools before giving your final response.\n\n")
		}
		for _, t := range cfg.Tools {
			fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
			if cfg.FencedTools && t.InputSchema != "" {
				fmt.Fprintf(&b, "  Input schema: %s\n", t.InputSchema)
			}
		}
	}

	if cfg.ExtraPrompt != "" {
		b.WriteString("\n")
		b.WriteString(cfg.ExtraPrompt)
		b.WriteString("\n")
	}

	return b.String()
}
