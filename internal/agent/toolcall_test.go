package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseToolCalls(t *testing.T) {
	text := "Let me look.\n\n```tool_call\n{\"tool\": \"get_weather\", \"input\": {\"city\": \"Oslo\"}}\n```\n\n" +
		"```tool_call\n{\"tool\": \"get_current_time\"}\n```\n\n" +
		"```tool_call\n{not json}\n```"

	calls := parseToolCalls(text)
	require.Len(t, calls, 2)
	assert.Equal(t, "get_weather", calls[0].Name)
	assert.JSONEq(t, `{"city":"Oslo"}`, calls[0].Input)
	assert.Equal(t, "fenced_0", calls[0].ID)
	assert.Equal(t, "get_current_time", calls[1].Name)
	assert.Equal(t, "{}", calls[1].Input)
}

func TestParseToolCalls_None(t *testing.T) {
	assert.Empty(t, parseToolCalls("Plain answer with ```go\nfmt.Println()\n``` code."))
}

func TestStripNoChanges(t *testing.T) {
	t.Run("plain text", func(t *testing.T) {
		input := "Just a normal response with no tool calls."
		assert.Equal(t, input, stripToolCalls(input, nil))
	})
	t.Run("markdown preserved", func(t *testing.T) {
		input := "The weather is **sunny** and `warm`."
		assert.Equal(t, input, stripToolCalls(input, nil))
	})
	t.Run("code blocks preserved", func(t *testing.T) {
		input := "Example:\n\n```go\nfmt.Println(\"hi\")\n```\n\nDone."
		assert.Equal(t, input, stripToolCalls(input, nil))
	})
}

func TestStripToolCallCodeBlock(t *testing.T) {
	input := "Here is my answer.\n\n```tool_call\n{\"tool\": \"echo\", \"input\": {\"text\": \"hi\"}}\n```\n\nDone."
	assert.Equal(t, "Here is my answer.\n\nDone.", stripToolCalls(input, nil))
}

func TestStripXMLFunctionCalls(t *testing.T) {
	t.Run("single block", func(t *testing.T) {
		input := "I'll check the weather.\n\n<function_calls>\n<invoke name=\"computer\">\n" +
			"<parameter name=\"action\">bash</parameter>\n</invoke>\n</function_calls>\n\nThe weather is sunny."
		assert.Equal(t, "I'll check the weather.\n\nThe weather is sunny.", stripToolCalls(input, silentLog()))
	})
	t.Run("mixed with tool_call", func(t *testing.T) {
		input := "Intro.\n\n```tool_call\n{\"tool\": \"echo\"}\n```\n\n<function_calls>\n<invoke name=\"x\"/>\n</function_calls>\n\nEnd."
		assert.Equal(t, "Intro.\n\nEnd.", stripToolCalls(input, nil))
	})
}

func TestStripParameterTags(t *testing.T) {
	input := `Hello <parameter name="action">click</parameter> world.`
	assert.Equal(t, "Hello world.", stripToolCalls(input, nil))
}

func TestMaskArgs(t *testing.T) {
	out := MaskArgs(`{"to":"a@b.c","password":"hunter2","api_key":"sk-1"}`)
	assert.Contains(t, out, `"to": "a@b.c"`)
	assert.Contains(t, out, `"password": "******"`)
	assert.Contains(t, out, `"api_key": "******"`)
	assert.NotContains(t, out, "hunter2")

	assert.Equal(t, "not json", MaskArgs("not json"))
}
