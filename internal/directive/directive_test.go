// ABOUTME: Tests for tool call extraction and the Strip helper.
// ABOUTME: Covers ordering, isolation of malformed spans, and marker removal.

package directive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_NoDirectives(t *testing.T) {
	results := Extract("Here is your summary. Everything is running.")
	assert.Empty(t, results)
}

func TestExtract_SingleDirective(t *testing.T) {
	text := `Creating it now.
<tool_call>{"action": "start_container", "params": {"vmid": 105}}</tool_call>
Done.`

	results := Extract(text)
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "start_container", results[0].Request.Action)
	assert.EqualValues(t, 105, results[0].Request.Params["vmid"])
}

func TestExtract_PreservesOrder(t *testing.T) {
	text := `<tool_call>{"action": "create_container", "params": {"hostname": "web"}}</tool_call>
some narration
<tool_call>{"action": "start_container", "params": {"vmid": 106}}</tool_call>
<tool_call>{"action": "exec_container", "params": {"vmid": 106, "command": "hostname -I"}}</tool_call>`

	results := Extract(text)
	require.Len(t, results, 3)
	assert.Equal(t, "create_container", results[0].Request.Action)
	assert.Equal(t, "start_container", results[1].Request.Action)
	assert.Equal(t, "exec_container", results[2].Request.Action)
}

func TestExtract_MalformedSpanDoesNotAbortOthers(t *testing.T) {
	text := `<tool_call>complete garbage, nothing recoverable</tool_call>
<tool_call>{"action": "list_vms", "params": {}}</tool_call>`

	results := Extract(text)
	require.Len(t, results, 2)
	assert.ErrorIs(t, results[0].Err, ErrMalformed)
	require.NoError(t, results[1].Err)
	assert.Equal(t, "list_vms", results[1].Request.Action)
}

func TestStrip_RemovesAllSpans(t *testing.T) {
	text := `Before.
<tool_call>{"action": "list_vms", "params": {}}</tool_call>
After.`

	clean := Strip(text)
	assert.NotContains(t, clean, "<tool_call>")
	assert.Contains(t, clean, "Before.")
	assert.Contains(t, clean, "After.")
}

func TestStrip_NoSpansIsIdentity(t *testing.T) {
	assert.Equal(t, "plain answer", Strip("  plain answer\n"))
}
