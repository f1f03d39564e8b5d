package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertToolChunkArgs(t *testing.T) {
	assert.Equal(t, "[{}]", ConvertToolChunkArgs("&#91;&#123;&#125;&#93;"))
	assert.Equal(t, `{"a": [1, 2]}`, ConvertToolChunkArgs(`&#123;"a": &#91;1, 2&#93;&#125;`))
	assert.Equal(t, "no escapes", ConvertToolChunkArgs("no escapes"))
}

func TestParseToolCallArgsEmptyInputs(t *testing.T) {
	for _, raw := range []string{"", "  ", "{", "}"} {
		out := ParseToolCallArgs(raw)
		assert.NotNil(t, out)
		assert.Empty(t, out, "input %q", raw)
	}
}

func TestParseToolCallArgsValidJSON(t *testing.T) {
	out := ParseToolCallArgs(`{"query": "golang", "max_results": 5, "strict": false}`)

	assert.Equal(t, "golang", out["query"])
	assert.Equal(t, float64(5), out["max_results"])
	assert.Equal(t, false, out["strict"])
	assert.NotContains(t, out, "error")
}

func TestParseToolCallArgsRecoversFromTrailingGarbage(t *testing.T) {
	raw := `{"foo": "bar", "ok": true}x`
	out := ParseToolCallArgs(raw)

	assert.Equal(t, "failed to parse tool call arguments", out["error"])
	assert.Equal(t, raw, out["raw"])
	assert.Equal(t, "bar", out["foo"])
	assert.Equal(t, true, out["ok"])
}

func TestParseToolCallArgsRecoversFromTruncation(t *testing.T) {
	out := ParseToolCallArgs(`{"query": "climate change", "limit": 10, "cursor": "abc`)

	require.Contains(t, out, "error")
	assert.Equal(t, "climate change", out["query"])
	assert.Equal(t, float64(10), out["limit"])
}

func TestParseToolCallArgsUnquotesEscapes(t *testing.T) {
	out := ParseToolCallArgs(`{"text": "line\nbreak", "broken": `)

	require.Contains(t, out, "error")
	assert.Equal(t, "line\nbreak", out["text"])
}
