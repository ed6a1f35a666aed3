package mcpserver

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/steveyegge/memctl/internal/ingest"
	"github.com/steveyegge/memctl/internal/policy"
)

func TestArgStringMissingKeyReturnsZeroValue(t *testing.T) {
	sc := &ServerContext{Args: map[string]any{}}
	assert.Equal(t, "", argString(sc, "title"))
}

func TestArgStringWrongTypeReturnsZeroValue(t *testing.T) {
	sc := &ServerContext{Args: map[string]any{"title": 42}}
	assert.Equal(t, "", argString(sc, "title"))
}

func TestArgIntHandlesFloat64FromJSON(t *testing.T) {
	sc := &ServerContext{Args: map[string]any{"limit": float64(20)}}
	assert.Equal(t, 20, argInt(sc, "limit"))
}

func TestArgIntHandlesNativeInt(t *testing.T) {
	sc := &ServerContext{Args: map[string]any{"limit": 7}}
	assert.Equal(t, 7, argInt(sc, "limit"))
}

func TestArgBoolDefaultsFalse(t *testing.T) {
	sc := &ServerContext{Args: map[string]any{}}
	assert.False(t, argBool(sc, "touch"))
}

func TestArgStringsAcceptsNativeSlice(t *testing.T) {
	sc := &ServerContext{Args: map[string]any{"tags": []string{"a", "b"}}}
	assert.Equal(t, []string{"a", "b"}, argStrings(sc, "tags"))
}

func TestArgStringsAcceptsJSONDecodedAnySlice(t *testing.T) {
	sc := &ServerContext{Args: map[string]any{"tags": []any{"a", "b", 3}}}
	assert.Equal(t, []string{"a", "b"}, argStrings(sc, "tags"))
}

func TestArgStringsMissingKeyReturnsNil(t *testing.T) {
	sc := &ServerContext{Args: map[string]any{}}
	assert.Nil(t, argStrings(sc, "tags"))
}

func TestSha256HexIsDeterministic(t *testing.T) {
	a := sha256Hex("same content")
	b := sha256Hex("same content")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, sha256Hex("different"))
}

func TestOrStringFallsBackOnEmpty(t *testing.T) {
	assert.Equal(t, "default", orString("", "default"))
	assert.Equal(t, "explicit", orString("explicit", "default"))
}

func TestRegisterDefaultToolsRegistersAllFifteen(t *testing.T) {
	r := NewRegistry()
	RegisterDefaultTools(r, policy.DefaultEvaluator(), ingest.NewRegistry())

	want := []string{
		"recall", "search", "propose", "write", "read", "stats",
		"consolidate", "mount", "sync", "inspect", "ask", "export",
		"import", "loop", "reindex",
	}
	for _, tool := range want {
		assert.Contains(t, r.handlers, tool)
	}
	assert.Len(t, r.handlers, len(want))
}

func TestRegisterDefaultToolsTwiceOnSameRegistryPanics(t *testing.T) {
	r := NewRegistry()
	ev := policy.DefaultEvaluator()
	reg := ingest.NewRegistry()
	RegisterDefaultTools(r, ev, reg)

	defer func() {
		if recover() == nil {
			t.Error("expected a panic registering the same tool twice")
		}
	}()
	RegisterDefaultTools(r, ev, reg)
}

func TestToolAskErrorsWithoutBoundInvoker(t *testing.T) {
	sc := &ServerContext{Args: map[string]any{"path": "/tmp/nope", "question": "what?"}}
	h := toolAsk(policy.DefaultEvaluator(), ingest.NewRegistry())
	_, err := h(nil, sc)
	assert.Error(t, err)
}

func TestToolLoopErrorsWithoutBoundInvoker(t *testing.T) {
	sc := &ServerContext{Args: map[string]any{"question": "what?"}}
	_, err := toolLoop(nil, sc)
	assert.Error(t, err)
}
