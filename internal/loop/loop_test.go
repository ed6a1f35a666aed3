package loop

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/steveyegge/memctl/internal/injection"
	"github.com/steveyegge/memctl/internal/recall"
	"github.com/steveyegge/memctl/internal/types"
)

// stubBackend returns a brand-new item id on every MatchAll call,
// regardless of terms, so recall always surfaces "new" items unless a
// test arranges otherwise.
type stubBackend struct {
	calls int
}

func (s *stubBackend) MatchAll(ctx context.Context, terms []string, scope string, limit int) ([]types.MemoryItem, error) {
	s.calls++
	return []types.MemoryItem{{ID: fmt.Sprintf("item-%d", s.calls), Title: "t", Content: "c", Tier: types.TierSTM}}, nil
}

func (s *stubBackend) MatchPrefixAll(ctx context.Context, terms []string, scope string, limit int) ([]types.MemoryItem, error) {
	return nil, nil
}

func (s *stubBackend) MatchAny(ctx context.Context, terms []string, scope string, limit int) ([]recall.RankedMatch, error) {
	return nil, nil
}

func (s *stubBackend) MatchLike(ctx context.Context, terms []string, scope string, limit int) ([]types.MemoryItem, error) {
	return nil, nil
}

func (s *stubBackend) TokenizerStems(ctx context.Context) (bool, error) {
	return false, nil
}

// fixedIDBackend always returns the same item, already present in the
// caller's initial context, so recall never yields anything new.
type fixedIDBackend struct{}

func (fixedIDBackend) MatchAll(ctx context.Context, terms []string, scope string, limit int) ([]types.MemoryItem, error) {
	return []types.MemoryItem{{ID: "seen", Title: "t", Content: "c", Tier: types.TierSTM}}, nil
}
func (fixedIDBackend) MatchPrefixAll(ctx context.Context, terms []string, scope string, limit int) ([]types.MemoryItem, error) {
	return nil, nil
}
func (fixedIDBackend) MatchAny(ctx context.Context, terms []string, scope string, limit int) ([]recall.RankedMatch, error) {
	return nil, nil
}
func (fixedIDBackend) MatchLike(ctx context.Context, terms []string, scope string, limit int) ([]types.MemoryItem, error) {
	return nil, nil
}
func (fixedIDBackend) TokenizerStems(ctx context.Context) (bool, error) {
	return false, nil
}

// deterministicBackend derives an item id from the query terms alone,
// so the same query always resolves to the same item id across runs —
// the property ReplayTrace depends on.
type deterministicBackend struct{}

func (deterministicBackend) MatchAll(ctx context.Context, terms []string, scope string, limit int) ([]types.MemoryItem, error) {
	id := "item-" + strings.Join(terms, "-")
	return []types.MemoryItem{{ID: id, Title: "t", Content: "c", Tier: types.TierSTM}}, nil
}
func (deterministicBackend) MatchPrefixAll(ctx context.Context, terms []string, scope string, limit int) ([]types.MemoryItem, error) {
	return nil, nil
}
func (deterministicBackend) MatchAny(ctx context.Context, terms []string, scope string, limit int) ([]recall.RankedMatch, error) {
	return nil, nil
}
func (deterministicBackend) MatchLike(ctx context.Context, terms []string, scope string, limit int) ([]types.MemoryItem, error) {
	return nil, nil
}
func (deterministicBackend) TokenizerStems(ctx context.Context) (bool, error) {
	return false, nil
}

func TestRunStopsOnLLMStop(t *testing.T) {
	invoker := &MockInvoker{Responses: []string{`{"stop":true}` + "\nthe answer"}}
	result, err := Run(context.Background(), &stubBackend{}, nil, invoker, "question", nil, Options{Protocol: ProtocolJSON})
	assert.NoError(t, err)
	assert.Equal(t, types.StopLLMStop, result.StopCondition)
	assert.Equal(t, 1, result.Iterations)
}

func TestRunStopsOnLLMStopPassiveSingleIteration(t *testing.T) {
	invoker := &MockInvoker{Responses: []string{"plain answer, no control signal"}}
	result, err := Run(context.Background(), &stubBackend{}, nil, invoker, "question", nil, Options{Protocol: ProtocolPassive, MaxCalls: 5})
	assert.NoError(t, err)
	assert.Equal(t, types.StopLLMStop, result.StopCondition)
	assert.Equal(t, 1, result.Iterations)
}

func TestRunStopsOnFixedPoint(t *testing.T) {
	invoker := &MockInvoker{Responses: []string{
		`{"need_more":true,"query":"first query"}` + "\nsame answer text",
		`{"need_more":true,"query":"second query"}` + "\nsame answer text",
		`{"need_more":true,"query":"third query"}` + "\nsame answer text",
	}}
	result, err := Run(context.Background(), &stubBackend{}, nil, invoker, "question", nil, Options{Protocol: ProtocolJSON, MaxCalls: 5})
	assert.NoError(t, err)
	assert.Equal(t, types.StopFixedPoint, result.StopCondition)
	assert.Equal(t, 3, result.Iterations)
}

func TestRunStopsOnQueryCycle(t *testing.T) {
	invoker := &MockInvoker{Responses: []string{
		`{"need_more":true,"query":"auth flow details"}` + "\nalpha beta gamma",
		`{"need_more":true,"query":"auth flow details"}` + "\ndelta epsilon zeta",
	}}
	result, err := Run(context.Background(), &stubBackend{}, nil, invoker, "question", nil, Options{Protocol: ProtocolJSON, MaxCalls: 5})
	assert.NoError(t, err)
	assert.Equal(t, types.StopQueryCycle, result.StopCondition)
	assert.Equal(t, 2, result.Iterations)
}

func TestRunStopsOnNoNewItems(t *testing.T) {
	initial := []injection.Item{{ID: "seen", Tier: types.TierSTM, Title: "t", Content: "c"}}
	invoker := &MockInvoker{Responses: []string{`{"need_more":true,"query":"same thing"}` + "\nanswer"}}
	result, err := Run(context.Background(), fixedIDBackend{}, nil, invoker, "question", initial, Options{Protocol: ProtocolJSON, MaxCalls: 5})
	assert.NoError(t, err)
	assert.Equal(t, types.StopNoNewItems, result.StopCondition)
	assert.Equal(t, 1, result.Iterations)
}

func TestRunStopsOnMaxCalls(t *testing.T) {
	invoker := &MockInvoker{Responses: []string{
		`{"need_more":true,"query":"first distinct query"}` + "\nanswer alpha",
		`{"need_more":true,"query":"second distinct query"}` + "\nanswer beta completely different",
	}}
	result, err := Run(context.Background(), &stubBackend{}, nil, invoker, "question", nil, Options{Protocol: ProtocolJSON, MaxCalls: 2})
	assert.NoError(t, err)
	assert.Equal(t, types.StopMaxCalls, result.StopCondition)
	assert.Equal(t, 2, result.Iterations)
}

func TestReplayTraceReproducesRecordedRecalls(t *testing.T) {
	invoker := &MockInvoker{Responses: []string{
		`{"need_more":true,"query":"alpha topic"}` + "\nans1",
		`{"stop":true}` + "\nans2",
	}}
	result, err := Run(context.Background(), deterministicBackend{}, nil, invoker, "question", nil, Options{Protocol: ProtocolJSON, MaxCalls: 5})
	assert.NoError(t, err)
	assert.Equal(t, types.StopLLMStop, result.StopCondition)

	err = ReplayTrace(context.Background(), deterministicBackend{}, nil, "", "", result.Trace)
	assert.NoError(t, err)
}

func TestReplayTraceFailsWhenStoreDrifts(t *testing.T) {
	invoker := &MockInvoker{Responses: []string{
		`{"need_more":true,"query":"alpha topic"}` + "\nans1",
		`{"stop":true}` + "\nans2",
	}}
	result, err := Run(context.Background(), deterministicBackend{}, nil, invoker, "question", nil, Options{Protocol: ProtocolJSON, MaxCalls: 5})
	assert.NoError(t, err)

	err = ReplayTrace(context.Background(), fixedIDBackend{}, nil, "", "", result.Trace)
	assert.Error(t, err)
}
