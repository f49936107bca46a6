package anchorbuilder

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fencio-dev/guard-sub000/internal/domain/rule"
	"github.com/fencio-dev/guard-sub000/internal/domain/vocab"
	"github.com/fencio-dev/guard-sub000/internal/encoder"
	"github.com/fencio-dev/guard-sub000/internal/guarderr"
	"github.com/fencio-dev/guard-sub000/pkg/vector"
)

// fakeLLM returns a canned response and counts calls.
type fakeLLM struct {
	response json.RawMessage
	err      error
	calls    int
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, schema json.RawMessage) (json.RawMessage, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

// fakeEmbedder hashes text into a deterministic 384-dim vector.
type fakeEmbedder struct{}

func (fakeEmbedder) Dim() int { return encoder.BaseDim }

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out := make([]float32, encoder.BaseDim)
	var h uint32 = 2166136261
	for i := 0; i < len(text); i++ {
		h = (h ^ uint32(text[i])) * 16777619
	}
	for i := range out {
		h = h*1664525 + 1013904223
		out[i] = float32(int32(h)) / float32(1<<31)
	}
	return out, nil
}

func goodResponse() json.RawMessage {
	return json.RawMessage(`{
		"action":   ["agent reads records from the search database tool", "agent updates a single record through the update tool"],
		"resource": ["the search_database tool exposed by the analytics service", "the update_record tool scoped to analytics data"],
		"data":     ["single internal records without any personally identifiable information", "one internal row fetched for an analytics question"],
		"risk":     ["the caller has already passed required authentication checks", "an authenticated agent acting inside its granted scope"]
	}`)
}

func testRule() *rule.Rule {
	return &rule.Rule{
		RuleID:       "r-whitelist-1",
		FamilyID:     rule.FamilyToolWhitelist,
		Layer:        vocab.LayerL4,
		TenantID:     "t1",
		AgentID:      "analytics-agent",
		Priority:     50,
		Enabled:      true,
		Thresholds:   rule.Thresholds{0.85, 0.80, 0.75, 0.70},
		DecisionMode: rule.DecisionModeMin,
		Params:       json.RawMessage(`{"allowed_tool_ids":["search_database","update_record"]}`),
	}
}

func TestBuildRuleAnchors(t *testing.T) {
	llm := &fakeLLM{response: goodResponse()}
	b, err := New(llm)
	require.NoError(t, err)

	texts, err := b.BuildRuleAnchors(context.Background(), testRule())
	require.NoError(t, err)
	require.Len(t, texts.Action, 2)
	require.Len(t, texts.Resource, 2)
	require.Len(t, texts.Data, 2)
	require.Len(t, texts.Risk, 2)
	require.Equal(t, 1, llm.calls)
}

func TestBuildRuleAnchorsCacheHit(t *testing.T) {
	llm := &fakeLLM{response: goodResponse()}
	b, err := New(llm)
	require.NoError(t, err)

	first, err := b.BuildRuleAnchors(context.Background(), testRule())
	require.NoError(t, err)
	second, err := b.BuildRuleAnchors(context.Background(), testRule())
	require.NoError(t, err)

	require.Equal(t, 1, llm.calls, "identical rule must not re-call the LLM")
	require.Equal(t, first, second)
	require.Equal(t, 1, b.CacheLen())
}

func TestBuildRuleAnchorsVersionTagForcesRegeneration(t *testing.T) {
	llm := &fakeLLM{response: goodResponse()}
	b1, err := New(llm)
	require.NoError(t, err)
	_, err = b1.BuildRuleAnchors(context.Background(), testRule())
	require.NoError(t, err)

	b2, err := New(llm, WithVersionTag("v2"))
	require.NoError(t, err)
	_, err = b2.BuildRuleAnchors(context.Background(), testRule())
	require.NoError(t, err)
	require.Equal(t, 2, llm.calls)
}

func TestBuildRuleAnchorsLLMErrorIsHardFailure(t *testing.T) {
	llm := &fakeLLM{err: errors.New("upstream timeout")}
	b, err := New(llm)
	require.NoError(t, err)

	_, err = b.BuildRuleAnchors(context.Background(), testRule())
	require.Error(t, err)
	require.True(t, guarderr.Is(err, guarderr.KindAnchorGenerationFailure))
	require.Equal(t, 0, b.CacheLen(), "failures are not cached")
}

func TestBuildRuleAnchorsSchemaViolations(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"not json", `anchors: yes`},
		{"missing slot", `{"action":["five words about agent reads","agent reads one more record"],"resource":["the search database tool here","a second resource anchor string"],"data":["single internal records only here","one more data anchor text"]}`},
		{"too few entries", `{"action":["only one anchor string here"],"resource":["the search database tool here","a second resource anchor string"],"data":["single internal records only here","one more data anchor text"],"risk":["required authentication already passed here","a second risk anchor string"]}`},
		{"wrong type", `{"action":[1,2],"resource":["the search database tool here","a second resource anchor string"],"data":["single internal records only here","one more data anchor text"],"risk":["required authentication already passed here","a second risk anchor string"]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			llm := &fakeLLM{response: json.RawMessage(tc.raw)}
			b, err := New(llm)
			require.NoError(t, err)
			_, err = b.BuildRuleAnchors(context.Background(), testRule())
			require.Error(t, err)
			require.True(t, guarderr.Is(err, guarderr.KindAnchorGenerationFailure))
		})
	}
}

func TestBuildRuleAnchorsVocabularyGuard(t *testing.T) {
	// "action: drop_table" names the action enum with a value outside the
	// vocabulary; the guard must reject the whole generation.
	bad := json.RawMessage(`{
		"action":   ["action: drop_table | actor_type: agent performing it", "agent reads records from the search database"],
		"resource": ["the search database tool exposed by analytics", "the update record tool scoped to analytics"],
		"data":     ["single internal records without personal data", "one internal row fetched per request"],
		"risk":     ["the caller passed required authentication checks", "an authenticated agent inside granted scope"]
	}`)
	llm := &fakeLLM{response: bad}
	b, err := New(llm)
	require.NoError(t, err)

	_, err = b.BuildRuleAnchors(context.Background(), testRule())
	require.Error(t, err)
	require.True(t, guarderr.Is(err, guarderr.KindAnchorGenerationFailure))
}

func TestBuildRuleAnchorsWordCountGuard(t *testing.T) {
	short := json.RawMessage(`{
		"action":   ["too short here", "agent reads records from the search database"],
		"resource": ["the search database tool exposed by analytics", "the update record tool scoped to analytics"],
		"data":     ["single internal records without personal data", "one internal row fetched per request"],
		"risk":     ["the caller passed required authentication checks", "an authenticated agent inside granted scope"]
	}`)
	llm := &fakeLLM{response: short}
	b, err := New(llm)
	require.NoError(t, err)

	_, err = b.BuildRuleAnchors(context.Background(), testRule())
	require.Error(t, err)
	require.True(t, guarderr.Is(err, guarderr.KindAnchorGenerationFailure))
}

func TestEncodeAnchors(t *testing.T) {
	llm := &fakeLLM{response: goodResponse()}
	b, err := New(llm)
	require.NoError(t, err)
	texts, err := b.BuildRuleAnchors(context.Background(), testRule())
	require.NoError(t, err)

	contract, err := vocab.Load()
	require.NoError(t, err)
	anchors, err := EncodeAnchors(context.Background(), fakeEmbedder{}, contract, texts)
	require.NoError(t, err)
	for _, s := range vector.Slots {
		require.Equal(t, 2, anchors.Count[s])
		for i := 0; i < anchors.Count[s]; i++ {
			require.InDelta(t, 1.0, float64(vector.Norm(anchors.Vectors[s][i][:])), 1e-5)
		}
		// Padding rows stay exactly zero.
		for i := anchors.Count[s]; i < vector.MaxAnchorsPerSlot; i++ {
			require.Equal(t, vector.Slot32{}, anchors.Vectors[s][i])
		}
	}
}

func TestEncodeAnchorsEmptySlotFails(t *testing.T) {
	contract, err := vocab.Load()
	require.NoError(t, err)
	texts := &Texts{
		Action:   []string{"agent reads records from the search database"},
		Resource: []string{"the search database tool exposed by analytics"},
		Data:     []string{"single internal records without personal data"},
		Risk:     nil,
	}
	_, err = EncodeAnchors(context.Background(), fakeEmbedder{}, contract, texts)
	require.Error(t, err)
	require.True(t, guarderr.Is(err, guarderr.KindAnchorGenerationFailure))
}
