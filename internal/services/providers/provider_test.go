package providers

import (
	"context"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestCitationSetDedup(t *testing.T) {
	set := newCitationSet()
	set.add(Citation{URL: "https://a.example", Title: "A", Source: SourcePerplexity})
	set.add(Citation{URL: "https://a.example", Title: "A again", Source: SourcePerplexity})
	set.add(Citation{URL: "https://b.example", Title: "B", Source: SourcePerplexity})
	set.add(Citation{URL: "", Title: "no url", Source: SourcePerplexity})

	got := set.list()
	require.Len(t, got, 2)
	assert.Equal(t, "https://a.example", got[0].URL)
	assert.Equal(t, "A", got[0].Title, "first seen entry wins")
	assert.Equal(t, "https://b.example", got[1].URL)
}

func TestCitationSetListCopies(t *testing.T) {
	set := newCitationSet()
	set.add(Citation{URL: "https://a.example", Title: "A"})

	first := set.list()
	first[0].Title = "mutated"

	second := set.list()
	assert.Equal(t, "A", second[0].Title)
}

func TestSendRespectsContext(t *testing.T) {
	ch := make(chan StreamEvent) // unbuffered so send must block

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, send(ctx, ch, StreamEvent{Text: "x"}))

	ok := make(chan StreamEvent, 1)
	assert.True(t, send(context.Background(), ok, StreamEvent{Text: "x"}))
}

func TestSendFinalSkipsCancelledConsumer(t *testing.T) {
	ch := make(chan StreamEvent, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sendFinal(ctx, ch, StreamEvent{Final: true})
	assert.Empty(t, ch)
}

func TestToOpenAIMessages(t *testing.T) {
	msgs := toOpenAIMessages([]Message{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
	})

	require.Len(t, msgs, 3)
	require.NotNil(t, msgs[0].OfSystem)
	require.NotNil(t, msgs[1].OfUser)
	require.NotNil(t, msgs[2].OfAssistant)
	assert.Equal(t, "hi", msgs[1].OfUser.Content.OfString.Value)
}

func TestSplitSystemMessages(t *testing.T) {
	system, chat := splitSystemMessages([]Message{
		{Role: RoleSystem, Content: "first instruction"},
		{Role: RoleUser, Content: "question"},
		{Role: RoleSystem, Content: "second instruction"},
		{Role: RoleAssistant, Content: "answer"},
	})

	assert.Equal(t, "first instruction\nsecond instruction", system)
	require.Len(t, chat, 2)
	assert.Equal(t, string(sdk.MessageParamRoleUser), string(chat[0].Role))
	assert.Equal(t, string(sdk.MessageParamRoleAssistant), string(chat[1].Role))
}

func TestToGeminiContents(t *testing.T) {
	system, contents := toGeminiContents([]Message{
		{Role: RoleSystem, Content: "ground rules"},
		{Role: RoleUser, Content: "question"},
		{Role: RoleAssistant, Content: "answer"},
	})

	assert.Equal(t, "ground rules", system)
	require.Len(t, contents, 2)
	assert.Equal(t, genai.RoleUser, contents[0].Role)
	assert.Equal(t, "question", contents[0].Parts[0].Text)
	assert.Equal(t, genai.RoleModel, contents[1].Role)
}

func TestNormalizeStopReason(t *testing.T) {
	assert.Equal(t, FinishStop, normalizeStopReason("end_turn"))
	assert.Equal(t, FinishLength, normalizeStopReason("max_tokens"))
	assert.Equal(t, "stop_sequence", normalizeStopReason("stop_sequence"))
}

func TestNormalizeGeminiFinishReason(t *testing.T) {
	assert.Equal(t, FinishStop, normalizeGeminiFinishReason(genai.FinishReasonStop))
	assert.Equal(t, FinishLength, normalizeGeminiFinishReason(genai.FinishReasonMaxTokens))
	assert.Equal(t, "safety", normalizeGeminiFinishReason(genai.FinishReasonSafety))
}

func TestCollectGroundingCitations(t *testing.T) {
	set := newCitationSet()

	collectGroundingCitations(set, nil)
	assert.Empty(t, set.list())

	collectGroundingCitations(set, &genai.GroundingMetadata{
		GroundingChunks: []*genai.GroundingChunk{
			{Web: &genai.GroundingChunkWeb{URI: "https://a.example", Title: "A"}},
			{Web: &genai.GroundingChunkWeb{URI: "https://a.example", Title: "dup"}},
			{Web: nil},
			{Web: &genai.GroundingChunkWeb{URI: "https://b.example", Title: "B"}},
		},
	})

	got := set.list()
	require.Len(t, got, 2)
	assert.Equal(t, SourceGoogleSearch, got[0].Source)
	assert.Equal(t, "A", got[0].Title)
}
