package briefing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockwatch/stockwatch/internal/common"
	"github.com/stockwatch/stockwatch/internal/entity"
	"github.com/stockwatch/stockwatch/internal/llm"
	"github.com/stockwatch/stockwatch/internal/repository"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubSummarizer struct {
	text string
	err  error
	got  llm.SummaryRequest
}

func (s *stubSummarizer) SummarizeStats(_ context.Context, req llm.SummaryRequest) (string, error) {
	s.got = req
	return s.text, s.err
}

func seed(t *testing.T) *repository.MemoryStore {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemoryStore()
	for i, kv := range [][]any{
		{"품목명", "볼트", "현재 재고", "2"},
		{"품목명", "너트", "현재 재고", "7"},
		{"품목명", "와셔", "현재 재고", "12"},
	} {
		r, err := store.Create(ctx, "g1", i, entity.FieldsOf(kv...))
		require.NoError(t, err)
		r.Baseline = entity.Float64Ptr(10)
		require.NoError(t, store.Put(ctx, r))
	}
	return store
}

func TestBriefTemplateWithoutSummarizer(t *testing.T) {
	svc := NewService(seed(t), nil, quietLogger)
	b, err := svc.Brief(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, SourceTemplate, b.Source)
	assert.Equal(t, Template(b.Stats), b.Text)
	assert.Contains(t, b.Text, "3 rows checked, 3 with a confirmed base stock.")
	assert.Contains(t, b.Text, "2 items are below base stock (total shortage 11): 1 critical, 1 warning.")
	assert.Contains(t, b.Text, "볼트 2/10 (-80%)")
}

func TestBriefFallsBackOnError(t *testing.T) {
	for name, stub := range map[string]*stubSummarizer{
		"error": {err: errors.New("upstream 503")},
		"empty": {text: "   "},
	} {
		t.Run(name, func(t *testing.T) {
			svc := NewService(seed(t), nil, quietLogger, WithSummarizer(stub))
			b, err := svc.Brief(context.Background(), "g1")
			require.NoError(t, err)
			assert.Equal(t, SourceTemplate, b.Source)
			assert.Equal(t, Template(b.Stats), b.Text)
		})
	}
}

func TestFallbackCause(t *testing.T) {
	assert.Equal(t, "LLM_UNAVAILABLE", fallbackCause(common.NewAppError("LLM_UNAVAILABLE", "openai answered status 503", common.ErrUnavailable)))
	assert.Equal(t, "TIMEOUT", fallbackCause(context.DeadlineExceeded))
	assert.Equal(t, "UNKNOWN", fallbackCause(errors.New("boom")))
}

func TestBriefUsesSummarizer(t *testing.T) {
	stub := &stubSummarizer{text: " 볼트 is critically low. "}
	svc := NewService(seed(t), nil, quietLogger, WithSummarizer(stub), WithTopN(1), WithPromptRunes(500))
	b, err := svc.Brief(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, SourceLLM, b.Source)
	assert.Equal(t, "볼트 is critically low.", b.Text)

	require.Len(t, stub.got.TopShortages, 1)
	assert.Equal(t, "볼트", stub.got.TopShortages[0].ItemName)
	assert.Equal(t, 2, stub.got.LowStockCount)
	assert.Equal(t, 500, stub.got.MaxPromptRunes)
}

func TestBriefEmptyGroup(t *testing.T) {
	svc := NewService(repository.NewMemoryStore(), nil, quietLogger)
	b, err := svc.Brief(context.Background(), "missing")
	require.NoError(t, err)
	assert.Equal(t, 0, b.Stats.TotalRows)
	assert.True(t, strings.HasPrefix(b.Text, "0 rows checked"))
	assert.NotNil(t, b.Stats.LowStockItems)
}
