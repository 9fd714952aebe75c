package biz

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"

	"numerologist/cmd/context-service/internal/domain"
)

func testSummaries() []*domain.ConversationSummary {
	return []*domain.ConversationSummary{
		{
			ConversationID:   "c3",
			OccurredAt:       time.Date(2024, 11, 23, 9, 0, 0, 0, time.UTC),
			Topic:            "Life Path Number",
			Insight:          "User resonates with master number 11",
			DiscussedNumbers: []int{1, 11},
		},
		{
			ConversationID:   "c2",
			OccurredAt:       time.Date(2024, 11, 20, 9, 0, 0, 0, time.UTC),
			Topic:            "Expression Number",
			Insight:          "Creative career direction",
			DiscussedNumbers: []int{3},
		},
		{
			ConversationID:   "c1",
			OccurredAt:       time.Date(2024, 11, 2, 9, 0, 0, 0, time.UTC),
			Topic:            "Personal Year",
			DiscussedNumbers: []int{},
		},
	}
}

func TestFormatConversationHistory_Empty(t *testing.T) {
	formatter := NewContextFormatter(runeCounter{}, "", log.DefaultLogger)

	assert.Equal(t, "", formatter.FormatConversationHistory(nil, 500))
	assert.Equal(t, "", formatter.FormatConversationHistory([]*domain.ConversationSummary{}, 500))
	assert.Equal(t, "", formatter.FormatConversationHistory([]*domain.ConversationSummary{nil}, 500))
}

func TestFormatConversationHistory_Layout(t *testing.T) {
	formatter := NewContextFormatter(runeCounter{}, "", log.DefaultLogger)

	got := formatter.FormatConversationHistory(testSummaries(), 10000)

	want := strings.Join([]string{
		"Previous conversations with this user:",
		"1. Nov 23: Life Path Number. Insight: User resonates with master number 11. Numbers: 1, 11",
		"2. Nov 20: Expression Number. Insight: Creative career direction. Numbers: 3",
		"3. Nov 2: Personal Year",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestFormatConversationHistory_CapsNumbers(t *testing.T) {
	formatter := NewContextFormatter(runeCounter{}, "", log.DefaultLogger)
	summaries := []*domain.ConversationSummary{{
		OccurredAt:       time.Date(2024, 11, 23, 0, 0, 0, 0, time.UTC),
		Topic:            "T",
		DiscussedNumbers: []int{1, 11, 22, 33, 7},
	}}

	got := formatter.FormatConversationHistory(summaries, 10000)

	assert.True(t, strings.HasSuffix(got, "1. Nov 23: T. Numbers: 1, 11, 22"), got)
	assert.NotContains(t, got, "33")
	assert.NotContains(t, got, ", 7")
	assert.Len(t, summaries[0].DiscussedNumbers, 5)
}

func TestFormatConversationHistory_TruncatesInsight(t *testing.T) {
	formatter := NewContextFormatter(runeCounter{}, "", log.DefaultLogger)
	summaries := []*domain.ConversationSummary{{
		OccurredAt: time.Date(2024, 11, 23, 0, 0, 0, 0, time.UTC),
		Topic:      "Soul Urge",
		Insight:    strings.Repeat("a", 150),
	}}

	got := formatter.FormatConversationHistory(summaries, 10000)

	assert.True(t, strings.HasSuffix(got, "Insight: "+strings.Repeat("a", MaxInsightRunes)))
	assert.NotContains(t, got, strings.Repeat("a", MaxInsightRunes+1))
}

func TestFormatConversationHistory_MultilineFieldsStayOnOneLine(t *testing.T) {
	formatter := NewContextFormatter(runeCounter{}, "", log.DefaultLogger)
	summaries := []*domain.ConversationSummary{{
		OccurredAt: time.Date(2024, 11, 23, 0, 0, 0, 0, time.UTC),
		Topic:      "Life\nPath.",
		Insight:    "first line\n\nsecond line.",
	}}

	got := formatter.FormatConversationHistory(summaries, 10000)

	assert.Equal(t, "Previous conversations with this user:\n1. Nov 23: Life Path. Insight: first line second line", got)
}

func TestFormatConversationHistory_DropsOldestFirst(t *testing.T) {
	formatter := NewContextFormatter(runeCounter{}, "", log.DefaultLogger)
	summaries := testSummaries()
	twoNewest := renderSummaries(summaries[:2])

	got := formatter.FormatConversationHistory(summaries, len([]rune(twoNewest)))

	assert.Equal(t, twoNewest, got)
	assert.Contains(t, got, "Life Path Number")
	assert.NotContains(t, got, "Personal Year")
}

func TestFormatConversationHistory_FallbackSentence(t *testing.T) {
	formatter := NewContextFormatter(runeCounter{}, "", log.DefaultLogger)
	summaries := testSummaries()
	fallback := fmt.Sprintf("User has %d previous conversations about numerology.", len(summaries))

	// 预算小于任何一条渲染结果但容得下概括句
	got := formatter.FormatConversationHistory(summaries, len(fallback))

	assert.Equal(t, fallback, got)
}

func TestFormatConversationHistory_ZeroBudget(t *testing.T) {
	formatter := NewContextFormatter(runeCounter{}, "", log.DefaultLogger)

	assert.Equal(t, "", formatter.FormatConversationHistory(testSummaries(), 0))
	assert.Equal(t, "", formatter.FormatConversationHistory(testSummaries(), -10))
}

func TestFormatConversationHistory_NeverExceedsBudget(t *testing.T) {
	counter := NewTiktokenCounter(log.DefaultLogger)
	formatter := NewContextFormatter(counter, DefaultTokenModel, log.DefaultLogger)
	summaries := testSummaries()

	for budget := 0; budget <= 120; budget++ {
		got := formatter.FormatConversationHistory(summaries, budget)
		assert.LessOrEqual(t, counter.CountTokens(got, DefaultTokenModel), budget, "budget %d", budget)
	}

	full := formatter.FormatConversationHistory(summaries, 500)
	assert.Equal(t, renderSummaries(summaries), full)
}
