package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailbox struct {
	messages []RawMessage
	err      error
}

func (f *fakeMailbox) FetchMessages(ctx context.Context, max int) ([]RawMessage, error) {
	return f.messages, f.err
}

// keywordVectorizer and routingModel key the verdict off the message content
// so results stay deterministic under concurrent classification.
type keywordVectorizer struct{}

func (keywordVectorizer) Transform(text string) (map[int]float64, error) {
	for keyword, idx := range map[string]int{"alpha": 1, "beta": 2, "gamma": 3} {
		if strings.Contains(text, keyword) {
			return map[int]float64{idx: 1}, nil
		}
	}
	return map[int]float64{}, nil
}

type routingModel struct{}

func (routingModel) Classes() []int { return []int{0, 1} }

func (routingModel) Predict(features map[int]float64) (int, []float64, error) {
	switch {
	case features[1] != 0:
		return 1, []float64{0.1, 0.9}, nil
	case features[2] != 0:
		return 0, []float64{0.95, 0.05}, nil
	case features[3] != 0:
		return 1, []float64{0.4, 0.6}, nil
	}
	return 0, []float64{1, 0}, nil
}

func rawEmail(subject, body string) []byte {
	return []byte("From: someone@example.com\r\nSubject: " + subject + "\r\n\r\n" + body)
}

func TestScanner_AggregatesResults(t *testing.T) {
	mailbox := &fakeMailbox{messages: []RawMessage{
		{ID: "m1", Raw: rawEmail("A", "alpha")},
		{ID: "m2", Raw: rawEmail("B", "beta")},
		{ID: "m3", Raw: rawEmail("C", "gamma")},
	}}
	scanner := NewScanner(mailbox, NewClassifier(keywordVectorizer{}, routingModel{}))

	outcome, err := scanner.Scan(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, 3, outcome.TotalEmails)
	assert.Equal(t, 2, outcome.SpamCount)
	assert.Equal(t, 1, outcome.LegitimateCount)
	assert.Equal(t, 66.67, outcome.SpamPercentage)
	assert.InDelta(t, 0.75, outcome.AvgSpamConfidence, 1e-9)
	assert.InDelta(t, 0.95, outcome.AvgLegitConfidence, 1e-9)
	assert.Equal(t, "Successfully scanned 3 emails", outcome.Message)

	// Partitions keep fetch order.
	require.Len(t, outcome.SpamEmails, 2)
	assert.Equal(t, "m1", outcome.SpamEmails[0].EmailID)
	assert.Equal(t, "m3", outcome.SpamEmails[1].EmailID)
	require.Len(t, outcome.LegitimateEmails, 1)
	assert.Equal(t, "m2", outcome.LegitimateEmails[0].EmailID)

	spam := outcome.SpamEmails[0]
	assert.Equal(t, "A", spam.Subject)
	assert.Equal(t, "someone@example.com", spam.Sender)
	assert.True(t, spam.IsSpam)
	assert.Equal(t, "🚨 SPAM", spam.Classification)
	assert.Equal(t, 0.9, spam.Confidence)
}

func TestScanner_EmptyMailbox(t *testing.T) {
	scanner := NewScanner(&fakeMailbox{}, NewClassifier(keywordVectorizer{}, routingModel{}))

	outcome, err := scanner.Scan(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, 0, outcome.TotalEmails)
	assert.Equal(t, "No emails found", outcome.Message)
	assert.NotNil(t, outcome.SpamEmails)
	assert.Empty(t, outcome.SpamEmails)
}

func TestScanner_FetchFailureAbortsScan(t *testing.T) {
	scanner := NewScanner(&fakeMailbox{err: ErrProviderUnavailable}, NewClassifier(keywordVectorizer{}, routingModel{}))

	_, err := scanner.Scan(context.Background(), 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestScanner_LongBodyIsPreviewTruncated(t *testing.T) {
	body := "beta " + strings.Repeat("x", 500)
	mailbox := &fakeMailbox{messages: []RawMessage{
		{ID: "m1", Raw: rawEmail("Long", body)},
	}}
	scanner := NewScanner(mailbox, NewClassifier(keywordVectorizer{}, routingModel{}))

	outcome, err := scanner.Scan(context.Background(), 10)
	require.NoError(t, err)

	require.Len(t, outcome.LegitimateEmails, 1)
	preview := outcome.LegitimateEmails[0].Preview
	assert.True(t, strings.HasSuffix(preview, "..."))
	assert.Len(t, []rune(preview), contentPreviewLength+3)
}
