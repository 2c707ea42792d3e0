package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/autoapply/internal/fieldmap"
	"github.com/jonathan/autoapply/internal/types"
)

var _ fieldmap.TextGenerator = (*Answerer)(nil)

type fakeClient struct {
	reply   string
	err     error
	prompts []string
	tiers   []ModelTier
}

func (f *fakeClient) GenerateContent(_ context.Context, prompt string, tier ModelTier) (string, error) {
	f.prompts = append(f.prompts, prompt)
	f.tiers = append(f.tiers, tier)
	return f.reply, f.err
}

func (f *fakeClient) Close() error { return nil }

func answerProfile() *types.UserProfile {
	return &types.UserProfile{
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Location:        "London",
		YearsExperience: 7,
		Skills:          []string{"Go", "PostgreSQL", "Kubernetes"},
		WorkHistory: []types.WorkHistoryEntry{
			{Company: "Acme", Title: "Senior Engineer", Summary: "payments platform"},
			{Company: "Initech", Title: "Engineer"},
		},
	}
}

func TestAnswerer_Answer(t *testing.T) {
	client := &fakeClient{reply: "Answer: \"I like hard distributed problems.\""}
	a := NewAnswerer(client)

	got, err := a.Answer(context.Background(), answerProfile(), "What kind of work excites you?")
	require.NoError(t, err)
	assert.Equal(t, "I like hard distributed problems.", got)

	require.Len(t, client.prompts, 1)
	prompt := client.prompts[0]
	assert.Contains(t, prompt, "Ada Lovelace")
	assert.Contains(t, prompt, `"What kind of work excites you?"`)
	assert.Contains(t, prompt, "Go, PostgreSQL, Kubernetes")
	assert.Contains(t, prompt, "- Senior Engineer at Acme: payments platform")
	assert.Contains(t, prompt, "at most 2 sentences")
	assert.Equal(t, TierLite, client.tiers[0])
}

func TestAnswerer_LongFormQuestionsUseStandardTier(t *testing.T) {
	client := &fakeClient{reply: "Because the team ships."}
	a := NewAnswerer(client)

	_, err := a.Answer(context.Background(), answerProfile(), "Why do you want to work here?")
	require.NoError(t, err)
	assert.Equal(t, TierStandard, client.tiers[0])
	assert.Contains(t, client.prompts[0], "at most 5 sentences")
}

func TestAnswerer_Errors(t *testing.T) {
	_, err := NewAnswerer(&fakeClient{}).Answer(context.Background(), answerProfile(), "  ")
	assert.Error(t, err)

	_, err = NewAnswerer(&fakeClient{err: errors.New("quota exceeded")}).Answer(context.Background(), answerProfile(), "Why?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")

	_, err = NewAnswerer(&fakeClient{reply: `""`}).Answer(context.Background(), answerProfile(), "Are you a veteran?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declined")
}

func TestAnswerer_CoverLetter(t *testing.T) {
	client := &fakeClient{reply: strings.Repeat("word ", 800)}
	a := NewAnswerer(client)

	letter, err := a.CoverLetter(context.Background(), &types.UserProfile{FirstName: "Ada", LastName: "Lovelace"})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(letter), MaxCoverLetterChars)
	assert.Equal(t, TierStandard, client.tiers[0])
	assert.Contains(t, client.prompts[0], "(not provided)")
}
