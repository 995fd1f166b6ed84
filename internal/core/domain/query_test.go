package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryTerms(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"drops stop words", "What is the leave policy?", []string{"leave", "policy"}},
		{"drops short words", "an ox ran far", []string{"ran", "far"}},
		{"lower cases and dedupes", "Policy POLICY policy rules", []string{"policy", "rules"}},
		{"corpus words are stop words", "summarise this document", []string{"summarise"}},
		{"only stop words", "what is this", []string{}},
		{"punctuation splits", "vacation,holiday;sick-leave", []string{"vacation", "holiday", "sick", "leave"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, QueryTerms(tt.query))
		})
	}
}

func TestQueryTerms_Capped(t *testing.T) {
	words := make([]string, 0, 20)
	for i := 0; i < 20; i++ {
		words = append(words, "term"+string(rune('a'+i)))
	}

	terms := QueryTerms(strings.Join(words, " "))

	assert.Len(t, terms, MaxQueryTerms)
	assert.Equal(t, "terma", terms[0])
}

func TestIsStopWord(t *testing.T) {
	assert.True(t, IsStopWord("The"))
	assert.True(t, IsStopWord("documents"))
	assert.False(t, IsStopWord("policy"))
}

func TestNormaliseQuery(t *testing.T) {
	assert.Equal(t, "leave policy", NormaliseQuery("  Leave Policy \n"))
}

func TestFoldCase(t *testing.T) {
	assert.Equal(t, "über die reisekosten", FoldCase("ÜBER DIE Reisekosten"))
	assert.Equal(t, "über", NormaliseQuery("  Über "))
}
