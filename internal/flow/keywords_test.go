package flow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/unicode/norm"
)

func TestKeywordClassifier(t *testing.T) {
	k := NewKeywordClassifier("vi", "en")

	tests := []struct {
		text string
		want Reply
	}{
		{"yes", Reply{Affirm: true}},
		{"OK, go ahead!", Reply{Affirm: true}},
		{"đồng ý", Reply{Affirm: true}},
		{"dong y nhe", Reply{Affirm: true}},
		{"hủy đi", Reply{Deny: true}},
		{"never mind", Reply{Deny: true}},
		{"sửa lại tên", Reply{Edit: true}},
		{"please change the code", Reply{Edit: true}},
		{"my token expired", Reply{}},
		{"notice the dates", Reply{}},
		{"", Reply{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, k.Classify(tt.text), "text %q", tt.text)
	}
}

func TestKeywordClassifier_DecomposedInput(t *testing.T) {
	k := NewKeywordClassifier("vi")
	assert.True(t, k.Classify(norm.NFD.String("xác nhận")).Affirm)
	assert.True(t, k.Classify(norm.NFD.String("không")).Deny)
}

func TestKeywordClassifier_LocaleSelection(t *testing.T) {
	en := NewKeywordClassifier("en")
	assert.False(t, en.Classify("đồng ý").Affirm)
	assert.True(t, en.Classify("yes").Affirm)

	fallback := NewKeywordClassifier("xx")
	assert.True(t, fallback.Classify("đồng ý").Affirm)
	assert.True(t, fallback.Classify("yes").Affirm)
}

func TestKeywordClassifier_CustomSets(t *testing.T) {
	k := NewKeywordClassifierFromSets(KeywordSet{Affirm: []string{"ja"}, Deny: []string{"nein"}})
	assert.Equal(t, Reply{Affirm: true}, k.Classify("Ja bitte"))
	assert.Equal(t, Reply{Deny: true}, k.Classify("nein"))
}
