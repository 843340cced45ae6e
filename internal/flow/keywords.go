package flow

import (
	"strings"

	"github.com/cortexhub/orchestrator-gateway/internal/extract"
)

// Reply is what a confirming turn said, as far as keywords can tell.
type Reply struct {
	Affirm bool
	Deny   bool
	Edit   bool
}

// ReplyClassifier reads confirm/deny/edit intent from a turn.
type ReplyClassifier interface {
	Classify(text string) Reply
}

// KeywordSet holds the phrases of one locale.
type KeywordSet struct {
	Affirm []string
	Deny   []string
	Edit   []string
}

// Locales are the built-in keyword sets.
var Locales = map[string]KeywordSet{
	"vi": {
		Affirm: []string{"đồng ý", "dong y", "xác nhận", "xac nhan", "đúng", "dung", "oke", "ừ", "tạo", "tao", "tạo đi", "làm đi"},
		Deny:   []string{"không", "khong", "hủy", "huy", "bỏ qua", "bo qua", "thôi"},
		Edit:   []string{"sửa", "sua", "chỉnh", "chinh", "chỉnh sửa", "chinh sua", "đổi", "doi", "sửa lại", "đổi lại", "thay đổi"},
	},
	"en": {
		Affirm: []string{"yes", "yep", "yeah", "ok", "okay", "sure", "confirm", "confirmed", "go ahead", "do it", "create it"},
		Deny:   []string{"no", "nope", "cancel", "stop", "abort", "never mind"},
		Edit:   []string{"edit", "change", "modify", "update"},
	},
}

// KeywordClassifier matches whole words and phrases, so "ok" does not fire
// inside "token".
type KeywordClassifier struct {
	affirm [][]string
	deny   [][]string
	edit   [][]string
}

// NewKeywordClassifier merges the keyword sets of the given locales.
// Unknown locales are ignored; with none known, "vi" and "en" are used.
func NewKeywordClassifier(locales ...string) *KeywordClassifier {
	var sets []KeywordSet
	for _, l := range locales {
		if set, ok := Locales[strings.ToLower(l)]; ok {
			sets = append(sets, set)
		}
	}
	if len(sets) == 0 {
		sets = []KeywordSet{Locales["vi"], Locales["en"]}
	}
	return NewKeywordClassifierFromSets(sets...)
}

// NewKeywordClassifierFromSets builds a classifier from custom sets.
func NewKeywordClassifierFromSets(sets ...KeywordSet) *KeywordClassifier {
	k := &KeywordClassifier{}
	for _, s := range sets {
		k.affirm = append(k.affirm, phrases(s.Affirm)...)
		k.deny = append(k.deny, phrases(s.Deny)...)
		k.edit = append(k.edit, phrases(s.Edit)...)
	}
	return k
}

// Classify reports which keyword groups occur in text.
func (k *KeywordClassifier) Classify(text string) Reply {
	words := extract.Words(text)
	return Reply{
		Affirm: containsAny(words, k.affirm),
		Deny:   containsAny(words, k.deny),
		Edit:   containsAny(words, k.edit),
	}
}

func phrases(list []string) [][]string {
	out := make([][]string, 0, len(list))
	for _, p := range list {
		if words := extract.Words(p); len(words) > 0 {
			out = append(out, words)
		}
	}
	return out
}

func containsAny(words []string, list [][]string) bool {
	for _, phrase := range list {
		if extract.ContainsPhrase(words, phrase) {
			return true
		}
	}
	return false
}
