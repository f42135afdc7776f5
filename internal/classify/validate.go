package classify

import "strings"

const maxAnswerLen = 2000

// ValidateAnswerKey checks one assignment and normalizes its answer text in
// place. Returns false for assignments not worth carrying into reinsertion:
// blank answers and absurdly long ones. Identifier range is deliberately not
// checked here; that is the reinserter's per-assignment concern.
func ValidateAnswerKey(k *AnswerKey) bool {
	if k == nil {
		return false
	}
	k.Answer = strings.TrimSpace(k.Answer)
	if k.Answer == "" || len(k.Answer) > maxAnswerLen {
		return false
	}
	return true
}

// FilterValid drops invalid assignments, preserving order.
func FilterValid(set AnswerKeySet) AnswerKeySet {
	out := AnswerKeySet{AnswerKeys: make([]AnswerKey, 0, len(set.AnswerKeys))}
	for i := range set.AnswerKeys {
		k := set.AnswerKeys[i]
		if ValidateAnswerKey(&k) {
			out.AnswerKeys = append(out.AnswerKeys, k)
		}
	}
	return out
}
