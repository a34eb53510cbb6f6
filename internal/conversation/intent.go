package conversation

import (
	"strconv"
	"strings"

	"github.com/chatarr/chatarr/internal/media"
)

// IntentType is the coarse classification of an inbound message.
type IntentType string

const (
	IntentCancel       IntentType = "cancel"
	IntentSelection    IntentType = "selection"
	IntentAffirmative  IntentType = "affirmative"
	IntentNegative     IntentType = "negative"
	IntentMediaRequest IntentType = "media_request"
	IntentUnknown      IntentType = "unknown"
)

// Intent is the parsed meaning of one inbound message.
type Intent struct {
	Type      IntentType
	Selection int        // 1-based, set for IntentSelection
	Query     string     // set for IntentMediaRequest
	Kind      media.Kind // set for IntentMediaRequest
}

// Classification precedence is deliberate and ordered: cancel keywords win
// over everything, then number words, then yes/no, then the media-request
// heuristic. "no" lands in the cancel set rather than the negative set, so
// it aborts a confirmation instead of merely declining it.
var cancelWords = map[string]bool{
	"cancel":     true,
	"stop":       true,
	"quit":       true,
	"exit":       true,
	"nevermind":  true,
	"never mind": true,
	"no":         true,
}

var affirmativeWords = map[string]bool{
	"yes":     true,
	"y":       true,
	"yeah":    true,
	"yep":     true,
	"yup":     true,
	"ok":      true,
	"okay":    true,
	"sure":    true,
	"confirm": true,
}

var negativeWords = map[string]bool{
	"nope": true,
	"nah":  true,
}

var wordNumbers = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14, "fifteen": 15,
	"sixteen": 16, "seventeen": 17, "eighteen": 18, "nineteen": 19, "twenty": 20,
}

// Leading tokens stripped from a media request before the remainder is
// treated as the search query. Kind keywords also pin the media kind.
var requestVerbs = map[string]bool{
	"find":     true,
	"search":   true,
	"add":      true,
	"request":  true,
	"get":      true,
	"watch":    true,
	"download": true,
	"please":   true,
	"for":      true,
	"me":       true,
	"a":        true,
	"the":      true,
}

var kindKeywords = map[string]media.Kind{
	"movie":  media.KindMovie,
	"movies": media.KindMovie,
	"film":   media.KindMovie,
	"show":   media.KindSeries,
	"shows":  media.KindSeries,
	"series": media.KindSeries,
	"tv":     media.KindSeries,
}

// Classify parses one inbound message into an intent.
func Classify(text string) Intent {
	normalized := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	if normalized == "" {
		return Intent{Type: IntentUnknown}
	}

	if cancelWords[normalized] {
		return Intent{Type: IntentCancel}
	}

	if n, err := strconv.Atoi(normalized); err == nil {
		if n >= 1 && n <= 99 {
			return Intent{Type: IntentSelection, Selection: n}
		}
		return Intent{Type: IntentUnknown}
	}
	if n, ok := wordNumbers[normalized]; ok {
		return Intent{Type: IntentSelection, Selection: n}
	}

	if affirmativeWords[normalized] {
		return Intent{Type: IntentAffirmative}
	}
	if negativeWords[normalized] {
		return Intent{Type: IntentNegative}
	}

	query, kind := stripRequestPrefix(normalized)
	if len(query) < 2 {
		return Intent{Type: IntentUnknown}
	}
	return Intent{Type: IntentMediaRequest, Query: query, Kind: kind}
}

// stripRequestPrefix removes leading request verbs and kind keywords from a
// message, returning the residual query and the kind implied by any keyword
// encountered anywhere in the message. Kind keywords in trailing position
// ("inception movie") count too.
func stripRequestPrefix(normalized string) (string, media.Kind) {
	words := strings.Fields(normalized)
	kind := media.KindBoth

	start := 0
	for start < len(words) {
		word := words[start]
		if k, ok := kindKeywords[word]; ok {
			kind = k
			start++
			continue
		}
		if requestVerbs[word] {
			start++
			continue
		}
		break
	}

	rest := words[start:]
	// A trailing kind keyword disambiguates without being part of the title.
	if len(rest) > 1 {
		if k, ok := kindKeywords[rest[len(rest)-1]]; ok {
			kind = k
			rest = rest[:len(rest)-1]
		}
	}

	return strings.Join(rest, " "), kind
}
