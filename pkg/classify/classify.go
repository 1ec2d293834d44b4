// Package classify rejects questions that are clearly outside the domain of
// system diagnostics before any model call is made.
package classify

import (
	"strings"
	"unicode"
)

// Reason identifies why a question was judged unsupported.
type Reason string

const (
	ReasonSupported        Reason = "supported"
	ReasonEmptyInput       Reason = "empty_input"
	ReasonGibberish        Reason = "gibberish"
	ReasonGreeting         Reason = "greeting"
	ReasonConversational   Reason = "conversational"
	ReasonBeyondCapability Reason = "beyond_capability"
)

// FailFastThreshold is the minimum confidence at which an unsupported
// classification short-circuits the answer loop.
const FailFastThreshold = 0.8

// Result is the outcome of Classify.
type Result struct {
	Reason     Reason  `json:"reason"`
	Confidence float64 `json:"confidence"`
}

// Supported reports whether the question should proceed to the engine.
// Low-confidence rejections fail open.
func (r Result) Supported() bool {
	return r.Reason == ReasonSupported || r.Confidence < FailFastThreshold
}

// Explanation returns the user-facing text for an unsupported result.
func (r Result) Explanation() string {
	switch r.Reason {
	case ReasonEmptyInput:
		return "I received an empty question. Please ask something specific about your system."
	case ReasonGibberish:
		return "I could not understand the question. Please rephrase clearly."
	case ReasonGreeting:
		return "Hello! I'm Anna, your Linux system assistant. Ask me about your system: CPU, RAM, disk, services, logs and more."
	case ReasonConversational:
		return "I am a system assistant focused on Linux questions. I cannot help with general conversation or philosophy."
	case ReasonBeyondCapability:
		return "This request is beyond my current capabilities. I can only answer questions and run safe read-only commands."
	}
	return ""
}

var greetings = map[string]bool{
	"hi": true, "hello": true, "hey": true, "yo": true, "sup": true, "greetings": true,
}

var conversationalPatterns = []string{
	"meaning of life",
	"what do you think about",
	"tell me a joke",
	"tell me a story",
	"how are you feeling",
	"do you have feelings",
	"are you alive",
	"who created you",
	"what's your favorite",
	"can you write me a poem",
	"write me a story",
	"let's chat",
	"let's talk",
	"what's the weather",
	"politics",
	"religion",
}

var beyondPatterns = []string{
	"delete everything",
	"format my disk",
	"rm -rf",
	"drop table",
	"hack ",
	"crack ",
	"break into",
	"exploit ",
	"ddos",
	"make me a website",
	"build me an app",
	"write code for",
	"create a program",
}

// Classify matches the question against known non-system topics. It is pure
// and deterministic; anything not matched is Supported.
func Classify(question string) Result {
	q := strings.ToLower(strings.TrimSpace(question))

	if q == "" {
		return Result{Reason: ReasonEmptyInput, Confidence: 1.0}
	}
	if len(q) < 3 && !allLetters(q) {
		return Result{Reason: ReasonGibberish, Confidence: 0.9}
	}
	if greetings[strings.TrimRight(q, "!.?")] {
		return Result{Reason: ReasonGreeting, Confidence: 0.95}
	}
	// Apostrophe variants are folded so "what’s the weather" still matches.
	q = strings.ReplaceAll(q, "’", "'")
	for _, p := range conversationalPatterns {
		if strings.Contains(q, p) {
			return Result{Reason: ReasonConversational, Confidence: 0.85}
		}
	}
	for _, p := range beyondPatterns {
		if strings.Contains(q, p) {
			return Result{Reason: ReasonBeyondCapability, Confidence: 0.9}
		}
	}
	return Result{Reason: ReasonSupported}
}

func allLetters(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
