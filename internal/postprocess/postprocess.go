// Package postprocess strips the chatter an LLM wraps around a translation
// so that only the translated sentence reaches the round-trip comparison.
package postprocess

import (
	"regexp"
	"strings"
)

var (
	// Go's RE2 has no backreferences, so each tag pair is spelled out.
	reasoningRe = regexp.MustCompile(`(?is)<think>.*?</think>|<thinking>.*?</thinking>|<reasoning>.*?</reasoning>`)

	// An opened reasoning tag with no closing tag swallows the rest.
	unclosedReasoningRe = regexp.MustCompile(`(?is)(?:<think>|<thinking>|<reasoning>).*$`)

	// Label echoes such as "Translation:" or "Here is the translation:".
	labelRe = regexp.MustCompile(`(?i)^(?:(?:sure|certainly)[,.!]?\s*)?(?:here(?:'s| is) (?:the |your )?)?(?:english |german |japanese )?(?:translation|translated text|text)\s*:\s*`)
)

// quotePairs lists the outer quote pairs removed when they wrap the whole text.
var quotePairs = [][2]rune{
	{'"', '"'},
	{'\'', '\''},
	{'“', '”'},
	{'«', '»'},
	{'「', '」'},
}

// Clean removes reasoning blocks, a leading label echo and one layer of
// wrapping quotes, then trims whitespace.
func Clean(text string) string {
	text = reasoningRe.ReplaceAllString(text, "")
	text = unclosedReasoningRe.ReplaceAllString(text, "")
	text = strings.TrimSpace(text)
	text = labelRe.ReplaceAllString(text, "")
	return strings.TrimSpace(unquote(text))
}

func unquote(text string) string {
	runes := []rune(text)
	if len(runes) < 2 {
		return text
	}
	first, last := runes[0], runes[len(runes)-1]
	for _, p := range quotePairs {
		if first == p[0] && last == p[1] {
			return string(runes[1 : len(runes)-1])
		}
	}
	return text
}
