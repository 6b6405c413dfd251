package memory

import "unicode/utf8"

// charsPerToken is the usual rule of thumb for English text.
const charsPerToken = 4

// EstimateTokens approximates the token cost of text as ceil(chars/4),
// counting characters as Unicode code points. It knows nothing about any
// real tokenizer vocabulary.
func EstimateTokens(text string) int {
	n := utf8.RuneCountInString(text)
	return (n + charsPerToken - 1) / charsPerToken
}

// EstimateMessages sums EstimateTokens over every message's content.
func EstimateMessages(msgs []Message) int {
	total := 0
	for _, m := range msgs {
		total += EstimateTokens(m.Content)
	}
	return total
}
