package dispatch

import (
	"regexp"
	"strings"

	"maunium.net/go/mautrix/id"
)

var reasoningRe = regexp.MustCompile(`(?s)<think>.*?</think>`)

// StripReasoning removes every <think>…</think> span, including spans that
// cross lines. An unclosed <think> is left in place.
func StripReasoning(text string) string {
	return reasoningRe.ReplaceAllString(text, "")
}

// mentionMatcher finds the bot's mention token in a message body.
type mentionMatcher struct {
	token       *regexp.Regexp
	displayName *regexp.Regexp
}

// newMentionMatcher matches <@ID> and <@!ID>, where ID is the user ID with
// or without its sigil or just the localpart, and the bare user ID as a whole
// word. A longer ID that merely starts with the bot's ID does not match.
// When displayName is set, a leading "Name:" or "Name," as written by Matrix
// clients for mention pills is also recognised.
func newMentionMatcher(userID id.UserID, displayName string) *mentionMatcher {
	full := regexp.QuoteMeta(userID.String())
	alts := full + "|" + regexp.QuoteMeta(strings.TrimPrefix(userID.String(), "@"))
	if local := userID.Localpart(); local != "" {
		alts += "|" + regexp.QuoteMeta(local)
	}
	m := &mentionMatcher{
		token: regexp.MustCompile(`<@!?(?:` + alts + `)>|(?:^|[^\w@])(` + full + `)(?:$|[^\w.:-]|[.:-](?:$|\s))`),
	}
	if name := strings.TrimSpace(displayName); name != "" {
		m.displayName = regexp.MustCompile(`^\s*` + regexp.QuoteMeta(name) + `[:,]?(?:\s|$)`)
	}
	return m
}

// Mentioned reports whether body contains the mention token.
func (m *mentionMatcher) Mentioned(body string) bool {
	return m.token.MatchString(body)
}

// Strip removes the first mention token (or a leading display-name prefix)
// and trims the result.
func (m *mentionMatcher) Strip(body string) string {
	if loc := m.token.FindStringSubmatchIndex(body); loc != nil {
		start, end := loc[0], loc[1]
		// Bare form: cut only the ID, not the delimiters around it.
		if loc[2] >= 0 {
			start, end = loc[2], loc[3]
		}
		return strings.TrimSpace(body[:start] + body[end:])
	}
	if m.displayName != nil {
		if loc := m.displayName.FindStringIndex(body); loc != nil {
			return strings.TrimSpace(body[loc[1]:])
		}
	}
	return strings.TrimSpace(body)
}
