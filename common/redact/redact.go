// Package redact strips credentials from text before it reaches a log line
// or a chat room.
//
// The bot holds two long-lived secrets (the completion API key and the Matrix
// access token). Upstream error bodies and transport errors can echo either
// of them back, so anything derived from an outbound request is passed
// through String before it is logged.
package redact

import "strings"

const placeholder = "[REDACTED]"

// minSecretLen guards against redacting common short substrings.
const minSecretLen = 4

// String replaces every occurrence of each sensitive value in s with
// [REDACTED]. Values shorter than four characters are ignored.
//
//	safe := redact.String(body, apiKey, accessToken)
func String(s string, sensitiveValues ...string) string {
	for _, v := range sensitiveValues {
		if len(v) < minSecretLen {
			continue
		}
		s = strings.ReplaceAll(s, v, placeholder)
	}
	return s
}

// Error returns the redacted text of err, or "" for a nil error.
func Error(err error, sensitiveValues ...string) string {
	if err == nil {
		return ""
	}
	return String(err.Error(), sensitiveValues...)
}
