package chat

import "regexp"

// ticketPattern finds a ticket reference in free-form assistant text: the
// letters "ID" (any case) followed, later on the same line, by a token in
// backticks made of letters, digits and hyphens. Only the first match counts.
//
// This is a best-effort scrape; replies with no structure can produce both
// false positives and misses.
var ticketPattern = regexp.MustCompile("(?i)ID.*?`([0-9a-z-]+)`")

// ExtractTicketID returns the first ticket reference in text, if any.
func ExtractTicketID(text string) (string, bool) {
	m := ticketPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}
