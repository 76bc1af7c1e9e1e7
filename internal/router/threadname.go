package router

import (
	"strings"
	"unicode"
)

const (
	// MaxThreadNameLength is Discord's limit on channel and thread names.
	MaxThreadNameLength = 100

	DefaultThreadNameTemplate = "genie-{author}-{id}"
)

// NameParams are the values substituted into a thread name template.
type NameParams struct {
	Author    string
	MessageID string
	Channel   string // channel name, or its id when the name is unknown
	UserID    string
}

// FormatThreadName renders template with the {author}, {id}, {channel} and
// {user_id} placeholders. The result is never empty, holds no control
// characters and is at most MaxThreadNameLength runes long.
func FormatThreadName(template string, p NameParams) string {
	author := strings.Join(strings.Fields(p.Author), " ")
	if author == "" {
		author = "agent"
	}
	channel := p.Channel
	if channel == "" {
		channel = "channel"
	}
	userID := p.UserID
	if userID == "" {
		userID = "user"
	}

	name := strings.NewReplacer(
		"{author}", author,
		"{id}", p.MessageID,
		"{channel}", channel,
		"{user_id}", userID,
	).Replace(template)

	name = strings.TrimSpace(sanitize(truncate(name, MaxThreadNameLength)))
	if name == "" {
		name = strings.TrimSpace(truncate(sanitize("genie-"+p.MessageID), MaxThreadNameLength))
	}
	return name
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, s)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
