package cache

import "strings"

// DefaultProfileID is the profile component used when a request carries no
// profile.
const DefaultProfileID = "default"

// Key derives the cache slot for a subtitle line and profile. It is a pure
// function: identical normalized text and profile always collide, which is
// the dedup and cache-hit mechanism.
func Key(text string, profileID string) string {
	if strings.TrimSpace(profileID) == "" {
		profileID = DefaultProfileID
	}
	return profileID + "::" + Normalize(text)
}

// Normalize lower-cases and trims a subtitle line for keying.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}
