package user

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// SlugFromUsername derives the public-facing handle from a username:
// lowercased, whitespace runs replaced by underscores. Derived once at
// registration and never re-derived.
func SlugFromUsername(username string) string {
	return strings.ToLower(whitespaceRe.ReplaceAllString(username, "_"))
}

// defaultAvatarCount is the size of the default avatar pool shipped
// under uploads/defaultAvatars.
const defaultAvatarCount = 6

// RandomDefaultAvatar picks one of the default avatar paths uniformly
// at random for a newly created account.
func RandomDefaultAvatar() string {
	return fmt.Sprintf("uploads/defaultAvatars/%d.svg", rand.IntN(defaultAvatarCount))
}
