package lifecycle

import "regexp"

// labelPattern is the DNS label grammar: alphanumeric edges, hyphens
// allowed inside only.
var labelPattern = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]*[A-Za-z0-9])?$`)

const maxLabelLength = 63

// ValidName reports whether name is a syntactically valid DNS label of at
// most 63 characters
func ValidName(name string) bool {
	if name == "" || len(name) > maxLabelLength {
		return false
	}
	return labelPattern.MatchString(name)
}
