package moderation

import "regexp"

// Link patterns are compiled once at package init and are safe for
// concurrent use.
var (
	// schemePattern matches any RFC 3986 scheme followed by "://" and at
	// least one host character, e.g. http://, https://, ftp://, irc://.
	// Patterns are unanchored: a link glued to other text still counts.
	schemePattern = regexp.MustCompile(`(?i)[a-z][a-z0-9+.\-]*://[^\s/?#]+`)

	// wwwPattern matches hosts written without a scheme.
	wwwPattern = regexp.MustCompile(`(?i)www\.[a-z0-9\-]+\.[a-z0-9.\-]+`)

	// bareDomainPattern requires a trailing "/" so version strings like
	// "v2.0" and sentences like "see you at example.com." are not flagged.
	bareDomainPattern = regexp.MustCompile(`(?i)[a-z0-9\-]+(\.[a-z0-9\-]+)*\.(com|net|org|io|co|xyz|info|biz|ru|cn|tk|ml|ga|cf|uk|de|me|ly|gl|app|dev)/\S*`)
)

// linkChecks is the ordered list of detectors; the first match wins.
var linkChecks = []*regexp.Regexp{
	schemePattern,
	wwwPattern,
	bareDomainPattern,
}

// ContainsLink reports whether text contains a hyperlink.
func ContainsLink(text string) bool {
	for _, re := range linkChecks {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
