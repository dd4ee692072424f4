package gitrepo

import "regexp"

const (
	redactedURLCredentialsReplacementConstant = "${scheme}***@"
	redactedAssignmentReplacementConstant     = "${key}=***"
)

var (
	urlCredentialsPattern       = regexp.MustCompile(`(?P<scheme>[a-zA-Z][a-zA-Z0-9+.-]*://)[^\s/@]+@`)
	credentialAssignmentPattern = regexp.MustCompile(`(?i)(?P<key>token|secret|password|passwd|bearer)=[^\s&]+`)
)

// RedactCredentials masks user information in URLs and token-style assignments found in text.
func RedactCredentials(text string) string {
	redacted := urlCredentialsPattern.ReplaceAllString(text, redactedURLCredentialsReplacementConstant)
	return credentialAssignmentPattern.ReplaceAllString(redacted, redactedAssignmentReplacementConstant)
}
