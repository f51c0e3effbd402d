// Package verifycode classifies inbound emails as forwarding
// confirmations and extracts their numeric verification code.
package verifycode

import "regexp"

// Kind is the classification outcome for one inbound email.
type Kind int

const (
	// KindTransactional means the email is an ordinary receipt and goes
	// through the transactional ingestion path.
	KindTransactional Kind = iota
	// KindVerification means a forwarding confirmation with an
	// extractable code.
	KindVerification
	// KindUnclassifiable means the subject looked like a confirmation
	// but no code could be found in the body.
	KindUnclassifiable
)

// Classification is the closed result of classifying one email.
// Code and Pattern are set only for KindVerification.
type Classification struct {
	Kind    Kind
	Code    string
	Pattern string
}

// subjectPatterns gate the body search. Without a confirmation-looking
// subject, long digit runs in receipts (order numbers, tracking codes)
// would produce false positives.
var subjectPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)forwarding\s+confirmation`),
	regexp.MustCompile(`(?i)confirm(?:ation)?\s.*\bforwarding`),
	regexp.MustCompile(`(?i)forwarding\s.*\bconfirm`),
	regexp.MustCompile(`(?i)verify\s+(?:your\s+)?forwarding`),
	regexp.MustCompile(`(?i)email\s+forwarding\s+request`),
}

// bodyPatterns are tried in order, most specific first. The pattern name
// is logged by callers so extraction accuracy can be tuned from
// production traffic.
var bodyPatterns = []struct {
	Name string
	re   *regexp.Regexp
}{
	{"label-before", regexp.MustCompile(`(?i)(?:code|verification|confirm\w*)[^0-9]{0,40}?(\d{6,7})\b`)},
	{"label-after", regexp.MustCompile(`(?i)\b(\d{6,7})\s*(?:is your|verification|confirmation)`)},
	{"bare-digits", regexp.MustCompile(`\b(\d{6,7})\b`)},
}

// Classify inspects subject and plain-text body. The result is exclusive:
// an email is either a verification (with exactly one code), a normal
// transactional email, or an unclassifiable confirmation.
func Classify(subject, body string) Classification {
	if !subjectMatches(subject) {
		return Classification{Kind: KindTransactional}
	}

	for _, p := range bodyPatterns {
		if m := p.re.FindStringSubmatch(body); m != nil {
			return Classification{
				Kind:    KindVerification,
				Code:    m[1],
				Pattern: p.Name,
			}
		}
	}

	// Confirmation subject but no code anywhere: do not guess.
	return Classification{Kind: KindUnclassifiable}
}

func subjectMatches(subject string) bool {
	for _, re := range subjectPatterns {
		if re.MatchString(subject) {
			return true
		}
	}
	return false
}
