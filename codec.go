// SPDX-License-Identifier: GPL-3.0-or-later

package dnschat

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Sanitizer contract shared with the native resolution layer. The native
// bindings enforce the same rules with the same patterns; keep the two in
// sync, the values here are the source of truth.
const (
	// MaxLabelLength is the maximum octets per DNS label (RFC 1035).
	MaxLabelLength = 63

	// MaxNameLength is the maximum octets of an encoded DNS name on the
	// wire, including per-label length bytes and the root label.
	MaxNameLength = 255

	// WhitespacePattern matches whitespace runs replaced by a dash.
	WhitespacePattern = `\s+`

	// InvalidCharPattern matches octets stripped after lowercasing.
	InvalidCharPattern = `[^a-z0-9-]`

	// DashRunPattern matches dash runs collapsed into one dash.
	DashRunPattern = `-{2,}`

	// EdgeDashPattern matches leading and trailing dashes.
	EdgeDashPattern = `^-+|-+$`
)

var (
	whitespaceRe  = regexp.MustCompile(WhitespacePattern)
	invalidCharRe = regexp.MustCompile(InvalidCharPattern)
	dashRunRe     = regexp.MustCompile(DashRunPattern)
	edgeDashRe    = regexp.MustCompile(EdgeDashPattern)

	// foldMarks decomposes text and strips combining marks, so that for
	// example "héllo" sanitizes to "hello" instead of losing the rune.
	foldMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
)

// SanitizeMessage normalizes raw chat text into the label-safe alphabet:
// diacritics folded, lowercased, whitespace mapped to dashes, anything
// outside [a-z0-9-] stripped, dash runs collapsed, edge dashes trimmed.
//
// It fails with [ErrInvalidInput] when nothing alphanumeric survives.
func SanitizeMessage(text string) (string, error) {
	folded, _, err := transform.String(foldMarks, text)
	if err != nil {
		// Invalid UTF-8 survives transformation as replacement runes,
		// which the charset filter strips below.
		folded = text
	}
	s := strings.ToLower(folded)
	s = whitespaceRe.ReplaceAllString(s, "-")
	s = invalidCharRe.ReplaceAllString(s, "")
	s = dashRunRe.ReplaceAllString(s, "-")
	s = edgeDashRe.ReplaceAllString(s, "")
	if !strings.ContainsFunc(s, func(r rune) bool {
		return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
	}) {
		return "", fmt.Errorf("%w: no alphanumeric content after sanitization", ErrInvalidInput)
	}
	return s, nil
}

// EncodeQuery sanitizes text and builds the DNS query name that carries it:
// the sanitized message split into labels of at most [MaxLabelLength]
// octets, followed by the zone suffix.
//
// Encoding is pure: no network access and no randomness. It fails with
// [ErrInvalidInput] when the text is empty, sanitizes to nothing, or does
// not fit within [MaxNameLength].
func EncodeQuery(text, zone string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: empty message", ErrInvalidInput)
	}
	sanitized, err := SanitizeMessage(text)
	if err != nil {
		return "", err
	}

	// Chunk into labels. Splitting may leave a chunk with a leading or
	// trailing dash, which is still label-legal for this protocol, but a
	// chunk must never be empty.
	var labels []string
	for len(sanitized) > 0 {
		n := min(len(sanitized), MaxLabelLength)
		labels = append(labels, sanitized[:n])
		sanitized = sanitized[n:]
	}

	name := strings.Join(labels, ".")
	if zone = strings.Trim(zone, "."); zone != "" {
		name = name + "." + zone
	}

	// Wire length: one length byte per label plus the terminating root.
	wireLen := 1
	for _, label := range strings.Split(name, ".") {
		wireLen += 1 + len(label)
	}
	if wireLen > MaxNameLength {
		return "", fmt.Errorf("%w: encoded name is %d octets, limit %d",
			ErrInvalidInput, wireLen, MaxNameLength)
	}
	return name, nil
}
