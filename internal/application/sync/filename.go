package syncapp

import (
	"path"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// maxFilenameLen caps the base name (extension excluded) of migrated files.
const maxFilenameLen = 100

// asciiFold decomposes accented characters and strips the combining
// marks, so "résumé.pdf" becomes "resume.pdf".
var asciiFold = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SanitizeFilename turns an arbitrary remote filename into a safe local
// one: non-ASCII transliterated where decomposition allows, path
// separators and control characters dropped, everything else outside
// [A-Za-z0-9._-] replaced with underscores, length capped. The
// extension is preserved in lowercase.
func SanitizeFilename(name string) string {
	// Strip any path component, remote names sometimes embed slashes
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))

	ext := strings.ToLower(path.Ext(name))
	base := strings.TrimSuffix(name, path.Ext(name))

	if folded, _, err := transform.String(asciiFold, base); err == nil {
		base = folded
	}

	var b strings.Builder
	lastUnderscore := false
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	cleaned := strings.Trim(b.String(), "._-")
	if len(cleaned) > maxFilenameLen {
		cleaned = cleaned[:maxFilenameLen]
	}
	if cleaned == "" {
		cleaned = "file"
	}

	// Keep only sane extensions; anything odd gets folded into the base
	if ext != "" && !extPattern(ext) {
		return SanitizeFilename(cleaned + strings.ReplaceAll(ext, ".", "_"))
	}
	return cleaned + ext
}

// extPattern reports whether ext looks like a normal file extension:
// a dot followed by 1-10 ASCII alphanumerics.
func extPattern(ext string) bool {
	if len(ext) < 2 || len(ext) > 11 || ext[0] != '.' {
		return false
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// SuffixedFilename returns name with a numeric suffix before the
// extension: report.pdf, n=2 → report-2.pdf. Used to resolve collisions
// in the file store.
func SuffixedFilename(name string, n int) string {
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return base + "-" + strconv.Itoa(n) + ext
}
