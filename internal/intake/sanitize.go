package intake

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// SanitizeFilename reduces a client-supplied filename to a flat ASCII name
// safe to use as the tail of a storage key:
//
//	"../../etc/passwd"   -> "etc_passwd"
//	"My cool movie.mov"  -> "My_cool_movie.mov"
//	"i contain cool ümläuts.txt" -> "i_contain_cool_umlauts.txt"
//
// The result may be empty. Reserved Windows device names such as "CON" are
// kept as is; keys always carry a unique prefix.
func SanitizeFilename(name string) string {
	name = norm.NFKD.String(name)

	var b strings.Builder
	for _, r := range name {
		switch {
		case r > 0x7f:
			// dropped; NFKD already split accents off their base letter
		case r == '/' || r == '\\':
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}

	joined := strings.Join(strings.Fields(b.String()), "_")

	b.Reset()
	for i := 0; i < len(joined); i++ {
		if c := joined[i]; isKeyChar(c) {
			b.WriteByte(c)
		}
	}

	return strings.Trim(b.String(), "._")
}

func isKeyChar(c byte) bool {
	return c >= 'a' && c <= 'z' ||
		c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9' ||
		c == '_' || c == '.' || c == '-'
}
