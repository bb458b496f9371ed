package rendercache

import (
	"strconv"
	"strings"
)

const (
	fingerprintDelimiter = ":"
	fingerprintEscape    = `\`
)

var fingerprintEscaper = strings.NewReplacer(
	fingerprintEscape, fingerprintEscape+fingerprintEscape,
	fingerprintDelimiter, fingerprintEscape+fingerprintDelimiter,
)

// Fingerprint encodes formatting option values and the line width into a
// cache key component. Values must be given in a fixed key order. Delimiters
// and escapes inside values are escaped, so distinct tuples never collide.
func Fingerprint(values []string, width int) string {
	var b strings.Builder
	for _, v := range values {
		b.WriteString(fingerprintEscaper.Replace(v))
		b.WriteString(fingerprintDelimiter)
	}
	b.WriteString(strconv.Itoa(width))
	return b.String()
}
