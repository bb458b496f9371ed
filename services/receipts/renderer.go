package receipts

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/avillia/receipt-service/models"
)

// Renderer turns a stored receipt into printable text
type Renderer interface {
	Render(receipt *models.Receipt, opts FormattingOptions, width int) (string, error)
}

// amountColumn is the number of columns item names leave free for the amount
const amountColumn = 8

// TextRenderer lays receipts out as fixed-width text:
//
//	header, delimiter, items (qty x price / name ... total) separated by
//	separator lines, delimiter, totals, delimiter, timestamp, thank-you note
type TextRenderer struct{}

// NewTextRenderer creates a text renderer
func NewTextRenderer() *TextRenderer {
	return &TextRenderer{}
}

// Render lays out the receipt at the given width. No line exceeds width.
// The qty x price line and the leading lines of a wrapped item name are
// left-aligned and may be shorter; every other line is padded to width.
func (TextRenderer) Render(receipt *models.Receipt, opts FormattingOptions, width int) (string, error) {
	if width <= amountColumn {
		return "", fmt.Errorf("width %d too narrow", width)
	}
	if utf8.RuneCountInString(opts.Delimiter) != 1 || utf8.RuneCountInString(opts.Separator) != 1 {
		return "", fmt.Errorf("delimiter and separator must be single characters")
	}

	delimiterLine := strings.Repeat(opts.Delimiter, width)
	separatorLine := strings.Repeat(opts.Separator, width)

	lines := []string{center(receipt.IssuerName, width), delimiterLine}
	for _, item := range receipt.Items {
		lines = append(lines, formatQuantity(item.Quantity)+" x "+formatAmount(item.Price))
		lines = append(lines, nameAndAmount(item.Name, formatAmount(item.Total()), width)...)
		lines = append(lines, separatorLine)
	}
	lines[len(lines)-1] = delimiterLine

	paymentLabel := opts.CashLabel
	if receipt.IsCashlessPayment {
		paymentLabel = opts.CashlessLabel
	}
	lines = append(lines,
		labelAndAmount(opts.TotalLabel, receipt.Total(), width),
		labelAndAmount(paymentLabel, receipt.PaymentAmount, width),
		labelAndAmount(opts.RestLabel, receipt.Rest(), width),
		delimiterLine,
		center(receipt.CreatedAt.Format(opts.DatetimeFormat), width),
		center(opts.ThankYouNote, width),
	)

	return strings.Join(lines, "\n"), nil
}

// formatAmount prints two decimals with a space as the thousands separator
func formatAmount(d decimal.Decimal) string {
	s := d.StringFixed(2)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + "." + frac
}

// formatQuantity prints at least two decimals and keeps fractional grams
func formatQuantity(d decimal.Decimal) string {
	if d.Equal(d.Round(2)) {
		return d.StringFixed(2)
	}
	return d.StringFixed(3)
}

func center(s string, width int) string {
	pad := width - utf8.RuneCountInString(s)
	if pad <= 0 {
		return s
	}
	left := pad / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
}

func labelAndAmount(label string, amount decimal.Decimal, width int) string {
	return spread(label, formatAmount(amount), width)
}

// spread puts left and right at the line edges, at least one space apart
func spread(left, right string, width int) string {
	gap := width - utf8.RuneCountInString(left) - utf8.RuneCountInString(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

// nameAndAmount wraps name at width-amountColumn and puts the amount on the
// last name line, or on a line of its own when it does not fit.
func nameAndAmount(name, amount string, width int) []string {
	lines := wrap(name, width-amountColumn)
	last := lines[len(lines)-1]
	if utf8.RuneCountInString(last)+1+utf8.RuneCountInString(amount) <= width {
		lines[len(lines)-1] = spread(last, amount, width)
		return lines
	}
	return append(lines, spread("", amount, width))
}

// wrap breaks text on spaces into lines of at most limit runes; longer words
// are split.
func wrap(text string, limit int) []string {
	var lines []string
	var current []rune

	flush := func() {
		lines = append(lines, string(current))
		current = current[:0]
	}

	for _, word := range strings.Fields(text) {
		w := []rune(word)
		for len(w) > limit {
			if len(current) > 0 {
				flush()
			}
			current = append(current, w[:limit]...)
			flush()
			w = w[limit:]
		}
		switch {
		case len(w) == 0:
		case len(current) == 0:
			current = append(current, w...)
		case len(current)+1+len(w) <= limit:
			current = append(current, ' ')
			current = append(current, w...)
		default:
			flush()
			current = append(current, w...)
		}
	}
	if len(current) > 0 || len(lines) == 0 {
		flush()
	}
	return lines
}
