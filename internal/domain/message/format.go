package message

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// DefaultPartLimit is the WhatsApp-safe byte budget for a single message.
const DefaultPartLimit = 1500

// partTagReserve leaves room in each chunk for the "(part i/k) " prefix,
// sized for up to three-digit part counts.
const partTagReserve = 16

// Split formats lesson text for a channel with a per-message byte budget.
// Text within the budget is returned as a single untagged part. Longer text
// is split into ordered parts, each prefixed "(part i/k) " and each within
// the budget. Splits land on rune boundaries and prefer whitespace.
func Split(text string, limit int) []string {
	if limit <= 0 || len(text) <= limit {
		return []string{text}
	}

	budget := limit - partTagReserve
	if budget < 1 {
		budget = 1
	}

	var chunks []string
	rest := text
	for len(rest) > 0 {
		if len(rest) <= budget {
			chunks = append(chunks, rest)
			break
		}
		cut := budget
		for cut > 0 && !utf8.RuneStart(rest[cut]) {
			cut--
		}
		if cut == 0 {
			cut = budget // malformed input, force progress
		}
		if i := strings.LastIndexAny(rest[:cut], " \n"); i > cut/2 {
			cut = i + 1
		}
		chunks = append(chunks, strings.TrimRight(rest[:cut], " \n"))
		rest = strings.TrimLeft(rest[cut:], " \n")
	}

	if len(chunks) == 1 {
		return chunks
	}
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = fmt.Sprintf("(part %d/%d) %s", i+1, len(chunks), c)
	}
	return parts
}
