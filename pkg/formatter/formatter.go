package formatter

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatCount renders a like/comment counter the way story overlays show it.
// Example: 999 -> "999", 1234 -> "1.2K", 2500000 -> "2.5M"
func FormatCount(n int64) string {
	switch {
	case n < 0:
		return "0"
	case n < 1_000:
		return strconv.FormatInt(n, 10)
	case n < 1_000_000:
		return trimZero(float64(n)/1_000) + "K"
	default:
		return trimZero(float64(n)/1_000_000) + "M"
	}
}

func trimZero(f float64) string {
	s := strconv.FormatFloat(f, 'f', 1, 64)
	return strings.TrimSuffix(s, ".0")
}

// FormatRemaining renders the time left until expiry, e.g. "23h 5m", "12m",
// or "expired" once the deadline is reached.
func FormatRemaining(now, expiresAt time.Time) string {
	left := expiresAt.Sub(now)
	if left <= 0 {
		return "expired"
	}
	h := int(left / time.Hour)
	m := int((left % time.Hour) / time.Minute)
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %dm", h, m)
}

var markdownV2 = strings.NewReplacer(
	"_", `\_`, "*", `\*`, "[", `\[`, "]", `\]`, "(", `\(`, ")", `\)`,
	"~", `\~`, "`", "\\`", ">", `\>`, "#", `\#`, "+", `\+`, "-", `\-`,
	"=", `\=`, "|", `\|`, "{", `\{`, "}", `\}`, ".", `\.`, "!", `\!`,
)

// EscapeMarkdownV2 escapes special characters in Markdown V2 format
func EscapeMarkdownV2(s string) string {
	return markdownV2.Replace(s)
}
