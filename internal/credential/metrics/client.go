package metrics

import (
	"strings"

	"github.com/mssola/useragent"
)

// Client classes used as the verification metric label.
const (
	ClientMobile  = "mobile"
	ClientDesktop = "desktop"
	ClientBot     = "bot"
	ClientUnknown = "unknown"
)

// ClientClass buckets a User-Agent so verification traffic from QR scans on
// phones can be told apart from desktop lookups and crawlers. The label set
// stays bounded whatever the header contains.
func ClientClass(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return ClientUnknown
	}
	ua := useragent.New(userAgent)
	switch {
	case ua.Bot():
		return ClientBot
	case ua.Mobile():
		return ClientMobile
	default:
		return ClientDesktop
	}
}
