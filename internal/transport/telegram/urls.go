package telegram

import (
	"strings"

	"mvdan.cc/xurls/v2"
)

var urlPattern = xurls.Relaxed()

// ExtractURLs returns the links in text in order of appearance. Links written
// without a scheme get https://. Bare e-mail addresses are not links.
func ExtractURLs(text string) []string {
	matches := urlPattern.FindAllString(text, -1)
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		if strings.Contains(m, "://") {
			urls = append(urls, m)
			continue
		}
		if strings.Contains(m, "@") && !strings.Contains(m, "/") {
			continue
		}
		urls = append(urls, "https://"+m)
	}
	return urls
}
