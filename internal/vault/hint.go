package vault

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/starford/grimoire/internal/apperr"
)

// hintPatterns are tried in order; the last capture group holds the value.
var hintPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[?&]file=([^&#]+)`),
	regexp.MustCompile(`[?&]vault=([^&#]*)&(?:[^#]*&)?file=([^&#]+)`),
}

var hintDecoder = strings.NewReplacer(
	"%20", " ",
	"%2F", "/",
	"%2f", "/",
)

// ExtractHint pulls a note filename out of a URL such as
// "obsidian://open?vault=Campaign&file=Notes%2FSession%201". It tries the
// file= query value first, then vault=...&file=..., then the last path
// segment. Only %20 and %2F are decoded.
func ExtractHint(rawURL string) (string, error) {
	for _, re := range hintPatterns {
		m := re.FindStringSubmatch(rawURL)
		if m == nil {
			continue
		}
		if v := hintDecoder.Replace(m[len(m)-1]); strings.TrimSpace(v) != "" {
			return v, nil
		}
	}
	if v := pathTail(rawURL); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("vault: no filename in %q: %w", rawURL, apperr.ErrHintNotFound)
}

// pathTail returns the last non-empty segment of the URL path.
func pathTail(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	p := strings.TrimRight(u.EscapedPath(), "/")
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return ""
	}
	return hintDecoder.Replace(p[i+1:])
}
