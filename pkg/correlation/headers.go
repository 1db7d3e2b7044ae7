package correlation

import (
	"net/http"
	"strings"
	"unicode"
)

// HeaderName derives the wire header name for a business key. The mapping is
// deterministic so that every service in the fleet computes the same header:
// each upper-case rune starts a new segment, segments are capitalized and
// joined with dashes under an "X-" prefix.
//
//	projectId          -> X-Project-Id
//	executionRequestId -> X-Execution-Request-Id
func HeaderName(key string) string {
	var b strings.Builder
	b.WriteString("X-")
	for i, r := range key {
		if i == 0 {
			b.WriteRune(unicode.ToUpper(r))
			continue
		}
		if unicode.IsUpper(r) {
			b.WriteByte('-')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ParseKeys splits a comma-separated business key list from configuration,
// trimming whitespace and dropping empty entries.
func ParseKeys(keys string) []string {
	if strings.TrimSpace(keys) == "" {
		return nil
	}
	var out []string
	for _, k := range strings.Split(keys, ",") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

// FromHeader looks up the carrier header for key. net/http canonicalizes
// header names on both read and write paths, so the lookup is
// case-insensitive as required for inbound carriers.
func FromHeader(h http.Header, key string) string {
	return h.Get(HeaderName(key))
}

// Inject copies each configured key present and non-blank in values
// (typically a scope snapshot) into the outbound header set. Keys absent from
// values are not written: propagation never produces empty headers.
func Inject(h http.Header, keys []string, values map[string]string) {
	for _, key := range keys {
		if v := values[key]; strings.TrimSpace(v) != "" {
			h.Set(HeaderName(key), v)
		}
	}
}
