package kfs

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
)

// The host mostly serves Shift_JIS pages with unreliable headers, so decoding
// works through a candidate chain: meta charset, then the Content-Type header,
// then cp932, EUC-JP and UTF-8.

var (
	metaCharsetRe   = regexp.MustCompile(`(?i)<meta[^>]*charset=['"]?\s*([a-zA-Z0-9_\-]+)`)
	headerCharsetRe = regexp.MustCompile(`(?i)charset\s*=\s*([^;\s]+)`)
)

// normalizeEncoding maps the charset labels seen in the wild onto a decoder.
// A nil return with ok means the bytes are already UTF-8.
func normalizeEncoding(label string) (encoding.Encoding, bool) {
	l := strings.ToLower(strings.TrimSpace(label))
	l = strings.NewReplacer("_", "", "-", "").Replace(l)
	switch l {
	case "shiftjis", "sjis", "windows31j", "cp932":
		return japanese.ShiftJIS, true
	case "eucjp":
		return japanese.EUCJP, true
	case "utf8":
		return unicode.UTF8, true
	}
	return nil, false
}

// sniffMetaCharset looks for a meta charset in the first few KB. The
// declaration is ASCII, so scanning the undecoded bytes is safe.
func sniffMetaCharset(raw []byte) string {
	head := raw
	if len(head) > 4096 {
		head = head[:4096]
	}
	if m := metaCharsetRe.FindSubmatch(head); m != nil {
		return string(m[1])
	}
	if m := headerCharsetRe.FindSubmatch(head); m != nil {
		return string(m[1])
	}
	return ""
}

func headerCharset(contentType string) string {
	if m := headerCharsetRe.FindStringSubmatch(contentType); m != nil {
		return m[1]
	}
	return ""
}

// decodeHTML decodes raw page bytes to UTF-8. Each candidate is tried in
// order; a decode that produces replacement runes counts as a miss. When every
// candidate misses, the first candidate's lossy output is returned so that the
// page is at least inspectable.
func decodeHTML(raw []byte, contentType string) string {
	var candidates []encoding.Encoding
	seen := map[encoding.Encoding]bool{}
	add := func(label string) {
		enc, ok := normalizeEncoding(label)
		if !ok || seen[enc] {
			return
		}
		seen[enc] = true
		candidates = append(candidates, enc)
	}

	add(sniffMetaCharset(raw))
	add(headerCharset(contentType))
	add("cp932")
	add("euc-jp")
	add("utf-8")

	first := ""
	for _, enc := range candidates {
		decoded, err := enc.NewDecoder().Bytes(raw)
		if err != nil {
			continue
		}
		s := string(decoded)
		if first == "" {
			first = s
		}
		if !strings.ContainsRune(s, utf8.RuneError) {
			return s
		}
	}
	return first
}
