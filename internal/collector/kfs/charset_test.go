package kfs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
)

func shiftJIS(t *testing.T, s string) []byte {
	t.Helper()
	b, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return b
}

func TestNormalizeEncoding(t *testing.T) {
	tests := []struct {
		label string
		ok    bool
	}{
		{"Shift_JIS", true},
		{"shift-jis", true},
		{"x-sjis", false},
		{"sjis", true},
		{"Windows-31J", true},
		{"cp932", true},
		{"EUC-JP", true},
		{"utf-8", true},
		{"koi8-r", false},
		{"", false},
	}

	for _, tc := range tests {
		enc, ok := normalizeEncoding(tc.label)
		assert.Equal(t, tc.ok, ok, tc.label)
		if tc.ok {
			assert.NotNil(t, enc, tc.label)
		}
	}
}

func TestSniffMetaCharset(t *testing.T) {
	assert.Equal(t, "Shift_JIS",
		sniffMetaCharset([]byte(`<html><head><meta charset="Shift_JIS"></head>`)))
	assert.Equal(t, "shift_jis",
		sniffMetaCharset([]byte(`<meta http-equiv="Content-Type" content="text/html; charset=shift_jis">`)))
	assert.Equal(t, "", sniffMetaCharset([]byte(`<html><head><title>x</title></head>`)))
}

func TestDecodeHTML_MetaCharset(t *testing.T) {
	page := `<html><head><meta charset="Shift_JIS"></head><body>裁決事例集</body></html>`
	raw := shiftJIS(t, page)

	decoded := decodeHTML(raw, "text/html")
	assert.Contains(t, decoded, "裁決事例集")
}

func TestDecodeHTML_HeaderCharset(t *testing.T) {
	raw := shiftJIS(t, `<html><body>主文および理由</body></html>`)

	decoded := decodeHTML(raw, "text/html; charset=Shift_JIS")
	assert.Contains(t, decoded, "主文および理由")
}

func TestDecodeHTML_FallbackChain(t *testing.T) {
	// No meta, no header charset: the cp932 fallback must still decode it.
	raw := shiftJIS(t, `<html><body>裁決年月日</body></html>`)

	decoded := decodeHTML(raw, "text/html")
	assert.Contains(t, decoded, "裁決年月日")
}

func TestDecodeHTML_UTF8Passthrough(t *testing.T) {
	page := `<html><head><meta charset="utf-8"></head><body>裁決要旨</body></html>`

	decoded := decodeHTML([]byte(page), "text/html")
	assert.Contains(t, decoded, "裁決要旨")
}

func TestDecodeHTML_LossyLastResort(t *testing.T) {
	// Bytes that no candidate decodes cleanly still come back, with
	// replacement runes instead of an empty page.
	raw := []byte{0x82, 0xa0, 0xff, 0xfe, 0xff}

	decoded := decodeHTML(raw, "")
	assert.NotEmpty(t, decoded)
	assert.True(t, strings.ContainsRune(decoded, '�'))
}
