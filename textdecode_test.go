package markitdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/text/encoding/unicode"
)

func TestLookupEncoding(t *testing.T) {
	for _, name := range []string{"utf-8", "UTF8", "cp932", "Windows-31J", "Shift_JIS", "GB-18030", "cp1252", "windows-1251", "latin1", "Big5"} {
		assert.NotNil(t, lookupEncoding(name), name)
	}
	assert.Nil(t, lookupEncoding("klingon-8"))
}

func TestDecodeText(t *testing.T) {
	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte("hi ü"))
	assert.NoError(t, err)

	tests := []struct {
		name    string
		data    []byte
		charset string
		want    string
	}{
		{"utf8", []byte("plain ü"), "", "plain ü"},
		{"utf8 bom", []byte("\xef\xbb\xbfbom"), "", "bom"},
		{"utf16 bom", utf16, "", "hi ü"},
		{"hinted windows-1252", []byte("\x93quoted\x94"), "windows-1252", "“quoted”"},
		{"unknown hint falls back", []byte("ok"), "klingon-8", "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeText(tt.data, tt.charset))
		})
	}
}

func TestDecodeText_Detected(t *testing.T) {
	got := decodeText([]byte("Der Stra\xdfenverkehr in M\xfcnchen ist f\xfcr viele Pendler eine t\xe4gliche Herausforderung."), "")
	assert.Contains(t, got, "München")
}
