package fragment

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reanchor/internal/ir"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		sel  ir.Selector
		want string
	}{
		{"exact only", ir.Selector{Exact: "fox"}, "e=fox"},
		{"with context", ir.Selector{Exact: "quick brown", Prefix: "The ", Suffix: " fox"}, "e=quick%20brown&p=The%20&s=%20fox"},
		{"suffix only", ir.Selector{Exact: "a", Suffix: "b"}, "e=a&s=b"},
		{"reserved characters", ir.Selector{Exact: "a&b=c?d#e"}, "e=a%26b%3Dc%3Fd%23e"},
		{"unreserved marks", ir.Selector{Exact: "-_.!~*'()"}, "e=-_.!~*'()"},
		{"latin accents encoded", ir.Selector{Exact: "é"}, "e=%C3%A9"},
		{"kanji literal", ir.Selector{Exact: "漢字"}, "e=漢字"},
		{"kana literal", ir.Selector{Exact: "ひらがなカタカナ"}, "e=ひらがなカタカナ"},
		{"japanese punctuation encoded", ir.Selector{Exact: "日本。"}, "e=日本%E3%80%82"},
		{"plus encoded", ir.Selector{Exact: "1+1"}, "e=1%2B1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Encode(tt.sel)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncode_RejectsMalformed(t *testing.T) {
	_, err := Encode(ir.Selector{Prefix: "x"})
	assert.True(t, errors.Is(err, ir.ErrMalformedSelector))
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want ir.Selector
	}{
		{"exact only", "e=fox", ir.Selector{Exact: "fox"}},
		{"full", "e=quick%20brown&p=The%20&s=%20fox", ir.Selector{Exact: "quick brown", Prefix: "The ", Suffix: " fox"}},
		{"order independent", "s=b&e=a&p=c", ir.Selector{Exact: "a", Prefix: "c", Suffix: "b"}},
		{"unknown keys ignored", "x=1&e=a", ir.Selector{Exact: "a"}},
		{"first occurrence wins", "e=a&e=b", ir.Selector{Exact: "a"}},
		{"plus stays literal", "e=1+1", ir.Selector{Exact: "1+1"}},
		{"literal kanji", "e=漢字", ir.Selector{Exact: "漢字"}},
		{"empty pairs skipped", "&e=a&&", ir.Selector{Exact: "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	for _, in := range []string{"", "p=a&s=b", "e=", "e", "e=%zz"} {
		t.Run(in, func(t *testing.T) {
			_, err := Decode(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ir.ErrMalformedSelector))
		})
	}
}

func TestRoundTrip(t *testing.T) {
	sels := []ir.Selector{
		{Exact: "quick brown", Prefix: "The ", Suffix: " fox jumps over the lazy dog."},
		{Exact: "100% & more", Prefix: "a=b"},
		{Exact: "東京タワー", Suffix: "は高い。"},
		{Exact: "emoji 🙂", Prefix: "\n\t"},
	}

	for _, sel := range sels {
		enc, err := Encode(sel)
		require.NoError(t, err)
		dec, err := Decode(enc)
		require.NoError(t, err)
		assert.Equal(t, sel, dec, "wire form %q", enc)
	}
}
