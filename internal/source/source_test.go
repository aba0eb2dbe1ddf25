package source

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mainSource(text string) *Source {
	return New(NewFakeID("MAIN"), text)
}

func TestUTF16ToByte(t *testing.T) {
	src := mainSource("aé🙂b")
	cases := []struct {
		utf16 int
		want  int
		ok    bool
	}{
		{0, 0, true},
		{1, 1, true},
		{2, 3, true},
		{3, 7, true}, // middle of the surrogate pair maps to the next char
		{4, 7, true},
		{5, 8, true},
		{6, 0, false},
		{-1, 0, false},
	}
	for _, tc := range cases {
		got, ok := src.UTF16ToByte(tc.utf16)
		assert.Equal(t, tc.ok, ok, "utf16=%d", tc.utf16)
		if tc.ok {
			assert.Equal(t, tc.want, got, "utf16=%d", tc.utf16)
		}
	}
}

func TestLineColumnRoundTrip(t *testing.T) {
	text := "first line\nsecond 🙂 line\n\nlast"
	src := mainSource(text)
	require.Equal(t, 4, src.LineCount())

	for off := range len(text) + 1 {
		if !isBoundary(text, off) {
			continue
		}
		lc, ok := src.LineCol(off)
		require.True(t, ok, "offset %d", off)
		back, ok := src.LineColumnToByte(int(lc.Line), int(lc.Column))
		require.True(t, ok, "offset %d", off)
		assert.Equal(t, off, back)
	}

	_, ok := src.LineColumnToByte(4, 0)
	assert.False(t, ok)
	_, ok = src.LineColumnToByte(0, 11)
	assert.False(t, ok, "column past end of line")
	_, ok = src.LineColumnToByte(1, 8)
	assert.False(t, ok, "column inside surrogate pair")
}

func TestEditKeepsLineIndexInSync(t *testing.T) {
	src := mainSource("one\ntwo\nthree\n")
	require.True(t, src.Edit(4, 7, "2\nzwei"))
	assert.Equal(t, "one\n2\nzwei\nthree\n", src.Text())
	assert.Equal(t, buildLineStarts(src.Text()), src.lineStarts)

	require.True(t, src.Edit(0, len(src.Text()), ""))
	assert.Equal(t, "", src.Text())
	assert.Equal(t, []int{0}, src.lineStarts)
}

func TestEditRejectsInvalidRanges(t *testing.T) {
	src := mainSource("é")
	assert.False(t, src.Edit(1, 2, "x"), "not a char boundary")
	assert.False(t, src.Edit(2, 1, "x"), "reversed")
	assert.False(t, src.Edit(0, 3, "x"), "past end")
	assert.Equal(t, "é", src.Text())
}

func TestSequentialEditsMatchNaiveSubstitution(t *testing.T) {
	src := mainSource("")
	naive := ""
	edits := []struct {
		start, end int
		text       string
	}{
		{0, 0, "hello"},
		{5, 5, "\n"},
		{6, 6, "w"},
		{7, 7, "orld"},
		{0, 1, "H"},
		{3, 8, "\n\n"},
		{2, 2, "🙂"},
	}
	for _, e := range edits {
		require.True(t, src.Edit(e.start, e.end, e.text))
		naive = naive[:e.start] + e.text + naive[e.end:]
		require.Equal(t, naive, src.Text())
		require.Equal(t, buildLineStarts(naive), src.lineStarts)
	}
}

func TestRange(t *testing.T) {
	src := mainSource("abc")
	start, end, ok := src.Range(src.SpanFor(1, 3))
	require.True(t, ok)
	assert.Equal(t, 1, start)
	assert.Equal(t, 3, end)

	_, _, ok = src.Range(Span{File: NewFileID(nil, "/other.typ"), Start: 0, End: 1})
	assert.False(t, ok)
	_, _, ok = src.Range(src.SpanFor(1, 9))
	assert.False(t, ok)
}

func TestLine(t *testing.T) {
	src := mainSource(strings.Join([]string{"a", "bb", ""}, "\n"))
	assert.Equal(t, "a", src.Line(0))
	assert.Equal(t, "bb", src.Line(1))
	assert.Equal(t, "", src.Line(2))
	assert.Equal(t, "", src.Line(3))
}

func TestRemoveBOM(t *testing.T) {
	out, had := RemoveBOM([]byte("\xEF\xBB\xBFx"))
	assert.True(t, had)
	assert.Equal(t, []byte("x"), out)
	out, had = RemoveBOM([]byte("x"))
	assert.False(t, had)
	assert.Equal(t, []byte("x"), out)
}
