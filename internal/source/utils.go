package source

import (
	"bytes"
	"sort"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// RemoveBOM strips a leading UTF-8 byte order mark.
func RemoveBOM(content []byte) ([]byte, bool) {
	if bytes.HasPrefix(content, utf8BOM) {
		return content[len(utf8BOM):], true
	}
	return content, false
}

// buildLineStarts returns the byte offset of the first byte of every line.
func buildLineStarts(text string) []int {
	out := make([]int, 1, 1+len(text)/32)
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			out = append(out, i+1)
		}
	}
	return out
}

// lineOf returns the zero-based line containing off.
func lineOf(lineStarts []int, off int) int {
	return sort.Search(len(lineStarts), func(i int) bool { return lineStarts[i] > off }) - 1
}

// utf16Len counts UTF-16 code units of s. Invalid bytes count as one unit,
// matching what an editor shows for a replacement character.
func utf16Len(s string) int {
	units := 0
	for _, r := range s {
		if r > 0xFFFF {
			units += 2
		} else {
			units++
		}
	}
	return units
}

// isBoundary reports whether off is a valid cut point of text.
func isBoundary(text string, off int) bool {
	if off < 0 || off > len(text) {
		return false
	}
	return off == len(text) || utf8.RuneStart(text[off])
}
