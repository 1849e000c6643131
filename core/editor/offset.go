package editor

import "unicode/utf8"

// FromUTF16 converts an offset counted in UTF-16 code units (as used by
// browser editors) into a byte offset into text. Offsets past the end map to
// len(text); an offset in the middle of a surrogate pair maps to the start of
// that character.
func FromUTF16(text string, units int) int {
	n := 0
	for i := 0; i < len(text); {
		if n >= units {
			return i
		}
		r, size := utf8.DecodeRuneInString(text[i:])
		w := utf16Len(r)
		if n+w > units {
			return i
		}
		n += w
		i += size
	}
	return len(text)
}

// ToUTF16 converts a byte offset into text to UTF-16 code units.
func ToUTF16(text string, off int) int {
	off = clampOffset(off, len(text))
	n := 0
	for _, r := range text[:off] {
		n += utf16Len(r)
	}
	return n
}

func utf16Len(r rune) int {
	if r >= 0x10000 {
		return 2
	}
	return 1
}
