package toolbox

import (
	"sort"
	"strconv"
	"unicode"
)

// sortNatural orders titles so numbered sequences come out in shooting
// order: img2 before img10.
func sortNatural(titles []string) {
	sort.Slice(titles, func(i, j int) bool {
		return naturalLess(titles[i], titles[j])
	})
}

func naturalLess(a, b string) bool {
	for a != "" && b != "" {
		aChunk, aNum, aRest := nextChunk(a)
		bChunk, bNum, bRest := nextChunk(b)
		if aNum >= 0 && bNum >= 0 {
			if aNum != bNum {
				return aNum < bNum
			}
		} else if aChunk != bChunk {
			return aChunk < bChunk
		}
		a, b = aRest, bRest
	}
	return len(a) < len(b)
}

// nextChunk splits off the leading run of digits or non-digits. num is -1
// for a non-numeric chunk.
func nextChunk(s string) (chunk string, num int, rest string) {
	runes := []rune(s)
	isDigit := unicode.IsDigit(runes[0])
	i := 1
	for i < len(runes) && unicode.IsDigit(runes[i]) == isDigit {
		i++
	}
	chunk, rest = string(runes[:i]), string(runes[i:])
	num = -1
	if isDigit {
		if n, err := strconv.Atoi(chunk); err == nil {
			num = n
		}
	}
	return chunk, num, rest
}
