package render

import (
	"strings"
	"unicode"
)

// joining describes how an Arabic letter connects to its neighbours and where
// its presentation forms start in the Arabic Presentation Forms-B block.
// Right-joining letters have isolated and final forms; dual-joining letters
// add initial and medial forms at iso+2 and iso+3.
type joining struct {
	iso  rune
	dual bool
}

var arabicForms = map[rune]joining{
	'ء': {0xFE80, false},
	'آ': {0xFE81, false},
	'أ': {0xFE83, false},
	'ؤ': {0xFE85, false},
	'إ': {0xFE87, false},
	'ئ': {0xFE89, true},
	'ا': {0xFE8D, false},
	'ب': {0xFE8F, true},
	'ة': {0xFE93, false},
	'ت': {0xFE95, true},
	'ث': {0xFE99, true},
	'ج': {0xFE9D, true},
	'ح': {0xFEA1, true},
	'خ': {0xFEA5, true},
	'د': {0xFEA9, false},
	'ذ': {0xFEAB, false},
	'ر': {0xFEAD, false},
	'ز': {0xFEAF, false},
	'س': {0xFEB1, true},
	'ش': {0xFEB5, true},
	'ص': {0xFEB9, true},
	'ض': {0xFEBD, true},
	'ط': {0xFEC1, true},
	'ظ': {0xFEC5, true},
	'ع': {0xFEC9, true},
	'غ': {0xFECD, true},
	'ف': {0xFED1, true},
	'ق': {0xFED5, true},
	'ك': {0xFED9, true},
	'ل': {0xFEDD, true},
	'م': {0xFEE1, true},
	'ن': {0xFEE5, true},
	'ه': {0xFEE9, true},
	'و': {0xFEED, false},
	'ى': {0xFEEF, false},
	'ي': {0xFEF1, true},
}

// lamAlef maps the alef variants following a lam to the isolated ligature.
var lamAlef = map[rune]rune{
	'آ': 0xFEF5,
	'أ': 0xFEF7,
	'إ': 0xFEF9,
	'ا': 0xFEFB,
}

const (
	lam     = 'ل'
	tatweel = rune(0x0640)
)

func isHaraka(r rune) bool { return r >= 0x064B && r <= 0x0652 }

func isArabic(r rune) bool {
	_, ok := arabicForms[r]
	return ok || r == tatweel || isHaraka(r)
}

// joinsForward reports whether r connects to the letter after it.
func joinsForward(r rune) bool {
	if r == tatweel {
		return true
	}
	j, ok := arabicForms[r]
	return ok && j.dual
}

// joinsBackward reports whether r connects to the letter before it.
func joinsBackward(r rune) bool {
	if r == tatweel {
		return true
	}
	_, ok := arabicForms[r]
	return ok && r != 'ء'
}

// shapeArabic replaces letters with their contextual presentation forms in
// logical order.
func shapeArabic(runes []rune) []rune {
	// neighbour finds the closest non-haraka rune in direction step.
	neighbour := func(i, step int) rune {
		for k := i + step; k >= 0 && k < len(runes); k += step {
			if !isHaraka(runes[k]) {
				return runes[k]
			}
		}
		return 0
	}

	out := make([]rune, 0, len(runes))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		j, ok := arabicForms[r]
		if !ok {
			out = append(out, r)
			continue
		}
		prev := neighbour(i, -1)
		linkPrev := joinsForward(prev) && joinsBackward(r)

		if r == lam {
			if next := neighbour(i, 1); next != 0 {
				if lig, ok := lamAlef[next]; ok {
					if linkPrev {
						lig++
					}
					out = append(out, lig)
					// keep any harakat between lam and alef, drop the alef
					for i++; i < len(runes) && isHaraka(runes[i]); i++ {
						out = append(out, runes[i])
					}
					continue
				}
			}
		}

		linkNext := j.dual && joinsBackward(neighbour(i, 1))
		switch {
		case linkPrev && linkNext:
			out = append(out, j.iso+3)
		case linkNext:
			out = append(out, j.iso+2)
		case linkPrev:
			out = append(out, j.iso+1)
		default:
			out = append(out, j.iso)
		}
	}
	return out
}

// visual prepares s for a left-to-right text engine. Strings without Arabic
// letters are returned unchanged. Otherwise the paragraph is treated as
// right-to-left: letters are shaped, word order is reversed and Arabic words
// are mirrored while numbers and Latin words keep their reading order.
func visual(s string) string {
	if strings.IndexFunc(s, isArabic) < 0 {
		return s
	}
	words := strings.Fields(s)
	for i, w := range words {
		runes := []rune(w)
		if !containsArabic(runes) {
			continue
		}
		words[i] = string(mirrorClusters(shapeArabic(runes)))
	}
	for i, j := 0, len(words)-1; i < j; i, j = i+1, j-1 {
		words[i], words[j] = words[j], words[i]
	}
	return strings.Join(words, " ")
}

func containsArabic(runes []rune) bool {
	for _, r := range runes {
		if isArabic(r) {
			return true
		}
	}
	return false
}

// mirrorClusters reverses a shaped word, keeping each haraka after its base
// letter and leaving embedded digit runs in reading order.
func mirrorClusters(runes []rune) []rune {
	var clusters [][]rune
	for i := 0; i < len(runes); {
		start := i
		if unicode.IsDigit(runes[i]) {
			for i < len(runes) && (unicode.IsDigit(runes[i]) || runes[i] == '.' || runes[i] == ',') {
				i++
			}
		} else {
			i++
			for i < len(runes) && isHaraka(runes[i]) {
				i++
			}
		}
		clusters = append(clusters, runes[start:i])
	}
	out := make([]rune, 0, len(runes))
	for k := len(clusters) - 1; k >= 0; k-- {
		out = append(out, clusters[k]...)
	}
	return out
}
