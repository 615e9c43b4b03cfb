package zatca

// ValidVATNumber reports whether s has the shape of a ZATCA VAT registration
// number: fifteen digits starting and ending with 3.
func ValidVATNumber(s string) bool {
	if len(s) != 15 || s[0] != '3' || s[14] != '3' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
