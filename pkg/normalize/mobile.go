package normalize

import "strings"

// Mobile normalizes a contact number to the local trunk-zero form the portal
// expects: "+61 412 345 678" and "61412345678" both become "0412345678".
//
// cc is the international country code without the plus. Returns ok=false
// for blank values (including the pandas "nan" artifact); the field should
// then be skipped entirely rather than filled with an empty string.
func Mobile(v, cc string) (string, bool) {
	s := strings.TrimSpace(v)
	if s == "" || strings.EqualFold(s, "nan") {
		return "", false
	}

	s = stripSeparators(s)
	cc = strings.TrimSpace(cc)

	switch {
	case cc != "" && strings.HasPrefix(s, "+"+cc):
		s = "0" + s[len(cc)+1:]
	case strings.HasPrefix(s, "+"):
		// Foreign country code; keep the digits as given.
		s = s[1:]
	case cc != "" && strings.HasPrefix(s, cc) && !strings.HasPrefix(s, "0"):
		s = "0" + s[len(cc):]
	}

	return s, s != ""
}

func stripSeparators(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case ' ', '\t', '-', '(', ')', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
