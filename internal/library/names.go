package library

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// IdentityName turns a directory name into an identity name. Names are NFC
// normalized so the same person typed on different systems maps to one key.
func IdentityName(dir string) string {
	return strings.TrimSpace(norm.NFC.String(dir))
}

// DirName maps an identity name to a single safe path element.
func DirName(person string) string {
	name := strings.TrimSpace(norm.NFC.String(person))
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\':
			return '_'
		case r < 0x20 || r == 0x7f:
			return -1
		}
		return r
	}, name)

	switch name {
	case "", ".", "..":
		return "_"
	}
	return name
}
