package storage

import "strings"

// SanitizeFileName reduces a caller-supplied file name to ASCII letters,
// digits, and ".-_". Everything else becomes "_", leading dots are
// stripped so the result can never be a hidden or traversal name, and an
// empty result is replaced by fallback.
func SanitizeFileName(name, fallback string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return fallback
	}
	return out
}

// SanitizeRelPath reduces a caller-supplied relative path to sanitized
// segments joined by "/". Backslashes are treated as separators, and
// empty, ".", and ".." segments are dropped. The result may be empty.
func SanitizeRelPath(p string) string {
	parts := strings.Split(strings.ReplaceAll(p, `\`, "/"), "/")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" || part == "." || part == ".." {
			continue
		}
		if part = SanitizeFileName(part, ""); part != "" {
			out = append(out, part)
		}
	}
	return strings.Join(out, "/")
}
