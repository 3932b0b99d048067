package utils

import "strings"

// DefaultIfBlank は、s が空白のみの場合に def を返します。
// それ以外の場合は s をそのまま返します（前後の空白は保持されます）。
func DefaultIfBlank(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
