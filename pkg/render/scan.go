package render

import (
	"fmt"
	"regexp"
	"strings"
)

// The namespace handed to every render. Anything else must be bound by the
// template itself (for/set/with) or the render fails at compile time.
var rootNames = map[string]struct{}{
	"item":     {},
	"features": {},
	"index":    {},
	"forloop":  {},
}

// Tag and operator words that look like identifiers inside template blocks.
var templateKeywords = map[string]struct{}{
	"if": {}, "elif": {}, "else": {}, "endif": {},
	"for": {}, "endfor": {}, "in": {}, "empty": {},
	"not": {}, "and": {}, "or": {}, "is": {},
	"set": {}, "endset": {}, "with": {}, "endwith": {},
	"block": {}, "endblock": {}, "extends": {}, "include": {},
	"macro": {}, "endmacro": {}, "import": {}, "as": {},
	"filter": {}, "endfilter": {}, "comment": {}, "endcomment": {},
	"autoescape": {}, "endautoescape": {}, "verbatim": {}, "endverbatim": {},
	"spaceless": {}, "endspaceless": {}, "cycle": {}, "firstof": {},
	"ifchanged": {}, "endifchanged": {}, "now": {}, "lorem": {},
	"true": {}, "false": {}, "none": {}, "nil": {},
	"True": {}, "False": {}, "None": {},
}

var (
	blockRe  = regexp.MustCompile(`(?s)\{\{.*?\}\}|\{%.*?%\}`)
	stringRe = regexp.MustCompile(`"(?:[^"\\]|\\.)*"|'(?:[^'\\]|\\.)*'`)
	identRe  = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*(?:\.[A-Za-z_][A-Za-z0-9_]*)*`)
)

// scanColumns extracts the record columns referenced as item.<column> and
// rejects identifiers that are neither part of the render namespace nor
// bound by the template. This keeps missing variables a hard error instead
// of an empty string in the output.
func scanColumns(src string) (map[string]struct{}, error) {
	blocks := blockRe.FindAllString(src, -1)

	bound := make(map[string]struct{})
	for _, b := range blocks {
		if !strings.HasPrefix(b, "{%") {
			continue
		}
		inner := stringRe.ReplaceAllString(strings.Trim(b[2:len(b)-2], "- \t\n"), `""`)
		fields := strings.Fields(inner)
		if len(fields) < 2 {
			continue
		}
		switch fields[0] {
		case "for":
			for _, f := range fields[1:] {
				if f == "in" {
					break
				}
				for _, name := range strings.Split(f, ",") {
					if name = strings.TrimSpace(name); name != "" {
						bound[name] = struct{}{}
					}
				}
			}
		case "set", "with":
			rest := fields[1:]
			for i, f := range rest {
				if name, _, ok := strings.Cut(f, "="); ok && name != "" {
					bound[name] = struct{}{}
					continue
				}
				// Spaced assignment ("n = 1") and the "... as n" form.
				if i+1 < len(rest) && strings.HasPrefix(rest[i+1], "=") {
					bound[f] = struct{}{}
				}
				if f == "as" && i+1 < len(rest) {
					bound[rest[i+1]] = struct{}{}
				}
			}
		}
	}

	columns := make(map[string]struct{})
	for _, b := range blocks {
		inner := stringRe.ReplaceAllString(b[2:len(b)-2], `""`)
		for _, loc := range identRe.FindAllStringIndex(inner, -1) {
			if loc[0] > 0 && (inner[loc[0]-1] == '.' || isWordByte(inner[loc[0]-1])) {
				// attribute tail or the trailing part of a longer token
				continue
			}
			if lastNonSpace(inner[:loc[0]]) == '|' {
				// filter name
				continue
			}
			path := inner[loc[0]:loc[1]]
			head, rest, hasDot := strings.Cut(path, ".")
			if _, ok := templateKeywords[head]; ok {
				continue
			}
			if _, ok := bound[head]; ok {
				continue
			}
			if _, ok := rootNames[head]; !ok {
				return nil, fmt.Errorf("undefined name %q in template", head)
			}
			if head == "item" && hasDot {
				col, _, _ := strings.Cut(rest, ".")
				columns[col] = struct{}{}
			}
		}
	}
	return columns, nil
}

func lastNonSpace(s string) byte {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] != ' ' && s[i] != '\t' && s[i] != '\n' {
			return s[i]
		}
	}
	return 0
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
