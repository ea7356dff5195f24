package gap

import (
	"regexp"
	"strings"
)

var markerPattern = regexp.MustCompile(`(?i)\b(TODO|FIXME|HACK|NOTE)\b:?\s*(.*)`)

// commentPrefixes used to locate the comment-leading part of a line across
// the three languages this analyzer routes: Rust/JS use //, TOML uses #.
var commentPrefixes = []string{"//", "#", "*"}

func commentBody(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	for _, p := range commentPrefixes {
		if strings.HasPrefix(trimmed, p) {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, p)), true
		}
	}
	return "", false
}

// detectMarkers scans every line for TODO/FIXME/HACK/NOTE comments,
// independent of language.
func detectMarkers(path string, lines []string) []Gap {
	var gaps []Gap
	for i, line := range lines {
		body, isComment := commentBody(line)
		if !isComment {
			continue
		}
		m := markerPattern.FindStringSubmatchIndex(body)
		if m == nil {
			continue
		}
		marker := body[m[2]:m[3]]
		column := strings.Index(line, marker)
		if column < 0 {
			column = 0
		}
		gaps = append(gaps, Gap{
			Type:        TodoComment,
			FilePath:    path,
			Line:        i + 1,
			Column:      column + 1,
			Context:     strings.TrimSpace(line),
			Description: strings.TrimSpace(body[m[0]:m[1]]),
			Confidence:  0.95,
			Priority:    5,
			Metadata:    map[string]string{"marker": strings.ToUpper(marker)},
		})
	}
	return gaps
}

var (
	rustPubItem = regexp.MustCompile(`^\s*pub\s+(fn|struct|enum|trait)\s+(\w+)`)
	rustDocLine = regexp.MustCompile(`^\s*///`)
	rustAttr    = regexp.MustCompile(`^\s*#\[`)

	jsFunction = regexp.MustCompile(`^\s*(?:export\s+)?function\s+(\w+)`)
)

// detectMissingDocumentation flags public Rust items and JS top-level
// functions that have no doc comment on the lines immediately above them.
func detectMissingDocumentation(path string, lang Language, lines []string) []Gap {
	var gaps []Gap
	switch lang {
	case LangRust:
		for i, line := range lines {
			m := rustPubItem.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			if hasPrecedingDoc(lines, i, rustDocLine, rustAttr) {
				continue
			}
			gaps = append(gaps, Gap{
				Type:        MissingDocumentation,
				FilePath:    path,
				Line:        i + 1,
				Context:     strings.TrimSpace(line),
				Description: "public " + m[1] + " `" + m[2] + "` has no doc comment",
				Confidence:  0.85,
				Priority:    4,
				Metadata:    map[string]string{"item": m[2]},
			})
		}
	case LangJavaScript:
		for i, line := range lines {
			m := jsFunction.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			if i > 0 && strings.Contains(lines[i-1], "*/") {
				continue
			}
			gaps = append(gaps, Gap{
				Type:        MissingDocumentation,
				FilePath:    path,
				Line:        i + 1,
				Context:     strings.TrimSpace(line),
				Description: "function `" + m[1] + "` has no doc comment",
				Confidence:  0.8,
				Priority:    4,
				Metadata:    map[string]string{"item": m[1]},
			})
		}
	}
	return gaps
}

func hasPrecedingDoc(lines []string, idx int, docLine, attr *regexp.Regexp) bool {
	for i := idx - 1; i >= 0; i-- {
		line := lines[i]
		if docLine.MatchString(line) {
			return true
		}
		if attr.MatchString(line) || strings.TrimSpace(line) == "" {
			continue
		}
		return false
	}
	return false
}

// detectAPIDocumentationGaps flags items that have a doc comment but no
// example block within it — documented but not demonstrated.
func detectAPIDocumentationGaps(path string, lang Language, lines []string) []Gap {
	var gaps []Gap
	switch lang {
	case LangRust:
		for i, line := range lines {
			m := rustPubItem.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			start, ok := findDocBlockStart(lines, i, rustDocLine)
			if !ok {
				continue
			}
			block := strings.Join(lines[start:i], "\n")
			if strings.Contains(block, "```") {
				continue
			}
			gaps = append(gaps, Gap{
				Type:        ApiDocumentationGap,
				FilePath:    path,
				Line:        i + 1,
				Context:     strings.TrimSpace(line),
				Description: "`" + m[2] + "` is documented but has no example",
				Confidence:  0.7,
				Priority:    3,
				Metadata:    map[string]string{"item": m[2]},
			})
		}
	case LangJavaScript:
		for i, line := range lines {
			m := jsFunction.FindStringSubmatch(line)
			if m == nil || i == 0 {
				continue
			}
			if !strings.Contains(lines[i-1], "*/") {
				continue
			}
			block := jsDocBlockAbove(lines, i)
			if strings.Contains(block, "@example") || strings.Contains(block, "```") {
				continue
			}
			gaps = append(gaps, Gap{
				Type:        ApiDocumentationGap,
				FilePath:    path,
				Line:        i + 1,
				Context:     strings.TrimSpace(line),
				Description: "`" + m[1] + "` is documented but has no example",
				Confidence:  0.65,
				Priority:    3,
				Metadata:    map[string]string{"item": m[1]},
			})
		}
	}
	return gaps
}

func findDocBlockStart(lines []string, idx int, docLine *regexp.Regexp) (int, bool) {
	start := -1
	for i := idx - 1; i >= 0; i-- {
		if docLine.MatchString(lines[i]) {
			start = i
			continue
		}
		if strings.TrimSpace(lines[i]) == "" && start >= 0 {
			continue
		}
		break
	}
	return start, start >= 0
}

func jsDocBlockAbove(lines []string, idx int) string {
	end := idx - 1
	start := end
	for start >= 0 {
		if strings.Contains(lines[start], "/**") {
			break
		}
		start--
	}
	if start < 0 {
		return ""
	}
	return strings.Join(lines[start:idx], "\n")
}

var (
	rustUse    = regexp.MustCompile(`^\s*use\s+([a-zA-Z0-9_:]+)`)
	jsRequire  = regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`)
	jsImport   = regexp.MustCompile(`^\s*import\s+.*from\s+['"]([^'"]+)['"]`)
)

// defaultDocumentedAllowlist is the built-in allowlist of dependencies
// this analyzer considers already well-documented; anything imported
// that is not on this list (and not in a Config's own
// DocumentedAllowlist override) is reported as an undocumented
// technology.
func defaultDocumentedAllowlist() map[string]bool {
	return map[string]bool{
		"std":        true,
		"serde":      true,
		"serde_json": true,
		"core":       true,
	}
}

// detectUndocumentedTechnology flags imports/requires not present in the
// given documented allowlist.
func detectUndocumentedTechnology(path string, lang Language, lines []string, allowlist map[string]bool) []Gap {
	var gaps []Gap
	seen := map[string]bool{}
	add := func(i int, line, name, root string) {
		if allowlist[root] || seen[root] {
			return
		}
		seen[root] = true
		gaps = append(gaps, Gap{
			Type:        UndocumentedTechnology,
			FilePath:    path,
			Line:        i + 1,
			Context:     strings.TrimSpace(line),
			Description: "technology `" + root + "` is imported but not in the documented allowlist",
			Confidence:  0.75,
			Priority:    3,
			Metadata:    map[string]string{"technology": root},
		})
	}
	switch lang {
	case LangRust:
		for i, line := range lines {
			m := rustUse.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			root := strings.Split(m[1], "::")[0]
			add(i, line, m[1], root)
		}
	case LangJavaScript:
		for i, line := range lines {
			if m := jsRequire.FindStringSubmatch(line); m != nil {
				add(i, line, m[1], rootPackage(m[1]))
				continue
			}
			if m := jsImport.FindStringSubmatch(line); m != nil {
				add(i, line, m[1], rootPackage(m[1]))
			}
		}
	}
	return gaps
}

func rootPackage(importPath string) string {
	if strings.HasPrefix(importPath, ".") {
		return importPath
	}
	parts := strings.Split(importPath, "/")
	if strings.HasPrefix(importPath, "@") && len(parts) > 1 {
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}

var tomlKeyValue = regexp.MustCompile(`^\s*([A-Za-z0-9_.\-]+)\s*=`)

// detectConfigurationGaps flags TOML keys with no comment line immediately
// above them.
func detectConfigurationGaps(path string, lang Language, lines []string) []Gap {
	if lang != LangTOML {
		return nil
	}
	var gaps []Gap
	for i, line := range lines {
		m := tomlKeyValue.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if i > 0 {
			prev := strings.TrimSpace(lines[i-1])
			if strings.HasPrefix(prev, "#") {
				continue
			}
		}
		gaps = append(gaps, Gap{
			Type:        ConfigurationGap,
			FilePath:    path,
			Line:        i + 1,
			Context:     strings.TrimSpace(line),
			Description: "config key `" + m[1] + "` has no adjacent documentation",
			Confidence:  0.6,
			Priority:    2,
			Metadata:    map[string]string{"key": m[1]},
		})
	}
	return gaps
}
