// Package lang resolves the game's {page,text} string templates against the
// t/ language files. Unresolved placeholders are reported to the caller,
// never silently dropped.
package lang

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// fieldRe matches one {page_id,text_id} placeholder.
var fieldRe = regexp.MustCompile(`\{\s*(\d+)\s*,\s*(\d+)\s*\}`)

// maxDepth bounds recursive template substitution. Language entries may
// reference other entries; a reference chain deeper than this is treated as
// unresolvable rather than looping.
const maxDepth = 8

// Files maps locale aliases to the game's language file paths. The game
// keys its files by country calling code.
var files = map[string]string{
	"ru": "t/0001-l007.xml", "russian": "t/0001-l007.xml",
	"fr": "t/0001-l033.xml", "french": "t/0001-l033.xml",
	"es": "t/0001-l034.xml", "spanish": "t/0001-l034.xml",
	"it": "t/0001-l039.xml", "italian": "t/0001-l039.xml",
	"en": "t/0001-l044.xml", "english": "t/0001-l044.xml",
	"de": "t/0001-l049.xml", "german": "t/0001-l049.xml",
	"pt": "t/0001-l055.xml", "portuguese": "t/0001-l055.xml",
	"ja": "t/0001-l081.xml", "japanese": "t/0001-l081.xml",
	"ko": "t/0001-l082.xml", "korean": "t/0001-l082.xml",
	"zh": "t/0001-l086.xml", "chinese": "t/0001-l086.xml",
	"zh-tw": "t/0001-l088.xml", "chinese-tw": "t/0001-l088.xml",
}

// FileForLocale maps a locale alias to its language file path.
func FileForLocale(locale string) (string, bool) {
	p, ok := files[strings.ToLower(strings.TrimSpace(locale))]
	return p, ok
}

// Resolver holds the loaded pages of one language. Resolve is safe for
// concurrent use; the per-kind fan-out shares one resolver across workers.
type Resolver struct {
	locale string
	pages  map[string]map[string]string

	// mu guards unresolved, the only mutable state after Load.
	mu sync.Mutex
	// unresolved accumulates the placeholders that had no page/text entry,
	// in encounter order, duplicates included.
	unresolved []string
}

type langDoc struct {
	XMLName xml.Name `xml:"language"`
	Pages   []struct {
		ID    string `xml:"id,attr"`
		Texts []struct {
			ID    string `xml:"id,attr"`
			Value string `xml:",chardata"`
		} `xml:"t"`
	} `xml:"page"`
}

// Load parses one language file.
func Load(locale string, data []byte) (*Resolver, error) {
	var doc langDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("language file for %s: %w", locale, err)
	}

	r := &Resolver{locale: locale, pages: make(map[string]map[string]string, len(doc.Pages))}
	for _, page := range doc.Pages {
		texts := r.pages[page.ID]
		if texts == nil {
			texts = make(map[string]string, len(page.Texts))
			r.pages[page.ID] = texts
		}
		for _, t := range page.Texts {
			texts[t.ID] = t.Value
		}
	}
	return r, nil
}

// Locale returns the locale the resolver was loaded for.
func (r *Resolver) Locale() string { return r.locale }

// Resolve substitutes every {page,text} placeholder in the template,
// repeating until no substitutions remain (entries may reference entries).
// Placeholders without an entry stay verbatim in the output and are
// reported via Unresolved.
func (r *Resolver) Resolve(template string) string {
	if template == "" {
		return template
	}

	text := template
	for depth := 0; depth < maxDepth; depth++ {
		replaced := fieldRe.ReplaceAllStringFunc(text, func(field string) string {
			m := fieldRe.FindStringSubmatch(field)
			value, ok := r.lookup(m[1], m[2])
			if !ok {
				r.mu.Lock()
				r.unresolved = append(r.unresolved, field)
				r.mu.Unlock()
				return field
			}
			return stripComments(value)
		})
		if replaced == text {
			break
		}
		text = replaced
	}

	return unescape(text)
}

// ResolveStripped resolves and trims surrounding whitespace. Names and
// descriptions in the game data often carry stray padding.
func (r *Resolver) ResolveStripped(template string) string {
	return strings.TrimSpace(r.Resolve(template))
}

// Unresolved returns the placeholders that had no language entry, in
// encounter order, duplicates included.
func (r *Resolver) Unresolved() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.unresolved...)
}

func (r *Resolver) lookup(pageID, textID string) (string, bool) {
	texts, ok := r.pages[pageID]
	if !ok {
		return "", false
	}
	v, ok := texts[textID]
	return v, ok
}

// stripComments removes text inside unescaped parenthesis pairs; language
// entries embed translator comments that never reach the screen.
func stripComments(s string) string {
	var b strings.Builder
	depth := 0
	escaped := false
	for _, c := range s {
		switch {
		case escaped:
			if depth == 0 {
				b.WriteRune('\\')
				b.WriteRune(c)
			}
			escaped = false
		case c == '\\':
			escaped = true
		case c == '(':
			depth++
		case c == ')' && depth > 0:
			depth--
		case depth == 0:
			b.WriteRune(c)
		}
	}
	if escaped && depth == 0 {
		b.WriteRune('\\')
	}
	return b.String()
}

// unescape drops the backslash from every escape sequence.
func unescape(s string) string {
	var b strings.Builder
	escaped := false
	for _, c := range s {
		if escaped {
			b.WriteRune(c)
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}
