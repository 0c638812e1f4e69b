package matching

import (
	"strconv"
	"strings"

	"github.com/beevik/etree"
)

// Placeholders recognized in stored element text and attribute values.
const (
	placeholderPrefix  = "${xmlunit."
	placeholderIgnore  = "${xmlunit.ignore}"
	placeholderNumber  = "${xmlunit.isNumber}"
	placeholderRegexOp = "${xmlunit.matchesRegex("
	placeholderRegexEd = ")}"
)

// XMLEquivalent reports whether both documents parse and describe the same
// element tree. Sibling order, attribute order, comments and whitespace runs
// inside text are ignored. Stored text and attribute values may use the
// ${xmlunit.matchesRegex(...)}, ${xmlunit.isNumber} and ${xmlunit.ignore}
// placeholders.
func XMLEquivalent(stored, asserted string) bool {
	want := etree.NewDocument()
	if err := want.ReadFromString(strings.TrimSpace(stored)); err != nil {
		return false
	}
	got := etree.NewDocument()
	if err := got.ReadFromString(strings.TrimSpace(asserted)); err != nil {
		return false
	}

	wr, gr := want.Root(), got.Root()
	if wr == nil || gr == nil {
		return false
	}
	return elementsEquivalent(wr, gr)
}

func elementsEquivalent(want, got *etree.Element) bool {
	if want.Tag != got.Tag || want.NamespaceURI() != got.NamespaceURI() {
		return false
	}
	if !attributesEquivalent(want, got) {
		return false
	}
	if !valueMatches(elementText(want), elementText(got)) {
		return false
	}

	wc, gc := want.ChildElements(), got.ChildElements()
	if len(wc) != len(gc) {
		return false
	}
	used := make([]bool, len(gc))
next:
	for _, w := range wc {
		for i, g := range gc {
			if !used[i] && elementsEquivalent(w, g) {
				used[i] = true
				continue next
			}
		}
		return false
	}
	return true
}

func attributesEquivalent(want, got *etree.Element) bool {
	wa, ga := plainAttrs(want), plainAttrs(got)
	if len(wa) != len(ga) {
		return false
	}
	for key, wv := range wa {
		gv, ok := ga[key]
		if !ok || !valueMatches(wv, gv) {
			return false
		}
	}
	return true
}

// plainAttrs returns attributes keyed by namespace URI and local name,
// leaving out namespace declarations.
func plainAttrs(e *etree.Element) map[string]string {
	out := make(map[string]string, len(e.Attr))
	for i := range e.Attr {
		a := &e.Attr[i]
		if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
			continue
		}
		out[a.NamespaceURI()+"|"+a.Key] = a.Value
	}
	return out
}

// elementText joins the direct character data of e, CDATA included, and
// collapses whitespace runs.
func elementText(e *etree.Element) string {
	var b strings.Builder
	for _, tok := range e.Child {
		if cd, ok := tok.(*etree.CharData); ok {
			b.WriteString(cd.Data)
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func valueMatches(want, got string) bool {
	if !strings.HasPrefix(want, placeholderPrefix) {
		return want == got
	}

	switch {
	case want == placeholderIgnore:
		return true
	case want == placeholderNumber:
		_, err := strconv.ParseFloat(got, 64)
		return err == nil
	case strings.HasPrefix(want, placeholderRegexOp) && strings.HasSuffix(want, placeholderRegexEd):
		pattern := want[len(placeholderRegexOp) : len(want)-len(placeholderRegexEd)]
		matched, _ := fullMatch(pattern, got, true)
		return matched
	}
	return want == got
}
