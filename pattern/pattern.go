// Package pattern finds message references in chat text.
//
// Three forms are recognized, checked in priority order:
//
//	https://discord.com/channels/<guild>/<channel>/<message>   permalink
//	> 678429687126556692                                       quoted message id
//	> some words                                               quoted text
//
// A message is classified by the first form that matches and only
// references of that form are returned.
package pattern

import (
	"regexp"
	"sort"
	"strings"

	"quote/model"
	"quote/utils"
)

var (
	permalinkRgx = regexp.MustCompile(`https?://(?:ptb\.)?discord(?:app)?\.com/channels/(\d+)/(\d+)/(\d+)/?`)
	quoteLineRgx = regexp.MustCompile(`(?m)^> (.*)$`)
)

type Result struct {
	Kind       model.ReferenceKind
	References []model.Reference
	// Residual is the text with the matched references cut out, empty
	// lines dropped and whitespace trimmed.
	Residual string
}

func (r Result) Found() bool {
	return len(r.References) != 0
}

type span struct {
	start, end int
}

func Extract(text string) Result {
	if refs, spans := permalinks(text); len(refs) != 0 {
		return Result{Kind: model.ReferenceMessageURL, References: refs, Residual: residual(text, spans)}
	}

	var (
		ids, fragments         []string
		idSpans, fragmentSpans []span
	)
	for _, m := range quoteLineRgx.FindAllStringSubmatchIndex(text, -1) {
		body := strings.TrimSpace(text[m[2]:m[3]])
		if len(body) == 0 {
			continue
		}
		if isDigits(body) {
			ids = append(ids, body)
			idSpans = append(idSpans, span{m[0], m[1]})
			continue
		}
		fragments = append(fragments, body)
		fragmentSpans = append(fragmentSpans, span{m[0], m[1]})
	}

	switch {
	case len(ids) != 0:
		return Result{
			Kind:       model.ReferenceMessageID,
			References: utils.Map(utils.Unique(ids), model.MessageIDRef),
			Residual:   residual(text, idSpans),
		}
	case len(fragments) != 0:
		return Result{
			Kind:       model.ReferenceTextFragment,
			References: []model.Reference{model.TextFragment(strings.Join(fragments, "\n"))},
			Residual:   residual(text, fragmentSpans),
		}
	}
	return Result{Residual: RemoveEmptyLines(text)}
}

func permalinks(text string) ([]model.Reference, []span) {
	var (
		refs  []model.Reference
		spans []span
	)
	for _, m := range permalinkRgx.FindAllStringSubmatchIndex(text, -1) {
		// The ids must end the link; "/345abc" is not message 345.
		if m[1] < len(text) && isWordByte(text[m[1]]) {
			continue
		}
		refs = append(refs, model.MessageURLRef(text[m[2]:m[3]], text[m[4]:m[5]], text[m[6]:m[7]]))
		spans = append(spans, span{m[0], m[1]})
	}
	return refs, spans
}

func residual(text string, spans []span) string {
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	var b strings.Builder
	last := 0
	for _, s := range spans {
		if s.start < last {
			continue
		}
		b.WriteString(text[last:s.start])
		last = s.end
	}
	b.WriteString(text[last:])
	return RemoveEmptyLines(b.String())
}

// RemoveEmptyLines drops whitespace-only lines and trims the result.
func RemoveEmptyLines(text string) string {
	lines := utils.FilterSlice(strings.Split(text, "\n"), func(line string) bool {
		return len(strings.TrimSpace(line)) == 0
	})
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func isDigits(s string) bool {
	if len(s) == 0 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isWordByte(b byte) bool {
	return b == '_' || b >= '0' && b <= '9' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
