package wiki

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Citation is one inline source reference in generated Markdown. Line numbers
// are 1-based and inclusive.
type Citation struct {
	Path      string
	StartLine int
	EndLine   int
}

// String renders the citation in the wire form used inside markers.
func (c Citation) String() string {
	return fmt.Sprintf("%s:%d-%d", c.Path, c.StartLine, c.EndLine)
}

// Generated Markdown embeds citations as [path:start-end] or, for multiple
// references, [path1:s1-e1;path2:s2-e2]. The downstream renderer parses this
// exact form by regex, so it is a hard contract.
var (
	citationMarkerRe = regexp.MustCompile(`\[(.+?:[0-9]+-[0-9]+(?:;.+?:[0-9]+-[0-9]+)*)\]`)
	citationPartRe   = regexp.MustCompile(`^(.+):([0-9]+)-([0-9]+)$`)
)

// ParseCitations extracts every citation from a Markdown body, in document
// order. Bracketed text that does not match the contract is ignored.
func ParseCitations(markdown string) []Citation {
	var citations []Citation

	for _, match := range citationMarkerRe.FindAllStringSubmatch(markdown, -1) {
		for _, part := range strings.Split(match[1], ";") {
			m := citationPartRe.FindStringSubmatch(strings.TrimSpace(part))
			if m == nil {
				continue
			}
			start, err := strconv.Atoi(m[2])
			if err != nil {
				continue
			}
			end, err := strconv.Atoi(m[3])
			if err != nil {
				continue
			}
			citations = append(citations, Citation{Path: m[1], StartLine: start, EndLine: end})
		}
	}

	return citations
}
