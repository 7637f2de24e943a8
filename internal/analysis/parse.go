package analysis

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ParseTable extracts issues from the HTML table returned by the analysis
// service. Each tbody row yields one Issue from its first three cells
// (P&ID number, issue found, action required); missing cells are empty.
func ParseTable(r io.Reader) ([]Issue, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing analysis table: %w", err)
	}

	issues := []Issue{}
	var walk func(n *html.Node, inBody bool)
	walk = func(n *html.Node, inBody bool) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Tbody:
				inBody = true
			case atom.Tr:
				if inBody {
					cells := cellTexts(n)
					for len(cells) < 3 {
						cells = append(cells, "")
					}
					issues = append(issues, newIssue(len(issues)+1, cells[0], cells[1], cells[2]))
					return
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inBody)
		}
	}
	walk(doc, false)
	return issues, nil
}

// ParseTableString is ParseTable for an in-memory fragment.
func ParseTableString(s string) ([]Issue, error) {
	return ParseTable(strings.NewReader(s))
}

func cellTexts(tr *html.Node) []string {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Td {
			cells = append(cells, strings.TrimSpace(textContent(c)))
		}
	}
	return cells
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return b.String()
}
