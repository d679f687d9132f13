package render

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FindCharacterTile scans showcase HTML for the roster tile whose background
// image contains key. It returns the tile's position among all figure
// elements in document order.
func FindCharacterTile(html, key string) (int, bool, error) {
	needle := strings.ToLower(strings.TrimSpace(key))
	if needle == "" {
		return -1, false, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return -1, false, fmt.Errorf("failed to parse showcase html: %w", err)
	}

	index := -1
	doc.Find("figure").EachWithBreak(func(i int, s *goquery.Selection) bool {
		style, _ := s.Attr("style")
		if strings.Contains(strings.ToLower(backgroundImage(style)), needle) {
			index = i
			return false
		}
		return true
	})

	return index, index >= 0, nil
}

// backgroundImage extracts the background-image value from an inline style.
func backgroundImage(style string) string {
	for _, decl := range strings.Split(style, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(name), "background-image") {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
