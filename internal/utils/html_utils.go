package utils

import (
	"html/template"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MarkOutboundLinks sets rel on every absolute link so item text passes no
// ranking or referrer to the sites it mentions.
func MarkOutboundLinks(htmlStr string) template.HTML {
	if htmlStr == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlStr))
	if err != nil {
		return template.HTML(htmlStr)
	}

	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
			s.SetAttr("rel", "nofollow noopener noreferrer")
		}
	})

	// fragments come back wrapped in html/body
	body, _ := doc.Find("body").Html()
	return template.HTML(body)
}

// FirstTitle returns the text of the first <title> element, trimmed.
func FirstTitle(doc *goquery.Document) string {
	return strings.TrimSpace(doc.Find("title").First().Text())
}
