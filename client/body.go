package client

import (
	"bytes"
	"encoding/json"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"golang.org/x/net/html"
)

var markdown = md.NewConverter("", true, nil)

// bodyMessage extracts a human-readable message from a non-envelope error
// body: a JSON "message" field, or the title or first heading of an HTML page.
func bodyMessage(body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return ""
	}

	if trimmed[0] == '{' {
		var probe struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(trimmed, &probe); err == nil {
			return strings.TrimSpace(probe.Message)
		}
		return ""
	}

	if trimmed[0] == '<' {
		if title := htmlTitle(trimmed); title != "" {
			return title
		}
		return htmlHeading(trimmed)
	}
	return ""
}

// htmlTitle returns the text of the first <title> element.
func htmlTitle(content []byte) string {
	doc, err := html.Parse(bytes.NewReader(content))
	if err != nil {
		return ""
	}

	var title string
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = strings.TrimSpace(n.FirstChild.Data)
			return
		}
		for c := n.FirstChild; c != nil && title == ""; c = c.NextSibling {
			extract(c)
		}
	}
	extract(doc)

	return title
}

// htmlHeading returns the first level-one heading of an HTML page.
func htmlHeading(content []byte) string {
	text, err := markdown.ConvertString(string(content))
	if err != nil {
		return ""
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}
