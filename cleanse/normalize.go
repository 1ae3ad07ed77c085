package cleanse

import (
	stdhtml "html"
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// trailerPatterns cut surface boilerplate from its first occurrence to the
// end of the line or of the text. Streaming chat UIs append these after
// the answer body.
var (
	signInTrailer     = regexp.MustCompile(`(?is)Sign in.*?(\n|$)`)
	sourcesTrailer    = regexp.MustCompile(`(?is)Sources:?.*`)
	mistakesTrailer   = regexp.MustCompile(`(?is)can make mistakes.*`)
	signedInTrailer   = regexp.MustCompile(`(?is)Once you'?re signed in.*`)
	inlineScriptBlob  = regexp.MustCompile(`(?is)\(function.*?use strict.*?\)`)
	newWindowHint     = regexp.MustCompile(`(?i)opens in a new window`)
	aboutFooter       = regexp.MustCompile(`(?is)about (this )?(gemini|assistant|chat).*$`)
	multiSpace        = regexp.MustCompile(`\s{2,}`)
	tagLike           = regexp.MustCompile(`<[a-zA-Z!/][^>]*>`)
)

// Normalizer strips markup and boilerplate and collapses a noisy capture
// into clean prose. Markup is reduced through html-to-markdown (keeps
// tables and lists legible) with a plain DOM-walk fallback, then any
// leftover tags are removed by a strict sanitizer.
type Normalizer struct {
	classifier *Classifier
	md         *converter.Converter
	strip      *bluemonday.Policy
}

// NewNormalizer creates a Normalizer sharing the given classifier's
// fragment gates. A nil classifier gets default thresholds.
func NewNormalizer(classifier *Classifier) *Normalizer {
	if classifier == nil {
		classifier = NewClassifier(Config{})
	}
	return &Normalizer{
		classifier: classifier,
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		strip: bluemonday.StrictPolicy(),
	}
}

// Normalize cleans text captured from the page: markup reduced to plain
// text, boilerplate trailers cut, duplicate and noise lines dropped,
// whitespace collapsed.
func (n *Normalizer) Normalize(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	if tagLike.MatchString(text) {
		if md, err := n.md.ConvertString(text); err == nil && strings.TrimSpace(md) != "" {
			text = md
		} else {
			text = flattenHTML(text)
		}
		text = stdhtml.UnescapeString(n.strip.Sanitize(text))
	}

	text = inlineScriptBlob.ReplaceAllString(text, " ")
	text = signInTrailer.ReplaceAllString(text, " ")
	text = sourcesTrailer.ReplaceAllString(text, " ")
	text = mistakesTrailer.ReplaceAllString(text, " ")
	text = signedInTrailer.ReplaceAllString(text, " ")
	text = newWindowHint.ReplaceAllString(text, "")
	text = aboutFooter.ReplaceAllString(text, "")

	seen := make(map[string]struct{})
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if n.classifier.Reject(line) {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		kept = append(kept, line)
	}

	out := strings.Join(kept, " ")
	out = multiSpace.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// flattenHTML extracts visible text from an HTML fragment, skipping
// script, style, noscript and hidden nodes. Fallback path when the
// markdown converter cannot handle the fragment.
func flattenHTML(fragment string) string {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			if t := strings.TrimSpace(node.Data); t != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(t)
			}
		}
		if node.Type == html.ElementNode {
			switch node.DataAtom {
			case atom.Script, atom.Style, atom.Noscript:
				return
			}
			if hasHiddenStyle(node) {
				return
			}
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return sb.String()
}

var hiddenStylePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)display\s*:\s*none`),
	regexp.MustCompile(`(?i)visibility\s*:\s*hidden`),
	regexp.MustCompile(`(?i)opacity\s*:\s*0[^.]`),
}

func hasHiddenStyle(node *html.Node) bool {
	for _, a := range node.Attr {
		if a.Key != "style" {
			continue
		}
		for _, pat := range hiddenStylePatterns {
			if pat.MatchString(a.Val) {
				return true
			}
		}
	}
	return false
}
