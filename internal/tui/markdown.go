package tui

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/alecthomas/chroma"
	"github.com/alecthomas/chroma/formatters"
	"github.com/alecthomas/chroma/lexers"
	"github.com/alecthomas/chroma/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	codeBlockRe  = regexp.MustCompile(`(?s)<pre><code(?: class="language-([a-zA-Z0-9]+)")?>(.*?)</code></pre>`)
	inlineCodeRe = regexp.MustCompile(`<code>([^<]+)</code>`)
	headingRe    = regexp.MustCompile(`<h([1-3]) id="[^"]*">(.*?)</h[1-3]>`)
	strongRe     = regexp.MustCompile(`<strong>(.*?)</strong>`)
	emRe         = regexp.MustCompile(`<em>(.*?)</em>`)
	linkRe       = regexp.MustCompile(`<a href="([^"]*)">(.*?)</a>`)
	blockquoteRe = regexp.MustCompile(`(?s)<blockquote>(.*?)</blockquote>`)
	listRe       = regexp.MustCompile(`(?s)<(ul|ol)>(.*?)</(?:ul|ol)>`)
	listItemRe   = regexp.MustCompile(`<li>(.*?)</li>`)
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
	manyBlanksRe = regexp.MustCompile(`\n{3,}`)
)

// MarkdownRenderer turns assistant markdown into styled terminal output:
// goldmark renders to HTML, then the HTML is rewritten into lipgloss-styled
// text with chroma highlighting for fenced code.
type MarkdownRenderer struct {
	md        goldmark.Markdown
	theme     Theme
	formatter chroma.Formatter
	codeStyle *chroma.Style
}

func NewMarkdownRenderer(theme Theme) *MarkdownRenderer {
	return &MarkdownRenderer{
		md: goldmark.New(
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
			goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
			goldmark.WithExtensions(extension.GFM),
		),
		theme:     theme,
		formatter: formatters.Get("terminal256"),
		codeStyle: styles.Get("monokai"),
	}
}

// Render converts markdown to terminal text wrapped to width. On any parse
// failure the raw content is returned untouched.
func (r *MarkdownRenderer) Render(content string, width int) string {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(content), &buf); err != nil {
		return content
	}
	return r.rewrite(buf.String(), width)
}

func (r *MarkdownRenderer) rewrite(doc string, width int) string {
	// Code blocks are pulled out first so later passes cannot mangle them.
	var fenced []string
	doc = codeBlockRe.ReplaceAllStringFunc(doc, func(m string) string {
		sub := codeBlockRe.FindStringSubmatch(m)
		code := decodeEntities(sub[2])
		blockWidth := width - 6
		if blockWidth < 20 {
			blockWidth = 20
		}
		styled := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(r.theme.Border).
			Padding(0, 1).
			Width(blockWidth).
			Render(r.highlight(strings.TrimRight(code, "\n"), sub[1]))
		fenced = append(fenced, styled)
		return fmt.Sprintf("\n{{FENCE_%d}}\n", len(fenced)-1)
	})

	doc = inlineCodeRe.ReplaceAllStringFunc(doc, func(m string) string {
		sub := inlineCodeRe.FindStringSubmatch(m)
		return lipgloss.NewStyle().
			Foreground(r.theme.Accent).
			Render("`" + decodeEntities(sub[1]) + "`")
	})

	doc = headingRe.ReplaceAllStringFunc(doc, func(m string) string {
		sub := headingRe.FindStringSubmatch(m)
		style := lipgloss.NewStyle().Bold(true).Foreground(r.theme.Accent)
		if sub[1] != "1" {
			style = style.Foreground(r.theme.TextPrimary)
		}
		return style.Render(strings.Repeat("#", int(sub[1][0]-'0'))+" "+sub[2]) + "\n"
	})

	doc = strongRe.ReplaceAllStringFunc(doc, func(m string) string {
		sub := strongRe.FindStringSubmatch(m)
		return lipgloss.NewStyle().Bold(true).Render(sub[1])
	})
	doc = emRe.ReplaceAllStringFunc(doc, func(m string) string {
		sub := emRe.FindStringSubmatch(m)
		return lipgloss.NewStyle().Italic(true).Render(sub[1])
	})
	doc = linkRe.ReplaceAllStringFunc(doc, func(m string) string {
		sub := linkRe.FindStringSubmatch(m)
		return lipgloss.NewStyle().
			Foreground(r.theme.Accent).
			Underline(true).
			Render(fmt.Sprintf("%s (%s)", sub[2], sub[1]))
	})

	doc = blockquoteRe.ReplaceAllStringFunc(doc, func(m string) string {
		sub := blockquoteRe.FindStringSubmatch(m)
		quote := strings.TrimSpace(htmlTagRe.ReplaceAllString(sub[1], ""))
		var b strings.Builder
		for _, line := range strings.Split(quote, "\n") {
			b.WriteString(lipgloss.NewStyle().Foreground(r.theme.TextFaint).Render("│ " + line))
			b.WriteString("\n")
		}
		return b.String()
	})

	doc = listRe.ReplaceAllStringFunc(doc, func(m string) string {
		sub := listRe.FindStringSubmatch(m)
		ordered := sub[1] == "ol"
		var b strings.Builder
		for i, item := range listItemRe.FindAllStringSubmatch(sub[2], -1) {
			marker := "• "
			if ordered {
				marker = fmt.Sprintf("%d. ", i+1)
			}
			b.WriteString("  ")
			b.WriteString(lipgloss.NewStyle().Foreground(r.theme.Accent).Render(marker))
			b.WriteString(htmlTagRe.ReplaceAllString(item[1], ""))
			b.WriteString("\n")
		}
		return b.String()
	})

	replacer := strings.NewReplacer("<p>", "", "</p>", "\n", "<br>", "\n", "<br/>", "\n", "<br />", "\n")
	doc = replacer.Replace(doc)

	for i, block := range fenced {
		doc = strings.ReplaceAll(doc, fmt.Sprintf("{{FENCE_%d}}", i), block)
	}

	doc = htmlTagRe.ReplaceAllString(doc, "")
	doc = decodeEntities(doc)
	doc = manyBlanksRe.ReplaceAllString(doc, "\n\n")
	return strings.TrimSpace(doc)
}

func (r *MarkdownRenderer) highlight(code, lang string) string {
	var lexer chroma.Lexer
	if lang != "" {
		lexer = lexers.Get(lang)
	}
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	iterator, err := chroma.Coalesce(lexer).Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf bytes.Buffer
	if err := r.formatter.Format(&buf, r.codeStyle, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}

var entityReplacer = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&#39;", "'",
	"&#x27;", "'",
	"&#x60;", "`",
	"&nbsp;", " ",
	"&hellip;", "...",
)

func decodeEntities(s string) string {
	return entityReplacer.Replace(s)
}
