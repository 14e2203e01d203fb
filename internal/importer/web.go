package importer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	interrors "github.com/streed/synapse/internal/errors"
	"github.com/streed/synapse/internal/logger"
	"github.com/streed/synapse/internal/models"
)

const (
	DefaultFetchTimeout = 30 * time.Second
	maxPageBytes        = 10 << 20
	userAgent           = "Mozilla/5.0 (compatible; synapse-import/1.0)"
)

// contentSelectors are tried in order; the first match is the page body.
var contentSelectors = []string{
	"article",
	"main",
	"[role='main']",
	".main-content",
	".content",
	".post-content",
	".entry-content",
	"body",
}

const strippedElements = "script, style, noscript, nav, aside, footer, .sidebar, .navigation, .menu, .footer"

type Fetcher struct {
	client *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// ValidateURL accepts absolute http and https URLs only.
func ValidateURL(pageURL string) (*url.URL, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return nil, interrors.Validation(fmt.Errorf("invalid URL: %w", err))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, interrors.Validation(fmt.Errorf("unsupported URL scheme %q", u.Scheme))
	}
	if u.Host == "" {
		return nil, interrors.Validation(fmt.Errorf("URL %q has no host", pageURL))
	}
	return u, nil
}

// Fetch downloads pageURL and converts its main content to Markdown.
func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*Document, error) {
	if _, err := ValidateURL(pageURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("failed to fetch %s: status %d", pageURL, resp.StatusCode)
	}

	return ParseHTML(pageURL, io.LimitReader(resp.Body, maxPageBytes))
}

// ParseHTML extracts the title and main content of an HTML page.
func ParseHTML(pageURL string, r io.Reader) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := strings.TrimSpace(doc.Find("head title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find(`meta[property="og:title"]`).AttrOr("content", ""))
	}
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	if title == "" {
		title = pageURL
	}

	var tags []string
	if keywords, ok := doc.Find(`meta[name="keywords"]`).Attr("content"); ok {
		tags = models.ParseTags(keywords)
	}

	doc.Find(strippedElements).Remove()

	var html string
	for _, selector := range contentSelectors {
		sel := doc.Find(selector).First()
		if sel.Length() == 0 {
			continue
		}
		html, err = sel.Html()
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", selector, err)
		}
		break
	}

	content, err := toMarkdown(pageURL, html)
	if err != nil {
		return nil, err
	}
	logger.Debug("Extracted content from %s: title=%q, content_length=%d", pageURL, title, len(content))

	return &Document{
		Title:   title,
		Content: content,
		Tags:    tags,
		Source:  pageURL,
	}, nil
}

func toMarkdown(pageURL, html string) (string, error) {
	domain := ""
	if u, err := url.Parse(pageURL); err == nil {
		domain = u.Host
	}

	converter := md.NewConverter(domain, true, nil)
	converter.AddRules(
		md.Rule{
			Filter: []string{"img"},
			Replacement: func(content string, selection *goquery.Selection, opt *md.Options) *string {
				src, exists := selection.Attr("src")
				if !exists {
					text := ""
					return &text
				}
				alt, _ := selection.Attr("alt")
				if alt == "" {
					alt = "Image"
				}
				result := fmt.Sprintf("![%s](%s)", alt, resolveURL(pageURL, src))
				return &result
			},
		},
	)

	markdown, err := converter.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}
	return cleanMarkdownContent(markdown), nil
}

// resolveURL resolves href against baseURL, returning href unchanged when
// either fails to parse.
func resolveURL(baseURL, href string) string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// ImportURL fetches pageURL and stores it as a note, with the source URL
// appended to the content.
func ImportURL(ctx context.Context, c Creator, f *Fetcher, pageURL string, extraTags []string) (*models.Note, error) {
	doc, err := f.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	if doc.Content == "" {
		return nil, interrors.Validation(interrors.ErrEmptyContent, "source", pageURL)
	}

	content := doc.Content + "\n\nSource: " + pageURL
	return c.Create(ctx, doc.Title, content, mergeTags(doc.Tags, extraTags))
}
