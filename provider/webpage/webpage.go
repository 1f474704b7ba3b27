// Package webpage retrieves a web page and reduces it to its main content as
// markdown plus page metadata.
package webpage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/PuerkitoBio/goquery"
	"github.com/gabriel-vasile/mimetype"

	"github.com/hupe1980/searchmesh/core"
	"github.com/hupe1980/searchmesh/provider"
)

const (
	name = "webpage"

	// DefaultUserAgent identifies the retriever to sites.
	DefaultUserAgent = "Mozilla/5.0 (compatible; searchmesh/1.0; +https://github.com/hupe1980/searchmesh)"

	defaultAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

// Page is a retrieved page.
type Page struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	Description string `json:"description,omitempty"`
	Language    string `json:"language,omitempty"`
	SiteName    string `json:"site_name,omitempty"`
}

// Client fetches pages.
type Client struct {
	http *provider.Client
}

// New creates a retriever.
func New(optFns ...func(o *provider.Options)) *Client {
	opts := append([]func(o *provider.Options){
		provider.WithHeader("User-Agent", DefaultUserAgent),
	}, optFns...)
	return &Client{http: provider.NewClient(name, opts...)}
}

// Retrieve fetches rawURL and converts its main content to markdown. Only
// http(s) URLs serving HTML are accepted.
func (c *Client) Retrieve(ctx context.Context, rawURL string) (*Page, error) {
	u, err := url.ParseRequestURI(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, core.NewError(core.KindInvalidArguments, fmt.Sprintf("not an http(s) url: %q", rawURL))
	}

	var body []byte
	req := provider.Request{
		Method: http.MethodGet,
		Path:   u.String(),
		Header: http.Header{"Accept": {defaultAccept}},
	}
	if err := c.http.Do(ctx, req, &body); err != nil {
		return nil, err
	}

	if mt := mimetype.Detect(body); !mt.Is("text/html") && !mt.Is("text/xml") && !mt.Is("application/xhtml+xml") {
		return nil, provider.NewError(name, core.KindMalformed, "unsupported content type "+mt.String())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &provider.Error{Provider: name, Kind: core.KindMalformed, Message: "parse html", Err: err}
	}

	page := &Page{URL: u.String()}
	extractMetadata(doc, page)

	markdown, err := htmltomarkdown.ConvertString(
		mainContent(doc),
		converter.WithDomain(fmt.Sprintf("%s://%s", u.Scheme, u.Host)),
	)
	if err != nil {
		return nil, &provider.Error{Provider: name, Kind: core.KindMalformed, Message: "convert to markdown", Err: err}
	}
	page.Content = cleanMarkdown(markdown)
	return page, nil
}

func extractMetadata(doc *goquery.Document, page *Page) {
	page.Title = strings.TrimSpace(doc.Find("head title").First().Text())
	if og, ok := doc.Find("meta[property='og:title']").Attr("content"); ok && page.Title == "" {
		page.Title = og
	}
	page.Description, _ = doc.Find("meta[name='description']").Attr("content")
	page.SiteName, _ = doc.Find("meta[property='og:site_name']").Attr("content")
	page.Language, _ = doc.Find("html").Attr("lang")
	if canonical, ok := doc.Find("link[rel='canonical']").Attr("href"); ok && strings.HasPrefix(canonical, "http") {
		page.URL = canonical
	}
}

var contentSelectors = []string{"main", "article", "#content, #main", ".content, .main", "body"}

// mainContent strips page chrome and returns the HTML of the first matching
// content container.
func mainContent(doc *goquery.Document) string {
	doc.Find("script, style, noscript, nav, header, footer, aside, form").Remove()
	for _, sel := range contentSelectors {
		s := doc.Find(sel).First()
		if s.Length() == 0 {
			continue
		}
		if html, err := s.Html(); err == nil && strings.TrimSpace(html) != "" {
			return html
		}
	}
	html, _ := doc.Html()
	return html
}

var blankLines = regexp.MustCompile(`(\r?\n){3,}`)

func cleanMarkdown(md string) string {
	lines := strings.Split(md, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	md = blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(md)
}
