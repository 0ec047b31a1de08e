/*
   TheTruth - claim verification against live sources with a local LLM
   Copyright (C) 2025  Unbewohnte (Kasyanov Nikolay Alexeevich)

   This program is free software: you can redistribute it and/or modify
   it under the terms of the GNU General Public License as published by
   the Free Software Foundation, either version 3 of the License, or
   (at your option) any later version.

   This program is distributed in the hope that it will be useful,
   but WITHOUT ANY WARRANTY; without even the implied warranty of
   MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
   GNU General Public License for more details.

   You should have received a copy of the GNU General Public License
   along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package feed reads the German news feeds directly over RSS.
package feed

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"Unbewohnte/TheTruth/internal/source"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	AllGerman       = "de_all"
	DefaultPageSize = 20
)

var ErrUnsupportedSource = eris.New("feed: unsupported source")

// Outlet is a single RSS-backed news source.
type Outlet struct {
	Tag    string
	Name   string
	Byline string
	URL    string
}

// DefaultOutlets lists the feeds that make up de_all, in display order.
var DefaultOutlets = []Outlet{
	{Tag: "tagesschau", Name: "Tagesschau", Byline: "ARD-aktuell", URL: "https://www.tagesschau.de/xml/rss2/"},
	{Tag: "zeit", Name: "ZEIT ONLINE", Byline: "ZEIT ONLINE", URL: "https://newsfeed.zeit.de/index"},
	{Tag: "spiegel", Name: "DER SPIEGEL", Byline: "DER SPIEGEL", URL: "https://www.spiegel.de/schlagzeilen/tops/index.rss"},
}

type Reader struct {
	Outlets  []Outlet
	PageSize int
	parser   *gofeed.Parser
}

// NewReader creates a reader over the default outlets. urls overrides the
// feed URL of an outlet by tag.
func NewReader(urls map[string]string, pageSize int, httpClient *http.Client) *Reader {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	outlets := make([]Outlet, len(DefaultOutlets))
	copy(outlets, DefaultOutlets)
	for i := range outlets {
		if url, ok := urls[outlets[i].Tag]; ok && url != "" {
			outlets[i].URL = url
		}
	}

	parser := gofeed.NewParser()
	if httpClient != nil {
		parser.Client = httpClient
	}
	parser.UserAgent = "TheTruth"

	return &Reader{
		Outlets:  outlets,
		PageSize: pageSize,
		parser:   parser,
	}
}

// Supports reports whether tag can be read natively.
func (r *Reader) Supports(tag string) bool {
	if tag == AllGerman {
		return true
	}
	_, ok := r.outlet(tag)
	return ok
}

func (r *Reader) outlet(tag string) (Outlet, bool) {
	for _, outlet := range r.Outlets {
		if outlet.Tag == tag {
			return outlet, true
		}
	}
	return Outlet{}, false
}

// Fetch returns one page of the newest articles for tag, starting at offset.
// For de_all a failing outlet is skipped as long as another one answers.
func (r *Reader) Fetch(ctx context.Context, tag string, offset int) ([]source.Item, error) {
	var outlets []Outlet
	if tag == AllGerman {
		outlets = r.Outlets
	} else {
		outlet, ok := r.outlet(tag)
		if !ok {
			return nil, eris.Wrapf(ErrUnsupportedSource, "feed: unsupported source %q", tag)
		}
		outlets = []Outlet{outlet}
	}

	// A single outlet fails the whole fetch. Among several, a failing
	// outlet is skipped and only counted.
	single := len(outlets) == 1

	var (
		mu       sync.Mutex
		articles []article
		failures []error
	)

	group, groupCtx := errgroup.WithContext(ctx)
	for _, outlet := range outlets {
		group.Go(func() error {
			fetched, err := r.fetchOutlet(groupCtx, outlet)
			if err != nil && single {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				zap.L().Warn("feed: outlet failed", zap.String("outlet", outlet.Tag), zap.Error(err))
				failures = append(failures, err)
				return nil
			}
			articles = append(articles, fetched...)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	if len(failures) == len(outlets) {
		return nil, failures[0]
	}

	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].published.After(articles[j].published)
	})

	return r.page(articles, offset), nil
}

func (r *Reader) page(articles []article, offset int) []source.Item {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(articles) {
		return []source.Item{}
	}

	end := offset + r.PageSize
	if end > len(articles) {
		end = len(articles)
	}

	items := make([]source.Item, 0, end-offset)
	for _, a := range articles[offset:end] {
		items = append(items, a.item)
	}
	return items
}

type article struct {
	item      source.Item
	published time.Time
}

func (r *Reader) fetchOutlet(ctx context.Context, outlet Outlet) ([]article, error) {
	parsed, err := r.parser.ParseURLWithContext(outlet.URL, ctx)
	if err != nil {
		return nil, eris.Wrapf(err, "%s Error", outlet.Name)
	}

	articles := make([]article, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		articles = append(articles, toArticle(outlet, entry))
	}

	return articles, nil
}

func toArticle(outlet Outlet, entry *gofeed.Item) article {
	title := entry.Title
	if title == "" {
		title = "No Title"
	}

	snippet := flatten(entry.Description)
	if snippet == "" {
		snippet = flatten(entry.Content)
	}
	if snippet == "" {
		snippet = "RSS Entry"
	}

	var published time.Time
	if entry.PublishedParsed != nil {
		published = *entry.PublishedParsed
	} else if entry.UpdatedParsed != nil {
		published = *entry.UpdatedParsed
	}

	item := source.Item{
		Title:   "[" + outlet.Name + "] " + title,
		URL:     entry.Link,
		Snippet: snippet,
		Byline:  outlet.Byline,
		Source:  outlet.Tag,
	}
	if !published.IsZero() {
		item.PublishedDate = published.UTC().Format(time.RFC3339)
	} else {
		item.PublishedDate = entry.Published
	}

	return article{item: item, published: published}
}

// flatten turns an HTML fragment into a single line of text.
func flatten(fragment string) string {
	if strings.TrimSpace(fragment) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.Join(strings.Fields(fragment), " ")
	}

	return strings.Join(strings.Fields(doc.Text()), " ")
}
