package markitdown

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mmcdole/gofeed"
)

// RSSConverter handles RSS and Atom feeds. Generic XML is left to the text
// converter since most XML documents are not feeds.
type RSSConverter struct{}

// NewRSSConverter creates a new RSSConverter.
func NewRSSConverter() *RSSConverter {
	return &RSSConverter{}
}

func (c *RSSConverter) Accepts(info StreamInfo) bool {
	return info.Matches([]string{".rss", ".atom"}, "application/rss", "application/atom")
}

func (c *RSSConverter) Convert(ctx context.Context, reader io.ReadSeeker, _ StreamInfo, _ Enricher) (*DocumentConverterResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	feed, err := gofeed.NewParser().Parse(reader)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	var b strings.Builder
	if feed.Title != "" {
		fmt.Fprintf(&b, "# %s\n\n", feed.Title)
	}
	if feed.Description != "" {
		b.WriteString(feedText(feed.Description))
		b.WriteString("\n\n")
	}

	for _, item := range feed.Items {
		if item.Title != "" {
			fmt.Fprintf(&b, "## %s\n\n", item.Title)
		}
		switch {
		case item.Published != "":
			fmt.Fprintf(&b, "Published on: %s\n\n", item.Published)
		case item.Updated != "":
			fmt.Fprintf(&b, "Updated on: %s\n\n", item.Updated)
		}
		if item.Link != "" {
			fmt.Fprintf(&b, "Link: %s\n\n", item.Link)
		}

		content := item.Content
		if content == "" {
			content = item.Description
		}
		if content != "" {
			b.WriteString(feedText(content))
			b.WriteString("\n\n")
		}
	}

	meta := map[string]string{
		"feed_type": feed.FeedType,
		"items":     strconv.Itoa(len(feed.Items)),
	}
	if feed.Link != "" {
		meta["link"] = feed.Link
	}

	return &DocumentConverterResult{
		Markdown: b.String(),
		Title:    feed.Title,
		Metadata: meta,
	}, nil
}

// feedText renders feed fields that carry HTML through the HTML pipeline.
func feedText(s string) string {
	if !strings.Contains(s, "<") || !strings.Contains(s, ">") {
		return s
	}
	md, err := convertHTMLToMarkdown(s)
	if err != nil {
		return s
	}
	return md
}
