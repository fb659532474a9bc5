// Package netscape reads and writes the bookmark HTML format browsers use for
// import and export.
package netscape

import (
	"bufio"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/MrSnakeDoc/dashsync/internal/domain"
)

// Entry is one <A> link of a bookmark file.
type Entry struct {
	Title   string
	URL     string
	Folder  string // innermost folder, empty at top level
	AddedAt time.Time
}

// Parse walks a bookmark file and returns its links in document order.
// Folders are flattened; the innermost folder name is kept on each entry.
func Parse(r io.Reader) ([]Entry, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse bookmark html: %w", err)
	}

	var (
		entries []Entry
		folders []string
		pending string // last <H3> seen, pushed when its <DL> opens
	)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "h3":
				pending = strings.TrimSpace(textOf(n))
			case "a":
				e := Entry{Title: strings.TrimSpace(textOf(n))}
				for _, attr := range n.Attr {
					switch attr.Key {
					case "href":
						e.URL = strings.TrimSpace(attr.Val)
					case "add_date":
						if sec, err := strconv.ParseInt(attr.Val, 10, 64); err == nil && sec > 0 {
							e.AddedAt = time.Unix(sec, 0).UTC()
						}
					}
				}
				if len(folders) > 0 {
					e.Folder = folders[len(folders)-1]
				}
				if e.URL != "" {
					entries = append(entries, e)
				}
				return
			case "dl":
				folders = append(folders, pending)
				pending = ""
				for c := n.FirstChild; c != nil; c = c.NextSibling {
					walk(c)
				}
				folders = folders[:len(folders)-1]
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return entries, nil
}

func textOf(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// Adder is the part of the entity store an import needs.
type Adder interface {
	AddBookmark(title, rawURL string) (domain.Bookmark, error)
	Bookmarks() []domain.Bookmark
}

// ImportResult counts what Merge did.
type ImportResult struct {
	Added     int `json:"added"`
	Duplicate int `json:"duplicate"`
	Invalid   int `json:"invalid"`
}

// Merge adds entries whose URL is not bookmarked yet. Entries without a title
// use their URL as title.
func Merge(st Adder, entries []Entry) ImportResult {
	var res ImportResult
	seen := make(map[string]struct{})
	for _, b := range st.Bookmarks() {
		seen[b.URL] = struct{}{}
	}
	for _, e := range entries {
		title := e.Title
		if title == "" {
			title = e.URL
		}
		if u, err := domain.NormalizeURL(e.URL); err == nil {
			if _, dup := seen[u]; dup {
				res.Duplicate++
				continue
			}
		}
		b, err := st.AddBookmark(title, e.URL)
		if err != nil {
			res.Invalid++
			continue
		}
		seen[b.URL] = struct{}{}
		res.Added++
	}
	return res
}

const header = `<!DOCTYPE NETSCAPE-Bookmark-file-1>
<!-- This is an automatically generated file.
     It will be read and overwritten.
     DO NOT EDIT! -->
<META HTTP-EQUIV="Content-Type" CONTENT="text/html; charset=UTF-8">
<TITLE>Bookmarks</TITLE>
<H1>Bookmarks</H1>
`

// Write renders bookmarks as a flat bookmark file.
func Write(w io.Writer, bookmarks []domain.Bookmark) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(header + "<DL><p>\n"); err != nil {
		return err
	}
	for _, b := range bookmarks {
		line := fmt.Sprintf("    <DT><A HREF=\"%s\" ADD_DATE=\"%d\">%s</A>\n",
			template.HTMLEscapeString(b.URL), b.CreatedAt.Unix(), template.HTMLEscapeString(b.Title))
		if _, err := bw.WriteString(line); err != nil {
			return err
		}
	}
	if _, err := bw.WriteString("</DL><p>\n"); err != nil {
		return err
	}
	return bw.Flush()
}
