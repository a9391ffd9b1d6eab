// Package render translates a page's metadata and flattened block tree into
// a deterministic Markdown document with YAML front matter plus the set of
// binary blobs it references.
package render

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"notionmirror/internal/notion"
)

// BlobRef is one binary referenced by a rendered page.
type BlobRef struct {
	Path string
	URL  string
}

// Rendered is a page's rendered Markdown plus its blob manifest, in
// first-occurrence insertion order.
type Rendered struct {
	Markdown string
	Blobs    []BlobRef
}

// Render is pure: identical inputs always produce byte-identical output.
func Render(meta notion.PageMetadata, blocks []notion.Block, propertyMap map[string]string, includes []string) Rendered {
	body, blobs := renderBlocks(blocks)
	front := renderFrontMatter(meta, propertyMap, includes)
	return Rendered{Markdown: front + body, Blobs: blobs}
}

func renderFrontMatter(meta notion.PageMetadata, propertyMap map[string]string, includes []string) string {
	var sb strings.Builder
	sb.WriteString("---\n")
	sb.WriteString("_notion:\n")
	sb.WriteString("  page_id: " + yamlScalar(meta.ID) + "\n")
	if meta.Parent.DatabaseID != "" {
		sb.WriteString("  database_id: " + yamlScalar(meta.Parent.DatabaseID) + "\n")
	}

	keys := make([]string, 0, len(meta.Properties))
	for k := range meta.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var includeSet map[string]bool
	if len(includes) > 0 {
		includeSet = make(map[string]bool, len(includes))
		for _, name := range includes {
			includeSet[name] = true
		}
	}

	for _, key := range keys {
		if includeSet != nil && !includeSet[key] {
			continue
		}
		dstKey := key
		if propertyMap != nil {
			if mapped, ok := propertyMap[key]; ok {
				if mapped == "" {
					continue
				}
				dstKey = mapped
			}
		}

		val := meta.Properties[key]
		switch val.Kind {
		case notion.PropertyText:
			sb.WriteString(yamlScalar(dstKey) + ": " + yamlScalar(val.Text) + "\n")
		case notion.PropertyList:
			if len(val.List) == 0 {
				sb.WriteString(yamlScalar(dstKey) + ": []\n")
				continue
			}
			sb.WriteString(yamlScalar(dstKey) + ":\n")
			for _, item := range val.List {
				sb.WriteString("  - " + yamlScalar(item) + "\n")
			}
		}
	}

	sb.WriteString("---\n\n")
	return sb.String()
}

func renderBlocks(blocks []notion.Block) (string, []BlobRef) {
	var body strings.Builder
	var blobs []BlobRef
	n := 0
	var table *tableBuffer

	flushTable := func() {
		if table == nil {
			return
		}
		body.WriteString(table.render())
		table = nil
	}

	for _, b := range blocks {
		if table != nil && b.Type != "table_row" && b.Type != notion.ChildrenMarker {
			flushTable()
		}

		switch b.Type {
		case "table":
			table = &tableBuffer{
				width:           0,
				hasColumnHeader: false,
				hasRowHeader:    false,
			}
			if b.Table != nil {
				table.width = b.Table.Width
				table.hasColumnHeader = b.Table.HasColumnHeader
				table.hasRowHeader = b.Table.HasRowHeader
			}
			n = 0
			continue
		case "table_row":
			if table != nil && b.TableRow != nil {
				row := make([]string, len(b.TableRow.Cells))
				for i, cell := range b.TableRow.Cells {
					row[i] = renderRichText(cell)
				}
				table.rows = append(table.rows, row)
			}
			n = 0
			continue
		case notion.ChildrenMarker:
			body.WriteString("\n")
			n = 0
			continue
		}

		if b.Type == "numbered_list_item" {
			n++
		} else {
			n = 0
		}

		renderBlock(&body, &blobs, b, n)
	}
	flushTable()

	return body.String(), blobs
}

func renderBlock(body *strings.Builder, blobs *[]BlobRef, b notion.Block, n int) {
	switch b.Type {
	case "paragraph":
		body.WriteString(renderRichText(b.RichText) + "\n\n")
	case "heading_1":
		body.WriteString("# " + renderRichText(b.RichText) + "\n\n")
	case "heading_2":
		body.WriteString("## " + renderRichText(b.RichText) + "\n\n")
	case "heading_3":
		body.WriteString("### " + renderRichText(b.RichText) + "\n\n")
	case "bulleted_list_item":
		body.WriteString("- " + renderRichText(b.RichText) + "\n")
	case "numbered_list_item":
		body.WriteString(strconv.Itoa(n) + ". " + renderRichText(b.RichText) + "\n")
	case "to_do":
		mark := "[ ]"
		if b.Checked {
			mark = "[x]"
		}
		body.WriteString("- " + mark + " " + renderRichText(b.RichText) + "\n")
	case "quote":
		body.WriteString("> " + renderRichText(b.RichText) + "\n\n")
	case "code":
		body.WriteString("```" + b.Language + "\n" + b.PlainText + "\n```\n\n")
	case "callout":
		body.WriteString("> [!NOTE]\n> " + renderRichText(b.RichText) + "\n\n")
	case "divider":
		body.WriteString("---\n\n")
	case "image":
		if path, ok := blobPath(b); ok {
			*blobs = append(*blobs, BlobRef{Path: path, URL: b.URL})
			body.WriteString("![](../" + path + ")\n\n")
		}
	case "bookmark":
		body.WriteString("[" + b.URL + "](" + b.URL + ")\n\n")
	case "toggle":
		body.WriteString("> **Toggle:** " + renderRichText(b.RichText) + "\n\n")
	case "equation":
		body.WriteString("$$\n" + b.Expression + "\n$$\n\n")
	case "child_page":
		body.WriteString("- [Page] " + b.Title + "\n\n")
	case "child_database":
		body.WriteString("- [Database] " + b.Title + "\n\n")
	case "file", "pdf", "video", "audio":
		if path, ok := blobPath(b); ok {
			*blobs = append(*blobs, BlobRef{Path: path, URL: b.URL})
			body.WriteString("[" + blobLabel(b) + "](../" + path + ")\n\n")
		}
	case "embed":
		body.WriteString("[Embed](" + b.URL + ")\n\n")
	case "link_to_page":
		target := "unknown"
		switch {
		case b.PageID != "":
			target = b.PageID
		case b.DatabaseID != "":
			target = b.DatabaseID
		}
		body.WriteString("[Link] " + target + "\n\n")
	}
}

func renderRichText(segs []notion.RichTextSegment) string {
	var sb strings.Builder
	for _, seg := range segs {
		sb.WriteString(renderSegment(seg))
	}
	return sb.String()
}

func renderSegment(seg notion.RichTextSegment) string {
	text := seg.PlainText
	if seg.Code {
		text = "`" + text + "`"
	} else {
		if seg.Bold {
			text = "**" + text + "**"
		}
		if seg.Italic {
			text = "*" + text + "*"
		}
		if seg.Strikethrough {
			text = "~~" + text + "~~"
		}
		if seg.Underline {
			text = "<u>" + text + "</u>"
		}
	}
	if seg.Href != "" {
		text = "[" + text + "](" + seg.Href + ")"
	}
	return text
}

// blobPath assigns the deterministic output path for any image/file/pdf/
// video/audio block with a resolvable URL; it reports ok=false when there
// is nothing to fetch.
func blobPath(b notion.Block) (string, bool) {
	if b.URL == "" {
		return "", false
	}
	ext := extFromName(b.Name)
	if ext == "" {
		ext = extFromURL(b.URL)
	}
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("blobs/%s.%s", b.ID, ext), true
}

func blobLabel(b notion.Block) string {
	if b.Name != "" {
		return b.Name
	}
	switch b.Type {
	case "pdf":
		return "PDF"
	case "video":
		return "Video"
	case "audio":
		return "Audio"
	default:
		return "File"
	}
}

func extFromName(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}

func extFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	seg := u.Path
	if idx := strings.LastIndex(seg, "/"); idx >= 0 {
		seg = seg[idx+1:]
	}
	idx := strings.LastIndex(seg, ".")
	if idx < 0 || idx == len(seg)-1 {
		return ""
	}
	return strings.ToLower(seg[idx+1:])
}
