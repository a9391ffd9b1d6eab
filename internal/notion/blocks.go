package notion

// parseBlock decodes one raw block object into its typed payload. Unknown
// kinds keep only the generic fields; the renderer ignores them.
func parseBlock(raw map[string]interface{}) Block {
	b := Block{}
	b.ID, _ = raw["id"].(string)
	b.Type, _ = raw["type"].(string)
	b.HasChildren, _ = raw["has_children"].(bool)

	payload := asMap(raw[b.Type])
	if payload == nil {
		return b
	}

	switch b.Type {
	case "paragraph", "heading_1", "heading_2", "heading_3",
		"bulleted_list_item", "numbered_list_item", "quote", "callout", "toggle":
		b.RichText = parseRichText(asSlice(payload["rich_text"]))

	case "to_do":
		b.RichText = parseRichText(asSlice(payload["rich_text"]))
		b.Checked, _ = payload["checked"].(bool)

	case "code":
		rt := asSlice(payload["rich_text"])
		b.RichText = parseRichText(rt)
		b.PlainText = concatPlainText(rt)
		b.Language, _ = payload["language"].(string)

	case "equation":
		b.Expression, _ = payload["expression"].(string)

	case "bookmark", "embed":
		b.URL, _ = payload["url"].(string)

	case "image", "file", "pdf", "video", "audio":
		b.URL, b.Name = parseFileLike(payload)

	case "child_page", "child_database":
		b.Title, _ = payload["title"].(string)

	case "link_to_page":
		b.PageID, _ = payload["page_id"].(string)
		b.DatabaseID, _ = payload["database_id"].(string)

	case "table":
		width := 0
		if w, ok := payload["table_width"].(float64); ok {
			width = int(w)
		}
		hasCol, _ := payload["has_column_header"].(bool)
		hasRow, _ := payload["has_row_header"].(bool)
		b.Table = &TableProps{Width: width, HasColumnHeader: hasCol, HasRowHeader: hasRow}

	case "table_row":
		var cells [][]RichTextSegment
		for _, cell := range asSlice(payload["cells"]) {
			cells = append(cells, parseRichText(asSlice(cell)))
		}
		b.TableRow = &TableRowProps{Cells: cells}
	}

	return b
}

func parseFileLike(payload map[string]interface{}) (url, name string) {
	if n, ok := payload["name"].(string); ok {
		name = n
	}
	t, _ := payload["type"].(string)
	switch t {
	case "file":
		if f := asMap(payload["file"]); f != nil {
			url, _ = f["url"].(string)
		}
	case "external":
		if e := asMap(payload["external"]); e != nil {
			url, _ = e["url"].(string)
		}
	}
	return
}

func parseRichText(items []interface{}) []RichTextSegment {
	out := make([]RichTextSegment, 0, len(items))
	for _, item := range items {
		m := asMap(item)
		if m == nil {
			continue
		}
		seg := RichTextSegment{}
		seg.PlainText, _ = m["plain_text"].(string)
		if ann := asMap(m["annotations"]); ann != nil {
			seg.Bold, _ = ann["bold"].(bool)
			seg.Italic, _ = ann["italic"].(bool)
			seg.Strikethrough, _ = ann["strikethrough"].(bool)
			seg.Underline, _ = ann["underline"].(bool)
			seg.Code, _ = ann["code"].(bool)
		}
		if href, ok := m["href"].(string); ok {
			seg.Href = href
		}
		out = append(out, seg)
	}
	return out
}

func parseParent(m map[string]interface{}) ParentRef {
	if m == nil {
		return ParentRef{}
	}
	ref := ParentRef{}
	ref.Kind, _ = m["type"].(string)
	if id, ok := m["database_id"].(string); ok {
		ref.DatabaseID = id
	}
	if id, ok := m["data_source_id"].(string); ok {
		ref.DataSourceID = id
	}
	return ref
}
