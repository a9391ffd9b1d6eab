package notion

import (
	"strconv"
	"strings"
)

// decodeProperties walks the opaque upstream `properties` object, applying
// decodeTypedValue to each entry per the type-dispatch table in spec §4.1.1.
// It also surfaces the single title-typed property, if any.
func decodeProperties(raw map[string]interface{}) (map[string]PropertyValue, string, bool) {
	out := make(map[string]PropertyValue, len(raw))
	var title string
	var hasTitle bool

	for name, rawProp := range raw {
		prop := asMap(rawProp)
		if prop == nil {
			continue
		}
		typ, _ := prop["type"].(string)
		if typ == "" {
			continue
		}
		val, ok := decodeTypedValue(typ, prop)
		if typ == "title" {
			hasTitle = true
			if ok {
				title = val.Text
			}
		}
		if !ok {
			continue
		}
		out[name] = val
	}
	return out, title, hasTitle
}

// decodeTypedValue is the single recursive dispatch function formula and
// rollup properties also call into.
func decodeTypedValue(typ string, body map[string]interface{}) (PropertyValue, bool) {
	payload := body[typ]

	switch typ {
	case "title", "rich_text":
		return textValue(concatPlainText(asSlice(payload)))

	case "select", "status":
		m := asMap(payload)
		if m == nil {
			return PropertyValue{}, false
		}
		name, _ := m["name"].(string)
		return textValue(name)

	case "multi_select":
		var names []string
		for _, item := range asSlice(payload) {
			if m := asMap(item); m != nil {
				if n, ok := m["name"].(string); ok && n != "" {
					names = append(names, n)
				}
			}
		}
		return listValue(names)

	case "number":
		n, ok := payload.(float64)
		if !ok {
			return PropertyValue{}, false
		}
		return textValue(formatNumber(n))

	case "checkbox":
		b, ok := payload.(bool)
		if !ok {
			return PropertyValue{}, false
		}
		return textValue(strconv.FormatBool(b))

	case "date":
		m := asMap(payload)
		if m == nil {
			return PropertyValue{}, false
		}
		start, _ := m["start"].(string)
		if start == "" {
			return PropertyValue{}, false
		}
		out := start
		if end, ok := m["end"].(string); ok && end != "" {
			out += ".." + end
		}
		if tz, ok := m["time_zone"].(string); ok && tz != "" {
			out += " " + tz
		}
		return textValue(out)

	case "people":
		var names []string
		for _, item := range asSlice(payload) {
			m := asMap(item)
			if m == nil {
				continue
			}
			if n, ok := m["name"].(string); ok && n != "" {
				names = append(names, n)
			} else if id, ok := m["id"].(string); ok {
				names = append(names, id)
			}
		}
		return listValue(names)

	case "files":
		var names []string
		for _, item := range asSlice(payload) {
			m := asMap(item)
			if m == nil {
				continue
			}
			if n, ok := m["name"].(string); ok && n != "" {
				names = append(names, n)
				continue
			}
			if f := asMap(m["file"]); f != nil {
				if u, ok := f["url"].(string); ok && u != "" {
					names = append(names, u)
					continue
				}
			}
			if e := asMap(m["external"]); e != nil {
				if u, ok := e["url"].(string); ok && u != "" {
					names = append(names, u)
				}
			}
		}
		return listValue(names)

	case "relation":
		var ids []string
		for _, item := range asSlice(payload) {
			if m := asMap(item); m != nil {
				if id, ok := m["id"].(string); ok {
					ids = append(ids, id)
				}
			}
		}
		return listValue(ids)

	case "url", "email", "phone_number", "created_time", "last_edited_time":
		s, ok := payload.(string)
		if !ok {
			return PropertyValue{}, false
		}
		return textValue(s)

	case "created_by", "last_edited_by":
		m := asMap(payload)
		if m == nil {
			return PropertyValue{}, false
		}
		if n, ok := m["name"].(string); ok && n != "" {
			return textValue(n)
		}
		if id, ok := m["id"].(string); ok {
			return textValue(id)
		}
		return PropertyValue{}, false

	case "formula":
		m := asMap(payload)
		if m == nil {
			return PropertyValue{}, false
		}
		ftype, _ := m["type"].(string)
		switch ftype {
		case "string", "number", "boolean", "date":
			return decodeTypedValue(ftype, map[string]interface{}{ftype: m[ftype]})
		}
		return PropertyValue{}, false

	case "rollup":
		m := asMap(payload)
		if m == nil {
			return PropertyValue{}, false
		}
		rtype, _ := m["type"].(string)
		switch rtype {
		case "array":
			var items []string
			for _, item := range asSlice(m["array"]) {
				items = append(items, stringifyRollupItem(item))
			}
			return listValue(items)
		case "number", "date":
			return decodeTypedValue(rtype, map[string]interface{}{rtype: m[rtype]})
		}
		return PropertyValue{}, false

	case "unique_id":
		m := asMap(payload)
		if m == nil {
			return PropertyValue{}, false
		}
		prefix, _ := m["prefix"].(string)
		num, ok := m["number"].(float64)
		if !ok {
			return PropertyValue{}, false
		}
		return textValue(prefix + formatNumber(num))

	default:
		return decodeGeneric(payload)
	}
}

// decodeGeneric is the fallback for unrecognized property types: string,
// number, and boolean coerce to Text; an array of primitives coerces to a
// List.
func decodeGeneric(payload interface{}) (PropertyValue, bool) {
	switch v := payload.(type) {
	case string:
		return textValue(v)
	case float64:
		return textValue(formatNumber(v))
	case bool:
		return textValue(strconv.FormatBool(v))
	case []interface{}:
		var out []string
		for _, item := range v {
			if s := stringifyPrimitive(item); s != "" {
				out = append(out, s)
			}
		}
		return listValue(out)
	default:
		return PropertyValue{}, false
	}
}

func stringifyRollupItem(item interface{}) string {
	if m, ok := item.(map[string]interface{}); ok {
		if t, ok := m["type"].(string); ok {
			if v, ok := decodeTypedValue(t, m); ok {
				switch v.Kind {
				case PropertyText:
					return v.Text
				case PropertyList:
					return strings.Join(v.List, ", ")
				}
			}
		}
	}
	return stringifyPrimitive(item)
}

func stringifyPrimitive(v interface{}) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return formatNumber(val)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func concatPlainText(items []interface{}) string {
	var sb strings.Builder
	for _, item := range items {
		if m := asMap(item); m != nil {
			if pt, ok := m["plain_text"].(string); ok {
				sb.WriteString(pt)
			}
		}
	}
	return sb.String()
}

// textValue and listValue always succeed: emptiness of the decoded string or
// list is not "decoding failed" (a blank rich_text property still appears in
// front matter as an empty string), only a structural mismatch at the call
// site is. Call sites already guard those cases (missing field, wrong type)
// before reaching here.
func textValue(s string) (PropertyValue, bool) {
	return PropertyValue{Kind: PropertyText, Text: s}, true
}

func listValue(items []string) (PropertyValue, bool) {
	return PropertyValue{Kind: PropertyList, List: items}, true
}
