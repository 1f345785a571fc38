package vulnerabilities

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MetadataCodeLocation is the only metadata type rendered below the location line.
const MetadataCodeLocation = "CODE_LOCATION"

// Location is the loosely typed location payload of a finding, as decoded from JSON.
// The "metadata" key, when present, holds a list of {"type", "value"} entries.
type Location map[string]any

// UnmarshalJSON keeps numbers as json.Number so the dump reproduces the
// literals it was given (1.0 stays 1.0, large integers keep every digit).
func (l *Location) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return err
	}
	*l = m
	return nil
}

// Metadata is one entry of a location's metadata list.
type Metadata struct {
	Type  string
	Value string
}

// Metadata extracts the metadata entries of the location in input order.
// Entries that are not objects are skipped.
func (l Location) Metadata() []Metadata {
	var entries []map[string]any
	switch raw := l["metadata"].(type) {
	case []any:
		for _, item := range raw {
			if m, ok := item.(map[string]any); ok {
				entries = append(entries, m)
			}
		}
	case []map[string]any:
		entries = raw
	case []Metadata:
		return raw
	}

	out := make([]Metadata, 0, len(entries))
	for _, m := range entries {
		out = append(out, Metadata{Type: stringify(m["type"]), Value: stringify(m["value"])})
	}
	return out
}

type summarizer struct {
	key    string
	field  string
	format func(payload map[string]any, id string) string
}

// Checked in order after ios_store; the first key present with its identifying field wins.
var summarizers = []summarizer{
	{key: "android_store", field: "package_name", format: prefixed("Android")},
	{key: "android_file", field: "package_name", format: prefixed("Android file")},
	{key: "ios_file", field: "bundle_id", format: prefixed("iOS file")},
	{key: "domain_name", field: "name", format: prefixed("Domain")},
	{key: "ip", field: "host", format: func(payload map[string]any, host string) string {
		if mask := stringify(payload["mask"]); mask != "" {
			host = host + "/" + mask
		}
		return fmt.Sprintf("IP: `%s`", host)
	}},
}

func prefixed(label string) func(map[string]any, string) string {
	return func(_ map[string]any, id string) string {
		return fmt.Sprintf("%s: `%s`", label, id)
	}
}

// RenderLocation turns a location payload and its metadata into the markdown
// summary stored on a vulnerability. The output only depends on its inputs.
func RenderLocation(loc Location, metadata []Metadata) string {
	var b strings.Builder
	b.WriteString(primaryLine(loc))
	b.WriteString("\n")
	for _, m := range metadata {
		if m.Type != MetadataCodeLocation {
			continue
		}
		// Two trailing spaces force a markdown line break.
		fmt.Fprintf(&b, "%s: %s  \n", m.Type, m.Value)
	}
	return b.String()
}

func primaryLine(loc Location) string {
	if payload, ok := loc["ios_store"].(map[string]any); ok {
		return fmt.Sprintf("iOS: `%s`", stringify(payload["bundle_id"]))
	}
	for _, s := range summarizers {
		payload, ok := loc[s.key].(map[string]any)
		if !ok {
			continue
		}
		if id := stringify(payload[s.field]); id != "" {
			return s.format(payload, id)
		}
	}
	return fmt.Sprintf("Asset: `%s`", dump(loc))
}

// dump pretty prints the payload with sorted keys, four space indentation and
// non-ASCII characters escaped.
func dump(loc Location) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(map[string]any(loc)); err != nil {
		return fmt.Sprintf("%v", map[string]any(loc))
	}
	return escapeNonASCII(strings.TrimSuffix(buf.String(), "\n"))
}

func escapeNonASCII(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r < utf8.RuneSelf:
			b.WriteRune(r)
		case r > 0xFFFF:
			r -= 0x10000
			fmt.Fprintf(&b, `\u%04x\u%04x`, 0xD800+(r>>10), 0xDC00+(r&0x3FF))
		default:
			fmt.Fprintf(&b, `\u%04x`, r)
		}
	}
	return b.String()
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
