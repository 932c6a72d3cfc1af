// Package lottie reads Lottie animation documents and embeds their external
// image assets as base64 data URIs.
package lottie

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
)

// Document is a loosely typed Lottie animation. Top-level fields other than
// "assets" are held as raw JSON and re-emitted as they were read, in their
// original key order.
type Document struct {
	fields    map[string]json.RawMessage
	order     []string
	Assets    []Asset
	assetKeys [][]string
	hasAssets bool
}

// Parse decodes a Lottie JSON document.
//
// Malformed JSON, a non-object top-level value, a non-array "assets" field
// or a non-object asset yield a *ParseError. A null or empty document yields
// ErrNoData. A document without "assets" (or with "assets": null) is valid
// and passes through unchanged.
func Parse(data []byte) (*Document, error) {
	if !json.Valid(data) {
		var v any
		err := json.Unmarshal(data, &v)
		return nil, &ParseError{Asset: -1, Msg: "malformed JSON", Err: err}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			if isEmptyValue(data) {
				return nil, ErrNoData
			}
			return nil, &ParseError{Asset: -1, Msg: "top-level value is not an object"}
		}
		return nil, &ParseError{Asset: -1, Msg: "malformed JSON", Err: err}
	}
	if len(fields) == 0 {
		return nil, ErrNoData
	}

	order, err := objectKeys(data)
	if err != nil {
		return nil, &ParseError{Asset: -1, Msg: "malformed JSON", Err: err}
	}
	doc := &Document{fields: fields, order: order}

	raw, ok := fields["assets"]
	if !ok || isNull(raw) {
		return doc, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &ParseError{Asset: -1, Msg: `"assets" is not an array`}
	}

	doc.hasAssets = true
	doc.Assets = make([]Asset, 0, len(items))
	doc.assetKeys = make([][]string, 0, len(items))
	for i, item := range items {
		var asset Asset
		if err := json.Unmarshal(item, &asset); err != nil || asset == nil {
			return nil, &ParseError{Asset: i, Msg: "not an object"}
		}
		keys, err := objectKeys(item)
		if err != nil {
			return nil, &ParseError{Asset: i, Msg: "not an object", Err: err}
		}
		doc.Assets = append(doc.Assets, asset)
		doc.assetKeys = append(doc.assetKeys, keys)
	}

	return doc, nil
}

// Header decodes the summary properties of the animation. Missing or
// mistyped properties are left at their zero value.
func (d *Document) Header() Header {
	var h Header
	decodeField(d.fields, "v", &h.Version)
	decodeField(d.fields, "nm", &h.Name)
	decodeField(d.fields, "w", &h.Width)
	decodeField(d.fields, "h", &h.Height)
	decodeField(d.fields, "fr", &h.FrameRate)
	decodeField(d.fields, "ip", &h.InPoint)
	decodeField(d.fields, "op", &h.OutPoint)
	return h
}

// Marshal encodes the document as compact JSON. Keys keep the order they
// had in the input; keys added since then follow in sorted order. HTML
// characters are not escaped so string values round-trip byte for byte.
func (d *Document) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range orderedKeys(d.order, d.fields) {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(&buf, k); err != nil {
			return nil, err
		}
		if k == "assets" && d.hasAssets {
			if err := d.writeAssets(&buf); err != nil {
				return nil, err
			}
			continue
		}
		if err := json.Compact(&buf, d.fields[k]); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (d *Document) writeAssets(buf *bytes.Buffer) error {
	buf.WriteByte('[')
	for i, asset := range d.Assets {
		if i > 0 {
			buf.WriteByte(',')
		}
		var order []string
		if i < len(d.assetKeys) {
			order = d.assetKeys[i]
		}
		if err := writeObject(buf, asset, order); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

func writeObject(buf *bytes.Buffer, fields map[string]json.RawMessage, order []string) error {
	buf.WriteByte('{')
	for i, k := range orderedKeys(order, fields) {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeKey(buf, k); err != nil {
			return err
		}
		if err := json.Compact(buf, fields[k]); err != nil {
			return err
		}
	}
	buf.WriteByte('}')
	return nil
}

func writeKey(buf *bytes.Buffer, key string) error {
	k, err := encodeCompact(key)
	if err != nil {
		return err
	}
	buf.Write(k)
	buf.WriteByte(':')
	return nil
}

// orderedKeys lists the keys of fields: first those named in order, then
// the rest sorted.
func orderedKeys(order []string, fields map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(fields))
	listed := make(map[string]bool, len(order))
	for _, k := range order {
		if _, ok := fields[k]; ok && !listed[k] {
			listed[k] = true
			keys = append(keys, k)
		}
	}

	var extra []string
	for k := range fields {
		if !listed[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return append(keys, extra...)
}

// objectKeys returns the keys of the JSON object in data in source order,
// each listed once.
func objectKeys(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("not an object")
	}

	var keys []string
	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errors.New("object key is not a string")
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func encodeCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func decodeField(fields map[string]json.RawMessage, key string, dst any) {
	if raw, ok := fields[key]; ok {
		_ = json.Unmarshal(raw, dst)
	}
}

func isEmptyValue(data []byte) bool {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return false
	}
	switch x := v.(type) {
	case nil:
		return true
	case []any:
		return len(x) == 0
	case string:
		return x == ""
	case bool:
		return !x
	case float64:
		return x == 0
	}
	return false
}
