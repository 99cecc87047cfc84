package oembed

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"
)

// parseResourceXML parses a provider's XML response into the same key/value
// shape JSON decoding produces, so downstream code is format-agnostic. The
// provider wraps its payload in an envelope; only the nested `result` object
// is returned.
func parseResourceXML(data []byte, url string) (map[string]any, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false

	root, err := decodeDocument(dec)
	if err != nil {
		return nil, NewResourceError(err.Error(), url, nil, err)
	}
	if root == nil {
		return nil, NewResourceError("The fetched resource could not be parsed.", url, nil, nil)
	}

	result, ok := root["result"].(map[string]any)
	if !ok {
		return nil, NewResourceError("The fetched resource could not be parsed.", url, nil, nil)
	}
	return result, nil
}

// decodeDocument consumes tokens until the root element is found and returns
// its children as a map. A document with no root element yields nil.
func decodeDocument(dec *xml.Decoder) (map[string]any, error) {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		value, err := decodeSubtree(dec, start)
		if err != nil {
			return nil, err
		}
		if m, ok := value.(map[string]any); ok {
			return m, nil
		}
		return map[string]any{start.Name.Local: value}, nil
	}
}

// decodeSubtree consumes tokens until the end of the element opened by
// start. Text-only elements decode to strings; elements with children decode
// to maps, with repeated sibling names collected into slices.
func decodeSubtree(dec *xml.Decoder, start xml.StartElement) (any, error) {
	children := map[string]any{}
	var text strings.Builder

	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			child, err := decodeSubtree(dec, t)
			if err != nil {
				return nil, err
			}
			name := t.Name.Local
			if existing, ok := children[name]; ok {
				if list, ok := existing.([]any); ok {
					children[name] = append(list, child)
				} else {
					children[name] = []any{existing, child}
				}
			} else {
				children[name] = child
			}
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			if len(children) > 0 {
				return children, nil
			}
			return strings.TrimSpace(text.String()), nil
		}
	}
}
