package signing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// Canonicalize returns a deterministic JSON serialization of v: object keys
// are emitted in lexicographic order at every depth, with no insignificant
// whitespace. v is first round-tripped through encoding/json so struct field
// order and map iteration order cannot leak into the output.
func Canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	var norm any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&norm); err != nil {
		return nil, fmt.Errorf("normalize payload: %w", err)
	}
	buf := &bytes.Buffer{}
	if err := encodeCanonical(buf, norm); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeCanonical(w io.Writer, v any) error {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		if _, err := io.WriteString(w, "{"); err != nil {
			return err
		}
		for i, k := range keys {
			if i > 0 {
				if _, err := io.WriteString(w, ","); err != nil {
					return err
				}
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			if _, err := w.Write(kb); err != nil {
				return err
			}
			if _, err := io.WriteString(w, ":"); err != nil {
				return err
			}
			if err := encodeCanonical(w, t[k]); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "}")
		return err
	case []any:
		if _, err := io.WriteString(w, "["); err != nil {
			return err
		}
		for i, vv := range t {
			if i > 0 {
				if _, err := io.WriteString(w, ","); err != nil {
					return err
				}
			}
			if err := encodeCanonical(w, vv); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, "]")
		return err
	case json.Number:
		_, err := io.WriteString(w, t.String())
		return err
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	}
}
