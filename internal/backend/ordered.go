package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type keyedInt struct {
	key string
	val int
}

// orderedInts decodes a JSON object of integers keeping key order, which
// encoding/json maps would lose. Menu ids and confirmation copy depend on it.
type orderedInts []keyedInt

func (o *orderedInts) UnmarshalJSON(b []byte) error {
	*o = nil
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := kt.(string)
		var n json.Number
		if err := dec.Decode(&n); err != nil {
			return fmt.Errorf("value for %q: %w", key, err)
		}
		v, err := n.Int64()
		if err != nil {
			f, ferr := n.Float64()
			if ferr != nil {
				return fmt.Errorf("value for %q: %w", key, ferr)
			}
			v = int64(f)
		}
		*o = append(*o, keyedInt{key: key, val: int(v)})
	}
	_, err = dec.Token()
	return err
}
