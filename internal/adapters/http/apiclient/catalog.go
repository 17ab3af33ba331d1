package apiclient

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/okian/signupdesk/internal/domain/model"
)

// decodeCatalog streams a JSON object of name -> details, keeping key order.
// A repeated key replaces the earlier value in place.
func decodeCatalog(r io.Reader) (model.Catalog, error) {
	dec := json.NewDecoder(r)

	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	catalog := model.Catalog{}
	index := map[string]int{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		name, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("%w: unexpected key %v", ErrDecode, tok)
		}

		var a model.Activity
		if err := dec.Decode(&a); err != nil {
			return nil, fmt.Errorf("%w: activity %q: %w", ErrDecode, name, err)
		}
		a.Name = name

		if i, seen := index[name]; seen {
			catalog[i] = a
			continue
		}
		index[name] = len(catalog)
		catalog = append(catalog, a)
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return catalog, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("%w: expected %q, got %v", ErrDecode, want, tok)
	}
	return nil
}
