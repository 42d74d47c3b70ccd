package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// DecodeCollection decodes a list endpoint body. The backend answers with
// either a JSON array or an object whose values are the records; both are
// accepted. Object values keep document order except that integer-like
// keys come first in ascending order, which is how the backend's clients
// have always enumerated them. null decodes to an empty collection.
func DecodeCollection[T any](data []byte) ([]T, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("read collection: %w", err)
	}

	switch tok {
	case json.Delim('['):
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, fmt.Errorf("decode array: %w", err)
		}
		if items == nil {
			items = []T{}
		}
		return items, nil
	case json.Delim('{'):
		return decodeRecords[T](dec)
	case nil:
		return []T{}, nil
	default:
		return nil, fmt.Errorf("collection: unexpected top-level value %v", tok)
	}
}

type keyedRecord[T any] struct {
	key   string
	value T
}

func decodeRecords[T any](dec *json.Decoder) ([]T, error) {
	var records []keyedRecord[T]
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read key: %w", err)
		}
		key, _ := tok.(string)

		var value T
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("decode record %q: %w", key, err)
		}
		records = append(records, keyedRecord[T]{key: key, value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("read object end: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("collection: trailing data after object")
	}

	sort.SliceStable(records, func(i, j int) bool {
		a, aok := arrayIndex(records[i].key)
		b, bok := arrayIndex(records[j].key)
		switch {
		case aok && bok:
			return a < b
		case aok:
			return true
		default:
			return false
		}
	})

	items := make([]T, len(records))
	for i, r := range records {
		items[i] = r.value
	}
	return items, nil
}

// arrayIndex reports whether key is a canonical non-negative integer.
func arrayIndex(key string) (uint64, bool) {
	n, err := strconv.ParseUint(key, 10, 32)
	if err != nil || strconv.FormatUint(n, 10) != key {
		return 0, false
	}
	return n, true
}
