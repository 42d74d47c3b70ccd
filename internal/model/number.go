package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Int is an integer the backend sends either as a JSON number or as a
// numeric string. Empty strings and null decode to zero.
type Int int64

func (n *Int) UnmarshalJSON(data []byte) error {
	s, ok, err := numberText(data)
	if err != nil || !ok {
		*n = 0
		return err
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		*n = Int(v)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("model.Int: %q is not a number", s)
	}
	*n = Int(f)
	return nil
}

// Amount is a decimal money or quantity value sent as a number or string.
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	s, ok, err := numberText(data)
	if err != nil || !ok {
		*a = 0
		return err
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("model.Amount: %q is not a number", s)
	}
	*a = Amount(f)
	return nil
}

func numberText(data []byte) (string, bool, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return "", false, nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return "", false, err
		}
		s = strings.TrimSpace(s)
		return s, s != "", nil
	}
	return string(data), true, nil
}
