package records

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrShape is wrapped by every decode failure.
var ErrShape = errors.New("unexpected response shape")

// DecodeCollections decodes a list-collections response body.
func DecodeCollections(body []byte) ([]CollectionEntry, error) {
	var list CollectionList
	if err := decode(body, &list); err != nil {
		return nil, err
	}
	if list.Comics == nil {
		return nil, fmt.Errorf("%w: missing \"comics\"", ErrShape)
	}
	for i, c := range list.Comics {
		if c.URL == "" {
			return nil, fmt.Errorf("%w: comics[%d] has no url", ErrShape, i)
		}
	}
	return list.Comics, nil
}

// DecodeItems decodes a list-items response body.
func DecodeItems(body []byte) ([]string, error) {
	var list ItemList
	if err := decode(body, &list); err != nil {
		return nil, err
	}
	if list.URLs == nil {
		return nil, fmt.Errorf("%w: missing \"urls\"", ErrShape)
	}
	return list.URLs, nil
}

// DecodeDetail decodes a get-detail response body. Unknown fields are ignored.
func DecodeDetail(body []byte) (DetailRecord, error) {
	var rec DetailRecord
	if err := decode(body, &rec); err != nil {
		return DetailRecord{}, err
	}
	return rec, nil
}

// decode unmarshals body into v. Some upstream handlers return the JSON
// document itself encoded as a JSON string; one such level is unwrapped.
func decode(body []byte, v any) error {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return fmt.Errorf("%w: %v", ErrShape, err)
		}
		trimmed = []byte(inner)
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return fmt.Errorf("%w: %v", ErrShape, err)
	}
	return nil
}
