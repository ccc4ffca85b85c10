package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"flex_reviews/internal/domain"
)

// envelope keys in preference order
var envelopeKeys = []string{"result", "data"}

type span struct {
	start, end int
}

// DecodeEnvelope locates the review list in body and records where every
// element sits, so later edits can splice bytes instead of re-encoding.
func DecodeEnvelope(body []byte) (domain.RawBatch, error) {
	members, err := objectMembers(body)
	if err != nil {
		return domain.RawBatch{}, fmt.Errorf("%w: %v", domain.ErrBadEnvelope, err)
	}

	batch := domain.RawBatch{Body: body}
	if sp, ok := members["status"]; ok {
		var st string
		if json.Unmarshal(body[sp.start:sp.end], &st) == nil {
			batch.Status = strings.ToLower(strings.TrimSpace(st))
		}
	}

	for _, key := range envelopeKeys {
		sp, ok := members[key]
		if !ok || body[sp.start] != '[' {
			continue
		}
		recs, err := arrayElements(body[sp.start:sp.end], sp.start)
		if err != nil {
			return domain.RawBatch{}, fmt.Errorf("%w: %s: %v", domain.ErrBadEnvelope, key, err)
		}
		batch.Key = key
		batch.Records = recs
		return batch, nil
	}
	return domain.RawBatch{}, fmt.Errorf("%w: no result/data list", domain.ErrBadEnvelope)
}

// objectMembers maps each top-level member of a JSON object to its value
// span. Duplicate keys resolve to the last occurrence, like encoding/json.
func objectMembers(obj []byte) (map[string]span, error) {
	out, _, err := walkObject(obj)
	return out, err
}

// walkObject also reports the offset just past the last member value
// (or -1 for an empty object) and is shared with the member splicer.
func walkObject(obj []byte) (map[string]span, int, error) {
	dec := json.NewDecoder(bytes.NewReader(obj))
	tok, err := dec.Token()
	if err != nil {
		return nil, 0, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, 0, fmt.Errorf("expected object, got %v", tok)
	}

	out := make(map[string]span, 16)
	lastEnd := -1
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return nil, 0, err
		}
		key, _ := kt.(string)
		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return nil, 0, fmt.Errorf("member %q: %w", key, err)
		}
		end := int(dec.InputOffset())
		out[key] = span{start: end - len(val), end: end}
		lastEnd = end
	}
	if _, err := dec.Token(); err != nil {
		return nil, 0, err
	}
	return out, lastEnd, nil
}

func arrayElements(arr []byte, base int) ([]domain.RawRecord, error) {
	dec := json.NewDecoder(bytes.NewReader(arr))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	var out []domain.RawRecord
	for dec.More() {
		var el json.RawMessage
		if err := dec.Decode(&el); err != nil {
			return nil, fmt.Errorf("element %d: %w", len(out), err)
		}
		end := int(dec.InputOffset())
		out = append(out, domain.RawRecord{Raw: el, Start: base + end - len(el), End: base + end})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return out, nil
}

// setMember returns obj with key's value replaced by literal, appending the
// member when obj lacks it. All other bytes are kept as they were.
func setMember(obj []byte, key string, literal []byte) ([]byte, error) {
	members, lastEnd, err := walkObject(obj)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(obj)+len(key)+16)
	if sp, ok := members[key]; ok {
		out = append(out, obj[:sp.start]...)
		out = append(out, literal...)
		return append(out, obj[sp.end:]...), nil
	}

	kb, _ := json.Marshal(key)
	member := append(append(kb, ':'), literal...)
	if lastEnd < 0 {
		at := bytes.LastIndexByte(obj, '}')
		out = append(out, obj[:at]...)
		out = append(out, member...)
		return append(out, obj[at:]...), nil
	}
	out = append(out, obj[:lastEnd]...)
	out = append(out, ',')
	out = append(out, member...)
	return append(out, obj[lastEnd:]...), nil
}
