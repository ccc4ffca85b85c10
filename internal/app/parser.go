package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/rs/zerolog/log"

	"flex_reviews/internal/adapters/observability"
	"flex_reviews/internal/domain"
)

/********** alias registry (single source of truth) **********/

// Order inside each list is preference order; "date" before "created" matters.
var reviewAliases = map[string][]string{
	"id":           {"id", "reviewId"},
	"listing_id":   {"listingId", "listingMapId"},
	"listing_name": {"listingName"},
	"type":         {"type"},
	"status":       {"status"},
	"rating":       {"rating"},
	"text":         {"publicReview", "publicReviewText", "comment"},
	"channel":      {"channel", "channelName"},
	"channel_id":   {"channelId"},
	"guest":        {"guestName", "reviewerName"},
	"date":         {"date", "created"},
	"display":      {"displayOnWebsite"},
	"categories":   {"reviewCategory", "reviewCategories"},
}

const displayKey = "displayOnWebsite"

// ParseResult is the outcome of one batch: kept reviews plus counters for
// everything that was skipped or degraded on the way.
type ParseResult struct {
	Reviews  []domain.NormalizedReview
	Skipped  int
	Degraded map[string]int
	Warnings []domain.ParseWarning
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) (any, bool) {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		v, ok := obj[part]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

// firstAlias returns the value under the first alias path that exists,
// even when that value is JSON null.
func firstAlias(m map[string]any, key string) (any, bool) {
	for _, p := range reviewAliases[key] {
		if v, ok := lookupAny(m, p); ok {
			return v, true
		}
	}
	return nil, false
}

// firstNonEmptyAlias: first alias that holds a non-empty scalar.
func firstNonEmptyAlias(m map[string]any, key string) *string {
	for _, p := range reviewAliases[key] {
		v, _ := lookupAny(m, p)
		if s, ok := scalarString(v); ok && s != "" {
			return &s
		}
	}
	return nil
}

// scalarString renders strings and numbers as text; other kinds are rejected.
func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	}
	return "", false
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// floatFlexible: number from float64/json.Number/string like "8,0".
// ok is false when v is present but not numeric.
func floatFlexible(v any) (f *float64, ok bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case float64:
		x := t
		return &x, true
	case json.Number:
		if x, err := t.Float64(); err == nil {
			return &x, true
		}
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(t, ",", "."))
		if s == "" {
			return nil, true
		}
		if x, err := strconv.ParseFloat(s, 64); err == nil {
			return &x, true
		}
	}
	return nil, false
}

// boolFlexible accepts JSON booleans, "true"/"1"-style strings and 0/1.
func boolFlexible(v any) (b bool, ok bool) {
	switch t := v.(type) {
	case nil:
		return false, true
	case bool:
		return t, true
	case string:
		if x, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
			return x, true
		}
	case json.Number:
		switch t.String() {
		case "0":
			return false, true
		case "1":
			return true, true
		}
	}
	return false, false
}

// canonicalID turns the raw id into its text form. Integral numbers lose any
// fraction ("7.0" -> "7"); fractional numbers and non-scalars are unusable.
func canonicalID(v any) (string, bool) {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return strconv.FormatInt(n, 10), true
		}
		f, err := t.Float64()
		if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
			return "", false
		}
		return strconv.FormatFloat(f, 'f', 0, 64), true
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	}
	return "", false
}

// decodeRecord parses one raw element with numbers kept as json.Number.
func decodeRecord(raw json.RawMessage) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("record is null")
	}
	return m, nil
}

// recordID resolves the identifier of a decoded record.
func recordID(m map[string]any) (string, bool) {
	v, ok := firstAlias(m, "id")
	if !ok {
		return "", false
	}
	return canonicalID(v)
}

/********** dates **********/

// strict ISO-8601 shapes; fractional seconds are accepted by time.Parse anyway
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseDate(s string) (*time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, true
		}
	}
	if t, err := dateparse.ParseIn(s, time.UTC); err == nil {
		return &t, true
	}
	return nil, false
}

/********** record mapper **********/

// ParseRecord maps one raw element onto the canonical model. ok is false when
// the record has no usable identifier; the returned warnings then explain why.
func ParseRecord(raw json.RawMessage) (rv domain.NormalizedReview, warns []domain.ParseWarning, ok bool) {
	m, err := decodeRecord(raw)
	if err != nil {
		return rv, []domain.ParseWarning{{Field: "record", Reason: err.Error()}}, false
	}
	id, ok := recordID(m)
	if !ok {
		return rv, []domain.ParseWarning{{Field: "id", Reason: "missing or unusable identifier"}}, false
	}

	degrade := func(field, reason string) {
		warns = append(warns, domain.ParseWarning{ID: id, Field: field, Reason: reason})
	}

	rv.ID = id
	rv.ListingID = deref(firstNonEmptyAlias(m, "listing_id"))
	rv.ListingName = firstNonEmptyAlias(m, "listing_name")
	rv.Type = domain.ParseReviewType(deref(firstNonEmptyAlias(m, "type")))
	rv.Status = deref(firstNonEmptyAlias(m, "status"))
	rv.PublicReviewText = firstNonEmptyAlias(m, "text")
	rv.Channel = deref(firstNonEmptyAlias(m, "channel"))
	rv.ChannelID = deref(firstNonEmptyAlias(m, "channel_id"))
	rv.GuestName = firstNonEmptyAlias(m, "guest")

	// Rating
	if v, present := firstAlias(m, "rating"); present {
		f, fine := floatFlexible(v)
		if !fine {
			degrade("rating", fmt.Sprintf("not numeric: %v", v))
		}
		rv.Rating = f
	}

	// Date → first non-empty of date/created, ISO first, then lenient.
	if s := firstNonEmptyAlias(m, "date"); s != nil {
		rv.DateRaw = *s
		if t, fine := parseDate(*s); fine {
			rv.Date = t
		} else {
			degrade("date", fmt.Sprintf("unparsable date %q", *s))
		}
	}

	// Display flag
	if v, present := firstAlias(m, "display"); present {
		b, fine := boolFlexible(v)
		if !fine {
			degrade("displayOnWebsite", fmt.Sprintf("not a boolean: %v", v))
		}
		rv.DisplayOnWebsite = b
	}

	// Categories → flat map, last write wins.
	rv.CategoryScores = domain.CategoryScores{}
	if v, present := firstAlias(m, "categories"); present && v != nil {
		list, isList := v.([]any)
		if !isList {
			degrade("category", "category list is not an array")
		}
		for i, it := range list {
			entry, isObj := it.(map[string]any)
			if !isObj {
				degrade("category", fmt.Sprintf("entry %d is not an object", i))
				continue
			}
			name, _ := scalarString(entry["category"])
			if name == "" {
				degrade("category", fmt.Sprintf("entry %d has no category name", i))
				continue
			}
			f, fine := floatFlexible(entry["rating"])
			if !fine {
				degrade("category", fmt.Sprintf("%s: rating not numeric", name))
			}
			rv.CategoryScores[name] = f
		}
	}

	return rv, warns, true
}

// ParseBatch normalizes every record of a raw batch. Duplicate ids keep the
// first occurrence; later ones are skipped and stay untouched in the batch.
func ParseBatch(batch domain.RawBatch) ParseResult {
	res := ParseResult{
		Reviews:  make([]domain.NormalizedReview, 0, len(batch.Records)),
		Degraded: map[string]int{},
	}
	seen := make(map[string]struct{}, len(batch.Records))

	for i, rec := range batch.Records {
		rv, warns, ok := ParseRecord(rec.Raw)
		for j := range warns {
			warns[j].Index = i
		}
		if !ok {
			res.Skipped++
			res.Warnings = append(res.Warnings, warns...)
			log.Debug().Int("index", i).Str("reason", warns[0].Reason).Msg("review record skipped")
			continue
		}
		if _, dup := seen[rv.ID]; dup {
			res.Skipped++
			res.Warnings = append(res.Warnings, domain.ParseWarning{Index: i, ID: rv.ID, Field: "id", Reason: "duplicate identifier"})
			log.Debug().Int("index", i).Str("id", rv.ID).Msg("duplicate review id skipped")
			continue
		}
		seen[rv.ID] = struct{}{}

		for _, w := range warns {
			res.Degraded[w.Field]++
			log.Debug().Int("index", i).Str("id", w.ID).Str("field", w.Field).Str("reason", w.Reason).Msg("review field degraded")
		}
		res.Warnings = append(res.Warnings, warns...)
		res.Reviews = append(res.Reviews, rv)
	}

	observability.ObserveParse(res.Skipped, res.Degraded)
	if res.Skipped > 0 || len(res.Degraded) > 0 {
		ev := log.Warn().Int("records", len(batch.Records)).Int("kept", len(res.Reviews)).Int("skipped", res.Skipped)
		for field, n := range res.Degraded {
			ev = ev.Int("degraded_"+field, n)
		}
		ev.Msg("review batch parsed with issues")
	}
	return res
}
