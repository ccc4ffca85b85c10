package app_test

import (
	"encoding/json"
	"testing"

	"flex_reviews/internal/app"
	"flex_reviews/internal/domain"
)

const scenario = `{"status":"success","result":[{"id":1,"rating":8,"date":"2024-01-15","reviewCategory":[{"category":"cleanliness","rating":9}]}, {"id":2,"rating":null,"date":"bad-date"}]}`

func mustBatch(t *testing.T, body string) domain.RawBatch {
	t.Helper()
	b, err := app.DecodeEnvelope([]byte(body))
	if err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	return b
}

func TestParseBatch_Scenario(t *testing.T) {
	res := app.ParseBatch(mustBatch(t, scenario))
	if len(res.Reviews) != 2 || res.Skipped != 0 {
		t.Fatalf("want 2 reviews, got %d (skipped %d)", len(res.Reviews), res.Skipped)
	}
	one, two := res.Reviews[0], res.Reviews[1]
	if one.ID != "1" || one.Rating == nil || *one.Rating != 8 {
		t.Fatalf("review 1: %+v", one)
	}
	if one.Date == nil || one.Date.Format("2006-01-02") != "2024-01-15" {
		t.Fatalf("review 1 date: %v", one.Date)
	}
	if s, ok := one.CategoryScores.Score("cleanliness"); !ok || s != 9 {
		t.Fatalf("cleanliness = %v %v", s, ok)
	}
	if two.Date != nil || two.Rating != nil {
		t.Fatalf("review 2 should have null date and rating: %+v", two)
	}
	if two.DateRaw != "bad-date" {
		t.Fatalf("raw date lost: %q", two.DateRaw)
	}
	if res.Degraded["date"] != 1 {
		t.Fatalf("degraded = %v", res.Degraded)
	}
}

func TestParseBatch_IDsUniqueAndFromInput(t *testing.T) {
	body := `{"result":[{"id":3},{"id":"3"},{"reviewId":4.0},{"id":null},{"id":5.5},{"id":6},"junk"]}`
	res := app.ParseBatch(mustBatch(t, body))

	seen := map[string]bool{}
	for _, rv := range res.Reviews {
		if seen[rv.ID] {
			t.Fatalf("duplicate id %s", rv.ID)
		}
		seen[rv.ID] = true
	}
	want := []string{"3", "4", "6"}
	if len(res.Reviews) != len(want) {
		t.Fatalf("want ids %v, got %d reviews", want, len(res.Reviews))
	}
	for i, id := range want {
		if res.Reviews[i].ID != id {
			t.Fatalf("review %d id = %s, want %s", i, res.Reviews[i].ID, id)
		}
	}
	if res.Skipped != 4 {
		t.Fatalf("skipped = %d", res.Skipped)
	}
}

func TestParseRecord_DuplicateCategoryLastWins(t *testing.T) {
	raw := json.RawMessage(`{"id":1,"reviewCategory":[{"category":"x","rating":1},{"category":"x","rating":5}]}`)
	rv, _, ok := app.ParseRecord(raw)
	if !ok {
		t.Fatal("record rejected")
	}
	if s, _ := rv.CategoryScores.Score("x"); s != 5 {
		t.Fatalf(`categoryScores["x"] = %v, want 5`, s)
	}
}

func TestParseRecord_Aliases(t *testing.T) {
	raw := json.RawMessage(`{
		"reviewId": 10, "listingMapId": 77, "comment": "  Lovely  ", "channelName": "airbnb",
		"reviewerName": "Jo", "created": "2023-05-01T10:00:00Z", "date": "",
		"rating": "8,5", "displayOnWebsite": "true", "type": "guest-to-host",
		"reviewCategories": [{"category": "value", "rating": null}]
	}`)
	rv, warns, ok := app.ParseRecord(raw)
	if !ok || len(warns) != 0 {
		t.Fatalf("ok=%v warns=%v", ok, warns)
	}
	if rv.ID != "10" || rv.ListingID != "77" || rv.Channel != "airbnb" || *rv.GuestName != "Jo" {
		t.Fatalf("aliases not applied: %+v", rv)
	}
	if *rv.PublicReviewText != "Lovely" {
		t.Fatalf("text = %q", *rv.PublicReviewText)
	}
	if rv.Rating == nil || *rv.Rating != 8.5 {
		t.Fatalf("rating = %v", rv.Rating)
	}
	if rv.Date == nil || rv.Date.Month() != 5 {
		t.Fatalf("created should back an empty date: %v", rv.Date)
	}
	if !rv.DisplayOnWebsite || rv.Type != domain.GuestToHost {
		t.Fatalf("flag/type: %+v", rv)
	}
	if !rv.CategoryScores.Has("value") {
		t.Fatal("category reported without score should still be present")
	}
	if _, ok := rv.CategoryScores.Score("value"); ok {
		t.Fatal("null category score should not be numeric")
	}
}

func TestParseRecord_DegradesBadFields(t *testing.T) {
	raw := json.RawMessage(`{"id":1,"rating":"great","displayOnWebsite":"maybe","type":"owner-note","reviewCategory":"none"}`)
	rv, warns, ok := app.ParseRecord(raw)
	if !ok {
		t.Fatal("bad fields must not drop the record")
	}
	if rv.Rating != nil || rv.DisplayOnWebsite || rv.Type != domain.UnknownType {
		t.Fatalf("unexpected %+v", rv)
	}
	fields := map[string]bool{}
	for _, w := range warns {
		fields[w.Field] = true
	}
	for _, f := range []string{"rating", "displayOnWebsite", "category"} {
		if !fields[f] {
			t.Fatalf("missing %s warning in %v", f, warns)
		}
	}
}

func TestParseRecord_LenientDate(t *testing.T) {
	rv, _, _ := app.ParseRecord(json.RawMessage(`{"id":1,"date":"August 21, 2020"}`))
	if rv.Date == nil || rv.Date.Year() != 2020 || rv.Date.Day() != 21 {
		t.Fatalf("lenient date not parsed: %v", rv.Date)
	}
}
