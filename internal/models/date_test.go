package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2015-11-02")
	if err != nil {
		t.Fatal(err)
	}
	if d.String() != "2015-11-02" {
		t.Fatalf("String()=%q want=2015-11-02", d.String())
	}
	if _, err := ParseDate("02/11/2015"); err == nil {
		t.Fatal("non-ISO date should be rejected")
	}
}

func TestDateJSON(t *testing.T) {
	type wrapper struct {
		Date Date `json:"date"`
	}
	out, err := json.Marshal(wrapper{Date: NewDate(2016, time.February, 29)})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"date":"2016-02-29"}` {
		t.Fatalf("marshal=%s", out)
	}

	var in wrapper
	if err := json.Unmarshal([]byte(`{"date":"2016-02-29"}`), &in); err != nil {
		t.Fatal(err)
	}
	if !in.Date.Equal(NewDate(2016, time.February, 29)) {
		t.Fatalf("unmarshal=%s", in.Date)
	}
	if err := json.Unmarshal([]byte(`{"date":"not-a-date"}`), &in); err == nil {
		t.Fatal("invalid date should fail to unmarshal")
	}
}

func TestDateOfTruncates(t *testing.T) {
	ts := time.Date(2016, time.July, 14, 23, 59, 1, 0, time.FixedZone("X", 3600))
	if got := DateOf(ts); got.String() != "2016-07-14" {
		t.Fatalf("DateOf=%s want=2016-07-14", got)
	}
	if !DateOf(time.Time{}).IsZero() {
		t.Fatal("zero time should map to zero date")
	}
}
