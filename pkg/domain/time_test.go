package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{in: "00:00", want: 0},
		{in: "09:30", want: 9*60 + 30},
		{in: "23:59", want: 23*60 + 59},
		{in: "24:00", wantErr: true},
		{in: "9:30", wantErr: true},
		{in: "nope", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseTimeOfDay(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseTimeOfDay(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTimeOfDay(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseTimeOfDay(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestTimeOfDayString(t *testing.T) {
	if got := TimeOfDay(9*60 + 5).String(); got != "09:05" {
		t.Errorf("String() = %q, want 09:05", got)
	}
}

func TestTimeOfDayJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(TimeOfDay(14 * 60))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"14:00"` {
		t.Fatalf("marshal = %s", data)
	}
	var back TimeOfDay
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back != TimeOfDay(14*60) {
		t.Fatalf("round trip = %d", back)
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-09-14")
	if err != nil {
		t.Fatal(err)
	}
	if d.Year != 2026 || d.Month != time.September || d.Day != 14 {
		t.Fatalf("ParseDate = %+v", d)
	}
	if _, err := ParseDate("14.09.2026"); err == nil {
		t.Error("expected error for non-ISO date")
	}
	if _, err := ParseDate("2026-02-30"); err == nil {
		t.Error("expected error for impossible date")
	}
}

func TestDateAt(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatal(err)
	}
	d := Date{Year: 2026, Month: time.September, Day: 14}
	got := d.At(TimeOfDay(9*60+30), berlin)
	want := time.Date(2026, time.September, 14, 9, 30, 0, 0, berlin)
	if !got.Equal(want) {
		t.Fatalf("At = %v, want %v", got, want)
	}
}

func TestDateBefore(t *testing.T) {
	a := Date{Year: 2026, Month: time.September, Day: 14}
	b := Date{Year: 2026, Month: time.September, Day: 15}
	c := Date{Year: 2026, Month: time.October, Day: 1}
	if !a.Before(b) || !b.Before(c) || b.Before(a) {
		t.Error("Before ordering broken")
	}
	if a.Before(a) {
		t.Error("date must not be before itself")
	}
}

func TestDateIsZero(t *testing.T) {
	if !(Date{}).IsZero() {
		t.Error("zero value should be zero")
	}
	if (Date{Year: 2026, Month: time.January, Day: 1}).IsZero() {
		t.Error("set date should not be zero")
	}
}
