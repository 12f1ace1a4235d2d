package model

import (
	"testing"
)

func TestReviewRating(t *testing.T) {
	tests := []struct {
		line   string
		want   int
		wantOK bool
	}{
		{"2000-7-28  cutomer: A2JW67OY8U6HHK  rating: 5  votes:  10  helpful:   9", 5, true},
		{"2003-12-14  cutomer: A2VE83MZF98ITY  rating: 1  votes:   2  helpful:   2", 1, true},
		{"rating:3", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		got, ok := ReviewRating(tt.line)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ReviewRating(%q) = %d, %v; want %d, %v", tt.line, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseReview(t *testing.T) {
	r, ok := ParseReview("    2000-7-28  cutomer: A2JW67OY8U6HHK  rating: 5  votes:  10  helpful:   9\r")
	if !ok {
		t.Fatal("Expected review line to parse")
	}

	want := Review{Date: "2000-7-28", Customer: "A2JW67OY8U6HHK", Rating: 5, Votes: 10, Helpful: 9}
	if r != want {
		t.Errorf("ParseReview() = %+v, want %+v", r, want)
	}

	if _, ok := ParseReview("2000-7-28 customer: X rating: 5"); ok {
		t.Error("Expected incomplete review line to be rejected")
	}

	r, ok = ParseReview("2001-1-2 customer: ABC rating: 2 votes: 0 helpful: 0")
	if !ok || r.Customer != "ABC" || r.Rating != 2 {
		t.Errorf("Expected correctly spelled key to parse, got %+v %v", r, ok)
	}
}
