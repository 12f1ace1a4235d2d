package model

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	ratingPattern = regexp.MustCompile(`rating:\s+(\d+)`)

	// the dataset spells the customer key "cutomer"
	reviewPattern = regexp.MustCompile(
		`^\s*(\S+)\s+cu(?:s)?tomer:\s+(\S+)\s+rating:\s+(\d+)\s+votes:\s+(\d+)\s+helpful:\s+(\d+)\s*$`)
)

// Review is the structured form of one review line
type Review struct {
	Date     string `json:"date"`
	Customer string `json:"customer"`
	Rating   int    `json:"rating"`
	Votes    int    `json:"votes"`
	Helpful  int    `json:"helpful"`
}

// ReviewRating extracts the rating digit from a raw review line
func ReviewRating(line string) (int, bool) {
	m := ratingPattern.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	rating, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return rating, true
}

// ParseReview parses a raw review line such as
// "2000-7-28  cutomer: A2JW67OY8U6HHK  rating: 5  votes:  10  helpful:   9"
func ParseReview(line string) (Review, bool) {
	m := reviewPattern.FindStringSubmatch(strings.TrimRight(line, "\r"))
	if m == nil {
		return Review{}, false
	}

	var r Review
	r.Date = m[1]
	r.Customer = m[2]
	// the pattern only admits digits, Atoi cannot fail short of overflow
	r.Rating, _ = strconv.Atoi(m[3])
	r.Votes, _ = strconv.Atoi(m[4])
	r.Helpful, _ = strconv.Atoi(m[5])
	return r, true
}
