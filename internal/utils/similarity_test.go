package utils

import "testing"

func TestSimilarityIdentical(t *testing.T) {
	if got := Similarity("jonathan", "jonathan"); got != 1 {
		t.Fatalf("identical strings = %f, want 1", got)
	}
}

func TestSimilarityBothEmpty(t *testing.T) {
	if got := Similarity("", ""); got != 1 {
		t.Fatalf("empty strings = %f, want 1", got)
	}
}

func TestSimilarityOneEmpty(t *testing.T) {
	if got := Similarity("abc", ""); got != 0 {
		t.Fatalf("Similarity(abc, \"\") = %f, want 0", got)
	}
	if got := Similarity("", "abc"); got != 0 {
		t.Fatalf("Similarity(\"\", abc) = %f, want 0", got)
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	pairs := [][2]string{
		{"kitten", "sitting"},
		{"joueur", "joueurs"},
		{"fty", "ftyclub"},
	}
	for _, pair := range pairs {
		ab := Similarity(pair[0], pair[1])
		ba := Similarity(pair[1], pair[0])
		if ab != ba {
			t.Fatalf("Similarity(%q,%q)=%f but reversed=%f", pair[0], pair[1], ab, ba)
		}
	}
}

func TestSimilarityNormalizedByLongerString(t *testing.T) {
	// kitten → sitting: distance 3, longer length 7.
	got := Similarity("kitten", "sitting")
	want := float64(7-3) / 7
	if got != want {
		t.Fatalf("Similarity(kitten, sitting) = %f, want %f", got, want)
	}
}

func TestSimilarityOneCharDifference(t *testing.T) {
	// One substitution over eight runes.
	got := Similarity("jonathan", "jonathon")
	want := float64(8-1) / 8
	if got != want {
		t.Fatalf("got %f, want %f", got, want)
	}
}

func TestSimilarityUnicode(t *testing.T) {
	// Distance counts runes, not bytes.
	got := Similarity("héllo", "hello")
	want := float64(5-1) / 5
	if got != want {
		t.Fatalf("got %f, want %f", got, want)
	}
}
