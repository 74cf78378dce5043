package handlers

import "testing"

func TestParsePaginationParamsDefaults(t *testing.T) {
	page, limit, err := parsePaginationParams("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page != 1 || limit != defaultPageLimit {
		t.Fatalf("expected 1/%d, got %d/%d", defaultPageLimit, page, limit)
	}
}

func TestParsePaginationParamsRejectsInvalid(t *testing.T) {
	for _, tc := range [][2]string{{"0", "10"}, {"abc", "10"}, {"1", "-5"}} {
		if _, _, err := parsePaginationParams(tc[0], tc[1]); err == nil {
			t.Fatalf("expected error for page=%s limit=%s", tc[0], tc[1])
		}
	}
}

func TestParsePaginationParamsCapsLimit(t *testing.T) {
	_, limit, err := parsePaginationParams("2", "5000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if limit != maxPageLimit {
		t.Fatalf("expected limit capped at %d, got %d", maxPageLimit, limit)
	}
}
