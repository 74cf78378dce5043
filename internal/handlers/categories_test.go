package handlers

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCategoryNamesSkipsNonStrings(t *testing.T) {
	got := categoryNames([]interface{}{"vegetables", nil, "", 42, "dairy"})

	if len(got) != 2 || got[0] != "dairy" || got[1] != "vegetables" {
		t.Fatalf("unexpected categories: %v", got)
	}
}

func TestVisibleProductFilterExcludesInactiveAndDeleted(t *testing.T) {
	id := primitive.NewObjectID()
	filter := visibleProductFilter(bson.M{"_id": id})

	if filter["_id"] != id {
		t.Fatalf("expected extra condition kept, got %v", filter)
	}
	active, ok := filter["isActive"].(bson.M)
	if !ok || active["$ne"] != false {
		t.Fatalf("expected inactive products excluded, got %v", filter["isActive"])
	}
	deleted, ok := filter["isDeleted"].(bson.M)
	if !ok || deleted["$ne"] != true {
		t.Fatalf("expected deleted products excluded, got %v", filter["isDeleted"])
	}

	if base := visibleProductFilter(nil); len(base) != 2 {
		t.Fatalf("expected only visibility conditions, got %v", base)
	}
}
