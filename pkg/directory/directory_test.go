package directory

import (
	"reflect"
	"testing"
)

var fixtureRecords = []Record{
	{ID: "1", Name: "Café Test", Description: "Un café test", Keywords: "café, restaurant, test"},
	{ID: "2", Name: "Garage Atlas", Description: "Réparation auto", Keywords: "voiture, mécanique"},
	{ID: "3", Name: "Pizzeria Roma", Description: "Pizzas au feu de bois", Keywords: "restaurant, pizza"},
}

func TestFilterMatchesNameDescriptionAndKeywords(t *testing.T) {
	tests := []struct {
		keyword string
		wantIDs []string
	}{
		{keyword: "RESTAURANT", wantIDs: []string{"1", "3"}},
		{keyword: "atlas", wantIDs: []string{"2"}},
		{keyword: "feu de bois", wantIDs: []string{"3"}},
		{keyword: "xyz-no-match", wantIDs: []string{}},
		{keyword: "  ", wantIDs: []string{}},
	}

	for _, tt := range tests {
		got := Filter(fixtureRecords, tt.keyword)
		ids := make([]string, 0, len(got))
		for _, record := range got {
			ids = append(ids, record.ID)
		}
		if !reflect.DeepEqual(ids, tt.wantIDs) {
			t.Fatalf("Filter(%q) ids = %v, want %v", tt.keyword, ids, tt.wantIDs)
		}
	}
}

func TestFindMatchesIDOrExactName(t *testing.T) {
	if got := Find(fixtureRecords, "2"); got == nil || got.Name != "Garage Atlas" {
		t.Fatalf("Find by id = %+v", got)
	}
	if got := Find(fixtureRecords, "Café Test"); got == nil || got.ID != "1" {
		t.Fatalf("Find by name = %+v", got)
	}
	if got := Find(fixtureRecords, "café test"); got != nil {
		t.Fatalf("Find should be exact, got %+v", got)
	}
	if got := Find(fixtureRecords, "Café"); got != nil {
		t.Fatalf("Find should not match substrings, got %+v", got)
	}
}

func TestFindReturnsCopy(t *testing.T) {
	got := Find(fixtureRecords, "1")
	got.Name = "changed"
	if fixtureRecords[0].Name != "Café Test" {
		t.Fatal("Find must not alias the source slice")
	}
}

func TestSplitPhotos(t *testing.T) {
	got := SplitPhotos(" https://a/1.jpg, ,https://a/2.jpg ,")
	want := []string{"https://a/1.jpg", "https://a/2.jpg"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SplitPhotos = %v, want %v", got, want)
	}
	if got := SplitPhotos(""); got != nil {
		t.Fatalf("SplitPhotos empty = %v, want nil", got)
	}
}
