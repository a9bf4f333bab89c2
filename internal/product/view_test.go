package product

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func named(names ...string) []Product {
	out := make([]Product, len(names))
	for i, n := range names {
		out[i] = Product{ID: fmt.Sprint(i + 1), Name: n}
	}
	return out
}

func TestFilter_RedShirtBlueHat(t *testing.T) {
	snapshot := []Product{{ID: "1", Name: "Red Shirt"}, {ID: "2", Name: "Blue Hat"}}

	got := Filter(snapshot, "red")
	if diff := cmp.Diff([]Product{{ID: "1", Name: "Red Shirt"}}, got); diff != "" {
		t.Fatalf("Filter mismatch (-want +got):\n%s", diff)
	}

	l := NewListing(snapshot, "red", PageIncrement)
	assert.Equal(t, 1, l.Total)
	assert.Equal(t, "1", l.Items[0].ID)
	assert.False(t, l.HasMore)
}

func TestFilter(t *testing.T) {
	snapshot := named("Cat Bed", "dog bowl", "CAT sweater", "Bird cage")

	tests := []struct {
		search string
		want   []string
	}{
		{search: "", want: []string{"Bird cage", "CAT sweater", "dog bowl", "Cat Bed"}},
		{search: "cat", want: []string{"CAT sweater", "Cat Bed"}},
		{search: "BOWL", want: []string{"dog bowl"}},
		{search: "fish", want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			got := []string{}
			for _, p := range Filter(snapshot, tt.search) {
				got = append(got, p.Name)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilter_DoesNotMutateSnapshot(t *testing.T) {
	snapshot := named("a", "b", "c")
	before := append([]Product(nil), snapshot...)

	_ = Filter(snapshot, "")
	_ = NewListing(snapshot, "", 2)

	assert.Equal(t, before, snapshot)
	assert.Equal(t, Filter(snapshot, ""), Filter(snapshot, ""), "derivation is stable across renders")
}

func TestNewListing_Window(t *testing.T) {
	snapshot := named("1", "2", "3", "4", "5", "6", "7", "8")

	l := NewListing(snapshot, "", PageIncrement)
	assert.Len(t, l.Items, 6)
	assert.True(t, l.HasMore)
	assert.Equal(t, "8", l.Items[0].Name)

	l = NewListing(snapshot, "", LoadMore(l.Window))
	assert.Len(t, l.Items, 8)
	assert.Equal(t, 12, l.Window)
	assert.False(t, l.HasMore)

	l = NewListing(snapshot, "", 0)
	assert.Equal(t, PageIncrement, l.Window)
	l = NewListing(snapshot, "", -4)
	assert.Equal(t, PageIncrement, l.Window)
}

func TestNewListing_NilSnapshot(t *testing.T) {
	l := NewListing(nil, "anything", PageIncrement)
	assert.Empty(t, l.Items)
	assert.Zero(t, l.Total)
	assert.False(t, l.HasMore)
}

func TestLoadMore_Count(t *testing.T) {
	for m := 0; m <= 25; m++ {
		snapshot := make([]Product, m)
		for i := range snapshot {
			snapshot[i] = Product{ID: fmt.Sprint(i), Name: "p"}
		}

		window, pages, loads := PageIncrement, 1, 0
		for {
			l := NewListing(snapshot, "", window)
			assert.LessOrEqual(t, len(l.Items), m)
			if !l.HasMore {
				assert.Len(t, l.Items, m)
				break
			}
			window = LoadMore(window)
			pages++
			loads++
		}

		wantPages := (m + PageIncrement - 1) / PageIncrement
		if wantPages == 0 {
			wantPages = 1
		}
		assert.Equal(t, wantPages, pages, "m=%d", m)
		assert.Equal(t, wantPages-1, loads, "m=%d", m)
	}
}

func TestCards(t *testing.T) {
	items := []Product{
		{ID: "1", Name: "A", Images: []string{"/img/a1.png", "/img/a2.png"}},
		{ID: "2", Name: "B"},
	}
	cards := Cards(items, "http://api")

	want := []Card{
		{ID: "1", Name: "A", Slides: []Slide{
			{Index: 0, URL: "http://api/img/a1.png", Active: true},
			{Index: 1, URL: "http://api/img/a2.png"},
		}},
		{ID: "2", Name: "B"},
	}
	if diff := cmp.Diff(want, cards); diff != "" {
		t.Fatalf("Cards mismatch (-want +got):\n%s", diff)
	}
}
