package product

import "strings"

// PageIncrement is both the initial visible window and the amount one
// "load more" adds.
const PageIncrement = 6

// Filter returns the products whose name contains search, ignoring case,
// most recently returned first. snapshot is not modified.
func Filter(snapshot []Product, search string) []Product {
	needle := strings.ToLower(search)
	out := make([]Product, 0, len(snapshot))
	for i := len(snapshot) - 1; i >= 0; i-- {
		if strings.Contains(strings.ToLower(snapshot[i].Name), needle) {
			out = append(out, snapshot[i])
		}
	}
	return out
}

// Listing is the windowed view of a filtered snapshot.
type Listing struct {
	Search  string
	Window  int
	Total   int
	Items   []Product
	HasMore bool
}

// NewListing filters snapshot by search and keeps the first window items. A
// window below 1 falls back to PageIncrement. A nil snapshot yields an empty
// listing.
func NewListing(snapshot []Product, search string, window int) Listing {
	if window < 1 {
		window = PageIncrement
	}
	filtered := Filter(snapshot, search)
	n := min(window, len(filtered))
	return Listing{
		Search:  search,
		Window:  window,
		Total:   len(filtered),
		Items:   filtered[:n],
		HasMore: window < len(filtered),
	}
}

// LoadMore returns the window after one "load more".
func LoadMore(window int) int {
	if window < 1 {
		window = PageIncrement
	}
	return window + PageIncrement
}

// Slide is one image of a product card's carousel.
type Slide struct {
	Index  int
	URL    string
	Active bool
}

// Card is a product prepared for rendering.
type Card struct {
	ID          string
	Name        string
	Description string
	Slides      []Slide
}

// Cards resolves image paths against imageBase. The first image of each
// product is the active slide.
func Cards(items []Product, imageBase string) []Card {
	cards := make([]Card, 0, len(items))
	for _, p := range items {
		c := Card{ID: p.ID, Name: p.Name, Description: p.Description}
		for i, img := range p.Images {
			c.Slides = append(c.Slides, Slide{Index: i, URL: imageBase + img, Active: i == 0})
		}
		cards = append(cards, c)
	}
	return cards
}
