package listing

import (
	"strconv"
	"strings"
)

// Unknown is the sentinel written for any field extraction could not resolve
const Unknown = "N/A"

// Columns is the dataset header. Order is fixed across runs.
var Columns = []string{
	"Title",
	"Address",
	"Price",
	"Description",
	"Contact",
	"Photos",
	"Link",
	"Bedrooms",
	"Bathrooms",
	"Toilets",
	"Parking Spaces",
}

// Count is an optional non-negative integer field
type Count struct {
	Value int
	Known bool
}

// CountOf returns a resolved Count
func CountOf(n int) Count {
	return Count{Value: n, Known: true}
}

// String renders the count, or Unknown when unresolved
func (c Count) String() string {
	if !c.Known {
		return Unknown
	}
	return strconv.Itoa(c.Value)
}

// ParseCount reads a rendered count back. Anything that is not a
// non-negative integer is unknown.
func ParseCount(s string) Count {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return Count{}
	}
	return CountOf(n)
}

// PropertyRecord is one scraped listing
type PropertyRecord struct {
	Title         string `json:"title"`
	Address       string `json:"address"`
	Price         string `json:"price"`
	Description   string `json:"description"`
	Contact       string `json:"contact"`
	PhotoCount    Count  `json:"-"`
	SourceLink    string `json:"link"`
	Bedrooms      Count  `json:"-"`
	Bathrooms     Count  `json:"-"`
	Toilets       Count  `json:"-"`
	ParkingSpaces Count  `json:"-"`
}

// New returns a record for link with every other field unknown
func New(link string) PropertyRecord {
	return PropertyRecord{
		Title:       Unknown,
		Address:     Unknown,
		Price:       Unknown,
		Description: Unknown,
		Contact:     Unknown,
		SourceLink:  link,
	}
}

// IsKnown reports whether a text field holds a resolved value
func IsKnown(s string) bool {
	return s != "" && s != Unknown
}

// Fill copies every resolved field of other into fields of r that are
// still unknown. Resolved fields of r are never overwritten.
func (r *PropertyRecord) Fill(other PropertyRecord) {
	fillText(&r.Title, other.Title)
	fillText(&r.Address, other.Address)
	fillText(&r.Price, other.Price)
	fillText(&r.Description, other.Description)
	fillText(&r.Contact, other.Contact)
	fillCount(&r.PhotoCount, other.PhotoCount)
	fillText(&r.SourceLink, other.SourceLink)
	fillCount(&r.Bedrooms, other.Bedrooms)
	fillCount(&r.Bathrooms, other.Bathrooms)
	fillCount(&r.Toilets, other.Toilets)
	fillCount(&r.ParkingSpaces, other.ParkingSpaces)
}

func fillText(dst *string, src string) {
	if !IsKnown(*dst) && IsKnown(src) {
		*dst = src
	}
}

func fillCount(dst *Count, src Count) {
	if !dst.Known && src.Known {
		*dst = src
	}
}

// Resolved returns the number of fields (excluding the link) that hold a value
func (r PropertyRecord) Resolved() int {
	n := 0
	for _, s := range []string{r.Title, r.Address, r.Price, r.Description, r.Contact} {
		if IsKnown(s) {
			n++
		}
	}
	for _, c := range []Count{r.PhotoCount, r.Bedrooms, r.Bathrooms, r.Toilets, r.ParkingSpaces} {
		if c.Known {
			n++
		}
	}
	return n
}

// Row renders the record in Columns order
func (r PropertyRecord) Row() []string {
	return []string{
		text(r.Title),
		text(r.Address),
		text(r.Price),
		text(r.Description),
		text(r.Contact),
		r.PhotoCount.String(),
		r.SourceLink,
		r.Bedrooms.String(),
		r.Bathrooms.String(),
		r.Toilets.String(),
		r.ParkingSpaces.String(),
	}
}

func text(s string) string {
	if !IsKnown(s) {
		return Unknown
	}
	return s
}

// FromRow builds a record from a row read under header. Columns are matched
// by name so files written with a different column order still load.
// Missing columns stay unknown.
func FromRow(header, row []string) PropertyRecord {
	rec := New("")
	for i, name := range header {
		if i >= len(row) {
			break
		}
		v := strings.TrimSpace(row[i])
		switch strings.TrimSpace(name) {
		case "Title":
			rec.Title = orUnknown(v)
		case "Address":
			rec.Address = orUnknown(v)
		case "Price":
			rec.Price = orUnknown(v)
		case "Description":
			rec.Description = orUnknown(v)
		case "Contact":
			rec.Contact = orUnknown(v)
		case "Photos":
			rec.PhotoCount = ParseCount(v)
		case "Link":
			rec.SourceLink = v
		case "Bedrooms":
			rec.Bedrooms = ParseCount(v)
		case "Bathrooms":
			rec.Bathrooms = ParseCount(v)
		case "Toilets":
			rec.Toilets = ParseCount(v)
		case "Parking Spaces":
			rec.ParkingSpaces = ParseCount(v)
		}
	}
	return rec
}

func orUnknown(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}
