package extract

import (
	"strings"

	"github.com/Harvey-AU/property-crawler/internal/listing"
	"github.com/Harvey-AU/property-crawler/internal/render"
	"github.com/Harvey-AU/property-crawler/internal/site"
)

// firstText returns the trimmed text of the first element matching selector
func firstText(doc *render.Document, selector string) (string, bool) {
	el, ok := doc.Find(render.CSS(selector))
	if !ok {
		return "", false
	}
	text := strings.TrimSpace(el.Text())
	return text, text != ""
}

// photoCount reads the total out of an "N of M" caption
func photoCount(caption string) listing.Count {
	if !listing.HasDigit(caption) {
		return listing.Count{}
	}
	tail, ok := listing.AfterLastOf(caption)
	if !ok {
		return listing.Count{}
	}
	return listing.FirstInt(tail)
}

// structural reads fields from the page's dedicated elements
func structural(doc *render.Document, sel site.DetailSelectors) listing.PropertyRecord {
	rec := listing.New("")

	if text, ok := firstText(doc, sel.Title); ok {
		rec.Title = text
	}
	if text, ok := firstText(doc, sel.Address); ok {
		rec.Address = text
	}

	for _, el := range doc.FindAll(render.CSS(sel.Price)) {
		text := strings.TrimSpace(el.Text())
		if listing.HasDigit(text) {
			rec.Price = listing.NormalisePrice(text)
			break
		}
	}

	// A phone link with nothing left after stripping counts as absent
	phone := ""
	if text, ok := firstText(doc, sel.PhoneLink); ok {
		phone = listing.StripBoilerplate(text, sel.ContactBoilerplate)
	}
	if phone != "" {
		rec.Contact = phone
	} else if text, ok := firstText(doc, sel.MarketedBy); ok {
		rec.Contact = text
	}

	if text, ok := firstText(doc, sel.PhotoCount); ok {
		rec.PhotoCount = photoCount(text)
	}

	for _, row := range doc.FindAll(render.CSS(sel.SpecRows)) {
		cells := row.FindAll(render.CSS("td"))
		if len(cells) < 2 {
			continue
		}
		label := strings.ToLower(strings.TrimSpace(cells[0].Text()))
		value := listing.FirstInt(cells[1].Text())
		if !value.Known {
			continue
		}

		switch {
		case strings.Contains(label, "bedroom"):
			rec.Bedrooms = value
		case strings.Contains(label, "bathroom"):
			rec.Bathrooms = value
		case strings.Contains(label, "toilet"):
			rec.Toilets = value
		case strings.Contains(label, "parking"):
			rec.ParkingSpaces = value
		}
	}

	return rec
}

// description reads the free-text description, falling back to the
// element tagged as the item's description
func description(doc *render.Document, sel site.DetailSelectors) listing.PropertyRecord {
	rec := listing.New("")

	if el, ok := doc.Find(render.XPath(sel.DescriptionPath)); ok {
		if text := strings.TrimSpace(el.Text()); text != "" {
			rec.Description = text
			return rec
		}
	}

	if text, ok := firstText(doc, sel.DescriptionFallback); ok {
		rec.Description = text
	}
	return rec
}

// contentLines scans the broader content block line by line. Title, Address,
// Price, Contact and Photos take the first matching line; the counts take
// the last.
func contentLines(doc *render.Document, sel site.DetailSelectors) listing.PropertyRecord {
	rec := listing.New("")

	el, ok := doc.Find(render.XPath(sel.ContentPath))
	if !ok {
		return rec
	}

	for _, line := range strings.Split(el.Text(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		hasDigit := listing.HasDigit(line)

		if !listing.IsKnown(rec.Title) && strings.Contains(strings.ToLower(line), "bedroom") {
			rec.Title = line
		}
		if !listing.IsKnown(rec.Address) && containsAny(line, sel.Localities) {
			rec.Address = line
		}
		if !listing.IsKnown(rec.Price) && listing.HasCurrencySymbol(line) {
			if price := listing.NormalisePrice(line); price != "" {
				rec.Price = price
			}
		}
		if !listing.IsKnown(rec.Contact) && hasDigit && strings.Contains(line, "Call") {
			if contact := listing.StripBoilerplate(line, sel.ContactBoilerplate); contact != "" {
				rec.Contact = contact
			}
		}
		if !rec.PhotoCount.Known && hasDigit && strings.Contains(line, "of") {
			rec.PhotoCount = photoCount(line)
		}

		if !hasDigit {
			continue
		}
		if strings.Contains(line, "Bedrooms") {
			rec.Bedrooms = listing.FirstInt(line)
		}
		if strings.Contains(line, "Bathrooms") {
			rec.Bathrooms = listing.FirstInt(line)
		}
		if strings.Contains(line, "Toilets") {
			rec.Toilets = listing.FirstInt(line)
		}
		if strings.Contains(line, "Parking Spaces") {
			rec.ParkingSpaces = listing.FirstInt(line)
		}
	}

	return rec
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if n != "" && strings.Contains(s, n) {
			return true
		}
	}
	return false
}
