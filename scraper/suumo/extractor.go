package suumo

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"suumo-analysis/models"
)

// CSS selectors for the SUUMO rental result layout.
const (
	listingSelector  = ".cassetteitem"
	categorySelector = ".ui-pct.ui-pct--util1"
	buildingSelector = ".cassetteitem_content-title"
	addressSelector  = ".cassetteitem_detail-col1"
	accessCol        = ".cassetteitem_detail-col2"
	accessItem       = ".cassetteitem_detail-text"
	ageStoriesCol    = ".cassetteitem_detail-col3"
	roomsSelector    = ".cassetteitem_other"
	roomRowSelector  = ".js-cassette_link"

	rentSelector     = ".cassetteitem_other-emphasis.ui-text--bold"
	adminSelector    = ".cassetteitem_price.cassetteitem_price--administration"
	depositSelector  = ".cassetteitem_price.cassetteitem_price--deposit"
	gratuitySelector = ".cassetteitem_price.cassetteitem_price--gratuity"
	layoutSelector   = ".cassetteitem_madori"
	areaSelector     = ".cassetteitem_menseki"
	linkSelector     = ".js-cassette_link_href.cassetteitem_other-linktext"
)

// Room row cell positions.
const (
	cellFloor   = 2
	cellPrice   = 3
	cellDeposit = 4
	cellLayout  = 5
	cellLink    = 8
)

// ExtractionError reports a field the layout guarantees but the page lacks.
// Room is -1 for listing-level fields.
type ExtractionError struct {
	Listing int
	Room    int
	Field   string
}

func (e *ExtractionError) Error() string {
	if e.Room < 0 {
		return fmt.Sprintf("suumo: listing %d: missing %s", e.Listing, e.Field)
	}
	return fmt.Sprintf("suumo: listing %d room %d: missing %s", e.Listing, e.Room, e.Field)
}

// Extract returns one RawListing per room row on the page. Relative detail
// links are resolved against base. Any missing structural field aborts the
// page with an *ExtractionError.
func Extract(doc *goquery.Document, base *url.URL, acquiredAt time.Time) ([]*models.RawListing, error) {
	items := doc.Find(listingSelector)
	records := make([]*models.RawListing, 0, items.Length())

	for i := range items.Nodes {
		rows, err := extractListing(items.Eq(i), i, base, acquiredAt)
		if err != nil {
			return nil, err
		}
		records = append(records, rows...)
	}
	return records, nil
}

func extractListing(item *goquery.Selection, idx int, base *url.URL, acquiredAt time.Time) ([]*models.RawListing, error) {
	missing := func(field string) error {
		return &ExtractionError{Listing: idx, Room: -1, Field: field}
	}

	category, ok := firstText(item, categorySelector)
	if !ok {
		return nil, missing("category")
	}
	building, ok := firstText(item, buildingSelector)
	if !ok {
		return nil, missing("building name")
	}
	address, ok := firstText(item, addressSelector)
	if !ok {
		return nil, missing("address")
	}

	access := item.Find(accessCol).First()
	if access.Length() == 0 {
		return nil, missing("access column")
	}
	ageStories := item.Find(ageStoriesCol).First()
	if ageStories.Length() == 0 {
		return nil, missing("age/stories column")
	}
	rooms := item.Find(roomsSelector).First()
	if rooms.Length() == 0 {
		return nil, missing("room table")
	}

	accessTexts := fixedTexts(access.Find(accessItem), models.AccessSlots)
	ageTexts := fixedTexts(ageStories.Find("div"), models.AgeStorySlots)

	template := models.RawListing{
		Category:     category,
		BuildingName: building,
		Address:      address,
		AgeRaw:       ageTexts[0],
		StoriesRaw:   ageTexts[1],
		AcquiredAt:   acquiredAt,
	}
	copy(template.Access[:], accessTexts)

	rows := rooms.Find(roomRowSelector)
	out := make([]*models.RawListing, 0, rows.Length())
	for r := range rows.Nodes {
		rec := template
		if err := extractRoom(rows.Eq(r), base, &rec); err != nil {
			if ee, ok := err.(*ExtractionError); ok {
				ee.Listing, ee.Room = idx, r
			}
			return nil, err
		}
		out = append(out, &rec)
	}
	return out, nil
}

func extractRoom(row *goquery.Selection, base *url.URL, rec *models.RawListing) error {
	missing := func(field string) error {
		return &ExtractionError{Field: field}
	}

	cells := row.Find("td")
	if cells.Length() <= cellLink {
		return missing(fmt.Sprintf("room cells (found %d)", cells.Length()))
	}

	rec.FloorRaw = strings.TrimSpace(cells.Eq(cellFloor).Text())

	fields := []struct {
		cell     int
		selector string
		name     string
		dst      *string
	}{
		{cellPrice, rentSelector, "rent", &rec.RentRaw},
		{cellPrice, adminSelector, "admin fee", &rec.AdminFeeRaw},
		{cellDeposit, depositSelector, "deposit", &rec.DepositRaw},
		{cellDeposit, gratuitySelector, "gratuity", &rec.GratuityRaw},
		{cellLayout, layoutSelector, "layout", &rec.LayoutRaw},
		{cellLayout, areaSelector, "area", &rec.AreaRaw},
	}
	for _, f := range fields {
		text, ok := firstText(cells.Eq(f.cell), f.selector)
		if !ok {
			return missing(f.name)
		}
		*f.dst = text
	}

	href, ok := cells.Eq(cellLink).Find(linkSelector).First().Attr("href")
	if !ok {
		return missing("detail link")
	}
	abs, err := resolve(base, href)
	if err != nil {
		return missing(fmt.Sprintf("valid detail link (%v)", err))
	}
	rec.URL = abs
	return nil
}

// firstText returns the trimmed text of the first match and whether it exists.
func firstText(sel *goquery.Selection, selector string) (string, bool) {
	m := sel.Find(selector).First()
	if m.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(m.Text()), true
}

// fixedTexts returns exactly n texts from sel, truncating extras and padding
// with empty strings.
func fixedTexts(sel *goquery.Selection, n int) []string {
	out := make([]string, n)
	sel.EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= n {
			return false
		}
		out[i] = strings.TrimSpace(s.Text())
		return true
	})
	return out
}

func resolve(base *url.URL, href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	if base == nil {
		return ref.String(), nil
	}
	return base.ResolveReference(ref).String(), nil
}
