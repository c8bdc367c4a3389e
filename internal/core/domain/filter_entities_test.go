package domain

import "testing"

func ip(v int) *int { return &v }

func fp(v float64) *float64 { return &v }

func sampleRecord() ListingRecord {
	return ListingRecord{
		ID:      "yad2-1",
		Title:   "3 rooms in city center",
		Price:   4500,
		Rooms:   3,
		AreaSqm: 75,
		Region:  "Центр",
		City:    "Тель-Авив",
		SubArea: "Флорентин",
	}
}

func TestFilterMatchesRanges(t *testing.T) {
	cases := []struct {
		name   string
		filter RecipientFilter
		want   bool
	}{
		{"empty filter matches everything", RecipientFilter{}, true},
		{"price within range", RecipientFilter{MinPrice: ip(4000), MaxPrice: ip(5000)}, true},
		{"price above max", RecipientFilter{MaxPrice: ip(4000)}, false},
		{"price below min", RecipientFilter{MinPrice: ip(5000)}, false},
		{"rooms boundary inclusive", RecipientFilter{MinRooms: fp(3), MaxRooms: fp(3)}, true},
		{"too few rooms", RecipientFilter{MinRooms: fp(3.5)}, false},
		{"area within range", RecipientFilter{MinAreaSqm: ip(60), MaxAreaSqm: ip(90)}, true},
		{"area too small", RecipientFilter{MinAreaSqm: ip(80)}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.filter.Matches(sampleRecord()); got != tc.want {
				t.Errorf("Matches() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFilterLocationMatchIsCaseFolded(t *testing.T) {
	cases := []struct {
		name     string
		location string
		want     bool
	}{
		{"city exact", "Тель-Авив", true},
		{"city lowercased", "тель-авив", true},
		{"subarea uppercased", "ФЛОРЕНТИН", true},
		{"substring of title", "CITY CENTER", true},
		{"leading whitespace trimmed", "  флорентин", true},
		{"unknown place", "Хайфа", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := RecipientFilter{Location: tc.location}
			if got := f.Matches(sampleRecord()); got != tc.want {
				t.Errorf("Matches(location=%q) = %v, want %v", tc.location, got, tc.want)
			}
		})
	}
}
