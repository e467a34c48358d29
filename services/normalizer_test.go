package services

import (
	"testing"
	"time"

	"suumo-analysis/models"
	"suumo-analysis/utils"
)

func newTestLogger() *utils.Logger { return utils.NewDiscardLogger() }

func ptrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func TestSplitAccess(t *testing.T) {
	tests := []struct {
		raw     string
		line    string
		station string
		walk    *float64
	}{
		{"ＪＲ山手線/渋谷駅 歩5分", "ＪＲ山手線", "渋谷駅", models.Float(5)},
		{"東京メトロ副都心線/新宿三丁目駅 歩12分", "東京メトロ副都心線", "新宿三丁目駅", models.Float(12)},
		{"都営バス 歩3分", "", "都営バス", models.Float(3)},
		{"京王線/府中駅 バス10分 (バス停)府中 歩2分", "京王線", "府中駅", models.Float(2)},
		{"ＪＲ中央線/立川駅 車4.1km", "ＪＲ中央線", "立川駅", nil},
		{"A/B/C 歩1分", "A", "B/C", models.Float(1)},
		{"", "", "", nil},
		{"   ", "", "", nil},
	}

	for _, tt := range tests {
		got := SplitAccess(tt.raw)
		if got.Line != tt.line || got.Station != tt.station || !ptrEqual(got.WalkMin, tt.walk) {
			t.Errorf("SplitAccess(%q) = {%q %q %v}; want {%q %q %v}",
				tt.raw, got.Line, got.Station, got.WalkMin, tt.line, tt.station, tt.walk)
		}
	}
}

func TestSplitAccessDeterministic(t *testing.T) {
	raw := "ＪＲ山手線/渋谷駅 歩5分"
	a, b := SplitAccess(raw), SplitAccess(raw)
	if a.Line != b.Line || a.Station != b.Station || !ptrEqual(a.WalkMin, b.WalkMin) {
		t.Errorf("repeated splits differ: %+v vs %+v", a, b)
	}
}

func TestParseYen(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"12.5万円", 125000},
		{"8.5万円", 85000},
		{"7.3万円", 73000},
		{"10万円", 100000},
		{"5000円", 5000},
		{"1,500円", 1500},
		{"-", 0},
		{"", 0},
		{" ", 0},
		{"nan", 0},
		{"相談", 0},
	}

	for _, tt := range tests {
		got := ParseYen(tt.raw)
		if got != tt.want {
			t.Errorf("ParseYen(%q) = %.4f; want %.4f", tt.raw, got, tt.want)
		}
		if got < 0 {
			t.Errorf("ParseYen(%q) negative: %v", tt.raw, got)
		}
	}
}

func TestParseAge(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"新築", 0},
		{"築12年", 12},
		{"築1年", 1},
		{"", 0},
		{"不明", 0},
	}
	for _, tt := range tests {
		if got := ParseAge(tt.raw); got != tt.want {
			t.Errorf("ParseAge(%q) = %v; want %v", tt.raw, got, tt.want)
		}
	}
}

func TestParseStories(t *testing.T) {
	tests := []struct {
		raw  string
		want *float64
	}{
		{"10階建", models.Float(10)},
		{"地下1地上5階建", models.Float(5)},
		{"平屋", nil},
		{"", nil},
	}
	for _, tt := range tests {
		if got := ParseStories(tt.raw); !ptrEqual(got, tt.want) {
			t.Errorf("ParseStories(%q) = %v; want %v", tt.raw, got, tt.want)
		}
	}
}

func TestParseFloor(t *testing.T) {
	tests := []struct {
		raw  string
		want *float64
	}{
		{"3階", models.Float(3)},
		{"B1階", models.Float(-1)},
		{"地下2階", models.Float(-2)},
		{"-", models.Float(0)},
		{"", models.Float(0)},
		{"1-2階", models.Float(1)},
		{"階", nil},
	}
	for _, tt := range tests {
		if got := ParseFloor(tt.raw); !ptrEqual(got, tt.want) {
			t.Errorf("ParseFloor(%q) = %v; want %v", tt.raw, got, tt.want)
		}
	}
}

func TestParseFloorSign(t *testing.T) {
	for _, raw := range []string{"B1階", "B2階", "地下1階", "地下3階"} {
		if got := ParseFloor(raw); got == nil || *got > 0 {
			t.Errorf("ParseFloor(%q) = %v; want <= 0", raw, got)
		}
	}
	for _, raw := range []string{"1階", "12階", "-", "", "2-3階"} {
		if got := ParseFloor(raw); got != nil && *got < 0 {
			t.Errorf("ParseFloor(%q) = %v; want >= 0", raw, *got)
		}
	}
}

func TestParseArea(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"25.5m2", 25.5},
		{"40m2", 40},
		{"-", 0},
		{"", 0},
		{"広い", 0},
	}
	for _, tt := range tests {
		if got := ParseArea(tt.raw); got != tt.want {
			t.Errorf("ParseArea(%q) = %v; want %v", tt.raw, got, tt.want)
		}
	}
}

func TestNormalizeListing(t *testing.T) {
	at := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
	raw := &models.RawListing{
		Category:     " 賃貸マンション ",
		BuildingName: "パークハイツ  渋谷",
		Address:      "東京都渋谷区",
		Access:       [models.AccessSlots]string{"ＪＲ山手線/渋谷駅 歩5分", "都営バス 歩3分", ""},
		AgeRaw:       "新築",
		StoriesRaw:   "10階建",
		FloorRaw:     "B1階",
		RentRaw:      "8.5万円",
		AdminFeeRaw:  "5000円",
		DepositRaw:   "-",
		GratuityRaw:  "8.5万円",
		LayoutRaw:    "1K",
		AreaRaw:      "25.5m2",
		URL:          " https://suumo.jp/chintai/jnc_1/ ",
		AcquiredAt:   at,
	}

	l := NewNormalizer(newTestLogger()).Normalize([]*models.RawListing{raw})[0]

	if l.Category != "賃貸マンション" || l.BuildingName != "パークハイツ 渋谷" {
		t.Errorf("text fields not normalised: %q %q", l.Category, l.BuildingName)
	}
	if l.Rent != 85000 || l.AdminFee != 5000 || l.Deposit != 0 || l.Gratuity != 85000 {
		t.Errorf("money: %v %v %v %v", l.Rent, l.AdminFee, l.Deposit, l.Gratuity)
	}
	if l.TotalRent() != 90000 {
		t.Errorf("TotalRent: got %v", l.TotalRent())
	}
	if l.Age != 0 || !ptrEqual(l.Stories, models.Float(10)) || !ptrEqual(l.Floor, models.Float(-1)) {
		t.Errorf("building: age %v stories %v floor %v", l.Age, l.Stories, l.Floor)
	}
	if l.Area != 25.5 || l.Layout != "1K" {
		t.Errorf("room: area %v layout %q", l.Area, l.Layout)
	}
	if l.Access[0].Station != "渋谷駅" || l.Access[1].Station != "都営バス" || l.Access[1].Line != "" {
		t.Errorf("access: %+v", l.Access)
	}
	if l.Access[2].Station != "" || l.Access[2].WalkMin != nil {
		t.Errorf("empty slot should stay empty: %+v", l.Access[2])
	}
	if l.URL != "https://suumo.jp/chintai/jnc_1/" || !l.AcquiredAt.Equal(at) {
		t.Errorf("url %q acquired %v", l.URL, l.AcquiredAt)
	}
}
