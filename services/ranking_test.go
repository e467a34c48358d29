package services

import (
	"bytes"
	"math"
	"reflect"
	"strings"
	"testing"

	"suumo-analysis/models"
)

// listingAt builds a listing with the given total rent (as rent) and
// stations in its access slots.
func listingAt(rent float64, stations ...string) *models.Listing {
	l := &models.Listing{Rent: rent}
	for i, s := range stations {
		l.Access[i].Station = s
	}
	return l
}

func TestUniqueStationsRowMajorOrder(t *testing.T) {
	listings := []*models.Listing{
		listingAt(1, "渋谷駅", "", "新宿駅"),
		listingAt(1, "池袋駅", "渋谷駅"),
		listingAt(1),
	}
	got := UniqueStations(listings)
	want := []string{"渋谷駅", "新宿駅", "池袋駅"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("UniqueStations: got %v, want %v", got, want)
	}
}

func TestEnrichLooksUpEverySlot(t *testing.T) {
	store := models.NewStationTimeStore(
		models.StationTime{StationName: "渋谷駅", TimeMin: models.Float(10), TransferCount: models.Float(1)},
		models.StationTime{StationName: "失敗駅"},
	)
	l := listingAt(80000, "渋谷駅", "未知駅", "失敗駅")

	got := Enrich([]*models.Listing{l}, store)
	if len(got) != 1 {
		t.Fatalf("len: %d", len(got))
	}
	e := got[0]
	if !ptrEqual(e.Transit[0].TimeMin, models.Float(10)) || !ptrEqual(e.Transit[0].TransferCount, models.Float(1)) {
		t.Errorf("slot 1: %+v", e.Transit[0])
	}
	if e.Transit[1].TimeMin != nil || e.Transit[2].TimeMin != nil {
		t.Errorf("unknown and failed stations should leave nil times: %+v", e.Transit)
	}
	if e.Rent != 80000 || e.Access[0].Station != "渋谷駅" {
		t.Error("listing fields should be carried over")
	}
}

func TestRankSingleStationDegenerateFit(t *testing.T) {
	store := models.NewStationTimeStore(models.StationTime{
		StationName: "Shibuya", TimeMin: models.Float(10), TransferCount: models.Float(1),
	})
	listings := Enrich([]*models.Listing{
		listingAt(150000, "Shibuya"),
		listingAt(170000, "Shibuya"),
	}, store)

	ranked := Rank(listings, 2)
	if len(ranked) != 1 {
		t.Fatalf("ranked: got %d, want 1", len(ranked))
	}
	r := ranked[0]
	if r.StationName != "Shibuya" || r.MeanRent != 160000 || r.PropertyCount != 2 || r.TimeMin != 10 {
		t.Errorf("summary: %+v", r.StationSummary)
	}
	if r.PredictedRent != r.MeanRent || r.BargainAmount != 0 {
		t.Errorf("degenerate fit: predicted %v bargain %v", r.PredictedRent, r.BargainAmount)
	}
	if r.MeanRentMan != 16 || r.BargainMan != 0 {
		t.Errorf("man-yen columns: %v %v", r.MeanRentMan, r.BargainMan)
	}
}

func TestRankThreshold(t *testing.T) {
	store := models.NewStationTimeStore(
		models.StationTime{StationName: "A", TimeMin: models.Float(10)},
		models.StationTime{StationName: "B", TimeMin: models.Float(20)},
	)
	var listings []*models.Listing
	for i := 0; i < 3; i++ {
		listings = append(listings, listingAt(100000, "A"))
	}
	for i := 0; i < 12; i++ {
		listings = append(listings, listingAt(90000, "B"))
	}

	ranked := Rank(Enrich(listings, store), 10)
	if len(ranked) != 1 || ranked[0].StationName != "B" || ranked[0].PropertyCount != 12 {
		t.Fatalf("expected only B, got %+v", ranked)
	}
}

func TestRankEmptyWhenNothingQualifies(t *testing.T) {
	ranked := Rank(nil, 1)
	if ranked == nil || len(ranked) != 0 {
		t.Errorf("expected empty non-nil ranking, got %#v", ranked)
	}

	store := models.NewStationTimeStore(models.StationTime{StationName: "A", TimeMin: models.Float(1)})
	ranked = Rank(Enrich([]*models.Listing{listingAt(1, "A")}, store), 5)
	if len(ranked) != 0 {
		t.Errorf("below-threshold station ranked: %+v", ranked)
	}
}

func TestSummarizeCountsEverySlotAndAveragesTime(t *testing.T) {
	store := models.NewStationTimeStore(
		models.StationTime{StationName: "A", TimeMin: models.Float(10)},
		models.StationTime{StationName: "B", TimeMin: models.Float(30)},
		models.StationTime{StationName: "C"},
	)
	l1 := listingAt(100000, "A", "B")
	l1.AdminFee = 10000
	l2 := listingAt(200000, "B", "C")

	sums := Summarize(Enrich([]*models.Listing{l1, l2}, store))
	if len(sums) != 2 {
		t.Fatalf("stations without a time are dropped; got %+v", sums)
	}
	if sums[0].StationName != "A" || sums[1].StationName != "B" {
		t.Errorf("order by name: %+v", sums)
	}
	b := sums[1]
	if b.PropertyCount != 2 || b.MeanRent != 155000 || b.TimeMin != 30 {
		t.Errorf("B: %+v", b)
	}
}

func TestRankOrdersByBargain(t *testing.T) {
	// rent falls with travel time; residuals straddle the trend
	summaries := []models.StationSummary{
		{StationName: "A", MeanRent: 130000, PropertyCount: 10, TimeMin: 10},
		{StationName: "B", MeanRent: 100000, PropertyCount: 10, TimeMin: 20},
		{StationName: "C", MeanRent: 90000, PropertyCount: 10, TimeMin: 30},
		{StationName: "D", MeanRent: 60000, PropertyCount: 10, TimeMin: 40},
	}

	ranked, fit := RankSummaries(summaries, 10)
	if len(ranked) != 4 {
		t.Fatalf("ranked: %d", len(ranked))
	}
	var sum float64
	for i := 1; i < len(ranked); i++ {
		if ranked[i-1].BargainAmount < ranked[i].BargainAmount {
			t.Errorf("not sorted descending at %d: %+v", i, ranked)
		}
	}
	for _, r := range ranked {
		sum += r.BargainAmount
		if math.Abs(r.PredictedRent-fit.At(r.TimeMin)) > 1e-6 {
			t.Errorf("%s predicted %v off the fitted line", r.StationName, r.PredictedRent)
		}
	}
	if math.Abs(sum) > 1e-6 {
		t.Errorf("OLS residuals should sum to zero, got %v", sum)
	}
	if fit.Slope >= 0 {
		t.Errorf("slope should be negative, got %v", fit.Slope)
	}
}

func TestFitLine(t *testing.T) {
	fit := FitLine([]float64{0, 1, 2, 3}, []float64{1, 3, 5, 7})
	if math.Abs(fit.Slope-2) > 1e-9 || math.Abs(fit.Intercept-1) > 1e-9 {
		t.Errorf("FitLine: %+v", fit)
	}

	flat := FitLine([]float64{5, 5}, []float64{10, 20})
	if flat.Slope != 0 || flat.Intercept != 15 {
		t.Errorf("no x spread should give a flat line at mean y: %+v", flat)
	}

	if empty := FitLine(nil, nil); empty != (Line{}) {
		t.Errorf("empty fit: %+v", empty)
	}
}

func TestReportPrintsTopStations(t *testing.T) {
	store := models.NewStationTimeStore(
		models.StationTime{StationName: "渋谷駅", TimeMin: models.Float(10)},
		models.StationTime{StationName: "八王子駅", TimeMin: models.Float(60)},
	)
	var listings []*models.Listing
	for i := 0; i < 3; i++ {
		listings = append(listings, listingAt(150000, "渋谷駅"), listingAt(70000, "八王子駅"))
	}

	svc := NewReportService(newTestLogger())
	r := svc.Generate(Enrich(listings, store), "東京", 3, 1)
	if r.StationsRanked != 2 || len(r.Top) != 1 {
		t.Fatalf("ranked %d top %d", r.StationsRanked, len(r.Top))
	}
	if r.CheapestStation == nil || r.CheapestStation.StationName != "八王子駅" {
		t.Errorf("cheapest: %+v", r.CheapestStation)
	}

	var buf bytes.Buffer
	svc.Print(&buf, r)
	out := buf.String()
	for _, want := range []string{"東京", r.Top[0].StationName, "Listings analysed"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestReportEmptyRanking(t *testing.T) {
	svc := NewReportService(newTestLogger())
	r := svc.Generate(nil, "東京", 10, 20)

	var buf bytes.Buffer
	svc.Print(&buf, r)
	if !strings.Contains(buf.String(), "No station has at least 10 listings") {
		t.Errorf("unexpected empty report:\n%s", buf.String())
	}
}
