package yahoo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"suumo-analysis/scraper"
)

const routePage = `<html><body>
<div id="route01"><ul class="summary">
<li class="time"><span class="small">発着</span> 1時間5分</li>
<li class="transfer">乗換：<span class="mark">1回</span></li>
</ul></div>
<div id="route02"><ul><li class="time">50分</li><li class="transfer">乗換：なし</li></ul></div>
</body></html>`

func TestRouteReadsFirstRoute(t *testing.T) {
	var gotFrom, gotTo, gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotFrom = r.URL.Query().Get("from")
		gotTo = r.URL.Query().Get("to")
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(routePage))
	}))
	defer srv.Close()

	p := New(scraper.NewHTTPFetcher(5*time.Second), srv.URL+"/search/result")
	route, err := p.Route(context.Background(), "八王子", "東京")
	if err != nil {
		t.Fatalf("Route: %v", err)
	}

	if gotFrom != "八王子" || gotTo != "東京" {
		t.Errorf("query: from=%q to=%q", gotFrom, gotTo)
	}
	if gotUA != scraper.UserAgent {
		t.Errorf("User-Agent: got %q", gotUA)
	}
	if !strings.HasSuffix(route.Duration, "1時間5分") {
		t.Errorf("Duration: got %q", route.Duration)
	}
	if !strings.Contains(route.Transfers, "1回") {
		t.Errorf("Transfers: got %q", route.Transfers)
	}
}

func TestRouteMissingIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>該当する経路がありません</body></html>"))
	}))
	defer srv.Close()

	p := New(scraper.NewHTTPFetcher(5*time.Second), srv.URL)
	if _, err := p.Route(context.Background(), "x", "y"); err == nil {
		t.Fatal("expected error when no route is listed")
	}
}

func TestRouteHTTPErrorPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := New(scraper.NewHTTPFetcher(5*time.Second), srv.URL)
	if _, err := p.Route(context.Background(), "x", "y"); err == nil {
		t.Fatal("expected error on 503")
	}
}

func TestSearchURLDefault(t *testing.T) {
	got := New(nil, "").SearchURL("渋谷", "東京")
	if !strings.HasPrefix(got, DefaultBaseURL+"?") || !strings.Contains(got, "from=%E6%B8%8B%E8%B0%B7") {
		t.Errorf("SearchURL: got %q", got)
	}
}
