package httpserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"hostaway_reviews/internal/adapters/hostaway"
	server "hostaway_reviews/internal/adapters/http_server"
	"hostaway_reviews/internal/app"
	"hostaway_reviews/internal/domain"
	"hostaway_reviews/internal/idgen"
	"hostaway_reviews/internal/storage/collection"
	"hostaway_reviews/internal/storage/file"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	coll := collection.New(file.New(filepath.Join(t.TempDir(), "db.json")), idgen.Sequence("v"))
	if err := coll.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	clock := func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	canon := app.NewCanonicalizer(idgen.Sequence("r"), clock)

	// no live source: ingestion always resolves to the bundled dataset
	ing := app.NewIngestionService(nil, hostaway.FallbackReviews, coll, canon, time.Second)

	srv := server.New("*")
	srv.MountHandlers(&server.Handlers{
		Q:      app.NewQueryService(coll, nil, 0),
		Ingest: ing,
		Mod:    app.NewModerationService(coll),
	})
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, method, url, body string, hdr map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { res.Body.Close() })
	return res
}

func decode[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(res.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

type listResp struct {
	Status string `json:"status"`
	domain.ReviewsPage
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	for _, p := range []string{"/healthz", "/health"} {
		if res := do(t, http.MethodGet, ts.URL+p, "", nil); res.StatusCode != http.StatusOK {
			t.Fatalf("%s status %d", p, res.StatusCode)
		}
	}
}

func TestListReviews_AutoSeed(t *testing.T) {
	ts := newTestServer(t)

	res := do(t, http.MethodGet, ts.URL+"/api/reviews?autoseed=false", "", nil)
	if got := decode[listResp](t, res); got.Total != 0 || got.Items == nil {
		t.Fatalf("autoseed=false must leave the collection empty: %+v", got)
	}

	res = do(t, http.MethodGet, ts.URL+"/api/reviews", "", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
	got := decode[listResp](t, res)
	if got.Status != "ok" || got.Total != 8 || got.Page != 1 || got.PageSize != 50 {
		t.Fatalf("unexpected page: %+v", got)
	}
	if len(got.Aggregations) != 4 {
		t.Fatalf("expected 4 listing aggregates, got %+v", got.Aggregations)
	}
}

func TestListReviews_FilterAndSort(t *testing.T) {
	ts := newTestServer(t)
	do(t, http.MethodGet, ts.URL+"/api/reviews/live-sync", "", nil)

	res := do(t, http.MethodGet, ts.URL+"/api/reviews?listing=shoreditch&sort=rating_desc", "", nil)
	got := decode[listResp](t, res)
	if got.Total != 3 {
		t.Fatalf("total = %d", got.Total)
	}
	var ratings []float64
	for _, it := range got.Items {
		ratings = append(ratings, it.RatingOr(-1))
	}
	if ratings[0] != 10 || ratings[1] != 9 || ratings[2] != 4 {
		t.Fatalf("ratings = %v", ratings)
	}
	if len(got.Aggregations) != 1 || got.Aggregations[0].Count != 3 {
		t.Fatalf("aggregations = %+v", got.Aggregations)
	}

	res = do(t, http.MethodGet, ts.URL+"/api/reviews?channel=HOSTAWAY", "", nil)
	if got := decode[listResp](t, res); got.Total != 1 || got.Items[0].SourceID != 7457 {
		t.Fatalf("default channel filter: %+v", got)
	}

	res = do(t, http.MethodGet, ts.URL+"/api/reviews?pageSize=3&page=3", "", nil)
	if got := decode[listResp](t, res); len(got.Items) != 2 || got.Total != 8 {
		t.Fatalf("last page: %+v", got)
	}
}

func TestListReviews_BadParams(t *testing.T) {
	ts := newTestServer(t)
	for _, q := range []string{"ratingMin=abc", "ratingMin=NaN", "ratingMin=Inf", "ratingMin=-infinity", "from=yesterday", "approved=maybe"} {
		res := do(t, http.MethodGet, ts.URL+"/api/reviews?"+q, "", nil)
		if res.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: status %d", q, res.StatusCode)
		}
		if ct := res.Header.Get("Content-Type"); ct != "application/problem+json" {
			t.Fatalf("%s: content type %q", q, ct)
		}
	}
}

func TestListReviews_ZonedDateRange(t *testing.T) {
	ts := newTestServer(t)
	do(t, http.MethodGet, ts.URL+"/api/reviews/live-sync", "", nil)

	// 7454 was submitted 2021-03-02 10:12:40 UTC
	res := do(t, http.MethodGet, ts.URL+"/api/reviews?from=2021-03-02%2011:00:00%2B02:00&to=2021-03-02%2010:30:00Z", "", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
	if got := decode[listResp](t, res); got.Total != 1 || got.Items[0].SourceID != 7454 {
		t.Fatalf("zoned range: %+v", got)
	}
}

func TestLiveSync_Idempotent(t *testing.T) {
	ts := newTestServer(t)
	type syncResp struct {
		Status     string          `json:"status"`
		Normalized bool            `json:"normalized"`
		Source     string          `json:"source"`
		Added      int             `json:"added"`
		Total      int             `json:"total"`
		Items      []domain.Review `json:"items"`
	}

	first := decode[syncResp](t, do(t, http.MethodGet, ts.URL+"/api/reviews/live-sync", "", nil))
	if first.Source != domain.SourceFallback || first.Added != 8 || first.Total != 8 || !first.Normalized {
		t.Fatalf("first sync: %+v", first)
	}
	second := decode[syncResp](t, do(t, http.MethodGet, ts.URL+"/api/reviews/hostaway", "", nil))
	if second.Added != 0 || second.Total != 8 {
		t.Fatalf("second sync: %+v", second)
	}
}

func TestApproveAndPublic(t *testing.T) {
	ts := newTestServer(t)
	do(t, http.MethodGet, ts.URL+"/api/reviews/live-sync", "", nil)

	type publicResp struct {
		Status string `json:"status"`
		domain.PublicPage
	}
	if got := decode[publicResp](t, do(t, http.MethodGet, ts.URL+"/api/reviews/public", "", nil)); got.Total != 0 {
		t.Fatalf("nothing approved yet: %+v", got)
	}

	res := do(t, http.MethodPatch, ts.URL+"/api/reviews/7454/approve", `{"approved":true}`, map[string]string{"Content-Type": "application/json"})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("approve status %d", res.StatusCode)
	}
	approved := decode[struct {
		Status string        `json:"status"`
		Item   domain.Review `json:"item"`
	}](t, res)
	if !approved.Item.Approved || approved.Item.SourceID != 7454 {
		t.Fatalf("approve body: %+v", approved)
	}

	// the internal id works too
	res = do(t, http.MethodPatch, ts.URL+"/api/reviews/"+approved.Item.ID+"/approve", `{"approved":true}`, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("approve by id status %d", res.StatusCode)
	}

	got := decode[publicResp](t, do(t, http.MethodGet, ts.URL+"/api/reviews/public?listing=SHOREDITCH", "", nil))
	if got.Total != 1 || got.Items[0].ID != approved.Item.ID {
		t.Fatalf("public page: %+v", got)
	}

	res = do(t, http.MethodGet, ts.URL+"/api/reviews?approved=true", "", nil)
	if l := decode[listResp](t, res); l.Total != 1 {
		t.Fatalf("approved filter: %+v", l)
	}
}

func TestApprove_Errors(t *testing.T) {
	ts := newTestServer(t)
	do(t, http.MethodGet, ts.URL+"/api/reviews/live-sync", "", nil)

	cases := []struct {
		key, body string
		want      int
	}{
		{"7454", "", http.StatusBadRequest},
		{"7454", `{}`, http.StatusBadRequest},
		{"7454", `{"approved":"yes"}`, http.StatusBadRequest},
		{"999999", `{"approved":true}`, http.StatusNotFound},
	}
	for _, c := range cases {
		res := do(t, http.MethodPatch, ts.URL+"/api/reviews/"+c.key+"/approve", c.body, nil)
		if res.StatusCode != c.want {
			t.Fatalf("%s %q: status %d, want %d", c.key, c.body, res.StatusCode, c.want)
		}
	}
}

func TestCategoriesIssuesFacets(t *testing.T) {
	ts := newTestServer(t)
	do(t, http.MethodGet, ts.URL+"/api/reviews/live-sync", "", nil)
	do(t, http.MethodPatch, ts.URL+"/api/reviews/7455/approve", `{"approved":true}`, nil)

	cats := decode[struct {
		Status        string                     `json:"status"`
		TotalListings int                        `json:"totalListings"`
		Items         []domain.ListingCategories `json:"items"`
	}](t, do(t, http.MethodGet, ts.URL+"/api/reviews/categories-aggregate", "", nil))
	if cats.TotalListings != 4 || cats.Items[0].Listing != "2B N1 A - 29 Shoreditch Heights" {
		t.Fatalf("categories: %+v", cats)
	}
	clean := cats.Items[0].Categories[0]
	if clean.Category != "cleanliness" || clean.Count != 3 || clean.AvgRating != 8 {
		t.Fatalf("shoreditch cleanliness: %+v", clean)
	}

	issues := decode[struct {
		Status string                `json:"status"`
		Total  int                   `json:"total"`
		Items  []domain.KeywordCount `json:"items"`
	}](t, do(t, http.MethodGet, ts.URL+"/api/reviews/issues", "", nil))
	if issues.Total == 0 {
		t.Fatalf("expected keywords from the approved review")
	}
	found := false
	for _, it := range issues.Items {
		if it.Word == "heating" {
			found = true
		}
	}
	if !found {
		t.Fatalf("heating missing from %+v", issues.Items)
	}

	facets := decode[struct {
		Status string `json:"status"`
		domain.Facets
	}](t, do(t, http.MethodGet, ts.URL+"/api/reviews/facets", "", nil))
	if len(facets.Listings) != 3 || len(facets.Channels) != 5 {
		t.Fatalf("facets: %+v", facets)
	}
}

func TestETagNotModified(t *testing.T) {
	ts := newTestServer(t)
	res := do(t, http.MethodGet, ts.URL+"/api/reviews/facets", "", nil)
	etag := res.Header.Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}
	res = do(t, http.MethodGet, ts.URL+"/api/reviews/facets", "", map[string]string{"If-None-Match": etag})
	if res.StatusCode != http.StatusNotModified {
		t.Fatalf("status %d, want 304", res.StatusCode)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t)
	res := do(t, http.MethodOptions, ts.URL+"/api/reviews/7454/approve", "", map[string]string{
		"Origin":                        "http://localhost:5173",
		"Access-Control-Request-Method": "PATCH",
	})
	if res.StatusCode < 200 || res.StatusCode > 299 {
		t.Fatalf("preflight status %d", res.StatusCode)
	}
	if res.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing allow-origin header")
	}
	if !strings.Contains(res.Header.Get("Access-Control-Allow-Methods"), "PATCH") {
		t.Fatalf("PATCH not allowed: %q", res.Header.Get("Access-Control-Allow-Methods"))
	}
}

func TestCORS_RestrictedOrigin(t *testing.T) {
	srv := server.New("https://dashboard.example")
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)

	preflight := func(origin string) *http.Response {
		return do(t, http.MethodOptions, ts.URL+"/api/reviews", "", map[string]string{
			"Origin":                        origin,
			"Access-Control-Request-Method": "GET",
		})
	}
	if got := preflight("https://dashboard.example").Header.Get("Access-Control-Allow-Origin"); got != "https://dashboard.example" {
		t.Fatalf("configured origin rejected: %q", got)
	}
	if got := preflight("https://evil.example").Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("foreign origin allowed: %q", got)
	}
}
