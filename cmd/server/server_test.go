package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/studypets/economy/internal/catalog"
	"github.com/studypets/economy/internal/evolution"
	"github.com/studypets/economy/internal/exchange"
	"github.com/studypets/economy/internal/fusion"
	"github.com/studypets/economy/internal/gacha"
	"github.com/studypets/economy/internal/ledger"
	"github.com/studypets/economy/internal/random"
	"github.com/studypets/economy/internal/rules"
)

// script replays a fixed sequence of values, repeating the last one.
type script struct {
	vals []float64
	i    int
}

func (s *script) Float64() float64 {
	if s.i >= len(s.vals) {
		return s.vals[len(s.vals)-1]
	}
	v := s.vals[s.i]
	s.i++
	return v
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]catalog.Template{
		{ID: "fox", Name: "Fox", Rarity: catalog.RarityCommon, DrawWeight: 60, Artwork: [3]string{"fox_t1", "fox_t2", "fox_t3"}},
		{ID: "owl", Name: "Owl", Rarity: catalog.RarityRare, DrawWeight: 25, Artwork: [3]string{"owl_t1", "owl_t2", "owl_t3"}},
		{ID: "lynx", Name: "Lynx", Rarity: catalog.RarityEpic, DrawWeight: 10, Artwork: [3]string{"lynx_t1", "lynx_t2", "lynx_t3"}},
		{ID: "whale", Name: "Whale", Rarity: catalog.RarityLegendary, DrawWeight: 5, Artwork: [3]string{"whale_t1", "whale_t2", "whale_t3"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func testRules() rules.Rules {
	return rules.Rules{
		SinglePullCost: 100,
		TenPullCost:    900,
		FusionSuccess: map[catalog.Rarity]float64{
			catalog.RarityCommon: 0.6,
			catalog.RarityRare:   0.45,
			catalog.RarityEpic:   0.3,
		},
		OutputPick:   rules.OutputPickWeighted,
		FoodToEvolve: map[int]int{1: 20, 2: 50},
		CoinsPerFood: 10,
	}
}

// newTestServer wires the handler stack against the in-memory ledger, the
// same shape main() builds.
func newTestServer(t *testing.T, gachaSrc, fusionSrc random.Source) (http.Handler, *ledger.Memory) {
	t.Helper()
	cat := testCatalog(t)
	r := testRules()
	led := ledger.NewMemory(r)
	s := &server{
		cat:       cat,
		led:       led,
		gacha:     gacha.New(cat, led, r, gachaSrc),
		fusion:    fusion.New(cat, led, r, fusionSrc),
		evolution: evolution.New(cat, led, r),
		exchange:  exchange.New(led, r),
	}
	return s.router(), led
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
	return v
}

func TestHealthz(t *testing.T) {
	h, _ := newTestServer(t, nil, nil)
	rec := doJSON(t, h, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCatalogEndpoint(t *testing.T) {
	h, _ := newTestServer(t, nil, nil)
	rec := doJSON(t, h, http.MethodGet, "/catalog", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	got := decode[[]templateResponse](t, rec)
	if len(got) != 4 || got[0].ID != "fox" || got[0].Artwork[2] != "fox_t3" {
		t.Fatalf("catalog = %+v", got)
	}
}

func TestGrantAndWallet(t *testing.T) {
	h, _ := newTestServer(t, nil, nil)
	rec := doJSON(t, h, http.MethodPost, "/players/s1/grant", grantRequest{Coins: 500, Food: 20})
	if rec.Code != http.StatusOK {
		t.Fatalf("grant status = %d", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/players/s1/wallet", nil)
	w := decode[walletResponse](t, rec)
	if w.Coins != 500 || w.Food != 20 {
		t.Fatalf("wallet = %+v", w)
	}
}

func TestPullEndpoint(t *testing.T) {
	h, _ := newTestServer(t, &script{vals: []float64{0}}, nil)
	doJSON(t, h, http.MethodPost, "/players/s1/grant", grantRequest{Coins: 1000})

	rec := doJSON(t, h, http.MethodPost, "/players/s1/pull", pullRequest{Count: 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	res := decode[pullResponse](t, rec)
	if res.Wallet.Coins != 900 {
		t.Fatalf("coins = %d", res.Wallet.Coins)
	}
	if len(res.Draws) != 1 || res.Draws[0].TemplateID != "fox" || !res.Draws[0].IsNew {
		t.Fatalf("draws = %+v", res.Draws)
	}
	if len(res.Units) != 1 || res.Units[0].Artwork != "fox_t1" || res.Units[0].Surplus != 0 {
		t.Fatalf("units = %+v", res.Units)
	}
}

func TestPullEndpointErrors(t *testing.T) {
	h, _ := newTestServer(t, random.NewSeeded(1), nil)

	rec := doJSON(t, h, http.MethodPost, "/players/s1/pull", pullRequest{Count: 3})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid count status = %d", rec.Code)
	}
	if e := decode[errorResponse](t, rec); e.Code != "INVALID_PULL_COUNT" {
		t.Fatalf("error = %+v", e)
	}

	rec = doJSON(t, h, http.MethodPost, "/players/s1/pull", pullRequest{Count: 1})
	if rec.Code != http.StatusConflict {
		t.Fatalf("broke status = %d", rec.Code)
	}
	if e := decode[errorResponse](t, rec); e.Code != "INSUFFICIENT_FUNDS" {
		t.Fatalf("error = %+v", e)
	}
}

func TestFuseEndpoint(t *testing.T) {
	// success roll, then output pick lands on the first rare
	h, led := newTestServer(t, nil, &script{vals: []float64{0, 0}})
	in := led.SeedUnit("s1", "fox", 5, 1, 0)

	rec := doJSON(t, h, http.MethodPost, "/players/s1/fuse", fuseRequest{
		Selection: []fuseRef{{UnitID: in.ID, Copies: 4}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	res := decode[fuseResponse](t, rec)
	if !res.Upgraded || res.TemplateID != "owl" || res.ResultRarity != "rare" || !res.IsNew {
		t.Fatalf("result = %+v", res)
	}
}

func TestFuseEndpointErrors(t *testing.T) {
	h, led := newTestServer(t, nil, &script{vals: []float64{0}})
	fox := led.SeedUnit("s1", "fox", 5, 1, 0)
	owl := led.SeedUnit("s1", "owl", 5, 1, 0)

	cases := []struct {
		name   string
		req    fuseRequest
		status int
		code   string
	}{
		{"three copies", fuseRequest{Selection: []fuseRef{{UnitID: fox.ID, Copies: 3}}}, http.StatusBadRequest, "INVALID_SELECTION_COUNT"},
		{"mixed", fuseRequest{Selection: []fuseRef{{UnitID: fox.ID, Copies: 2}, {UnitID: owl.ID, Copies: 2}}}, http.StatusConflict, "MIXED_RARITY"},
		{"unknown unit", fuseRequest{Selection: []fuseRef{{UnitID: "nope", Copies: 4}}}, http.StatusNotFound, "NOT_FOUND"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, h, http.MethodPost, "/players/s1/fuse", tc.req)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tc.status, rec.Body.String())
			}
			if e := decode[errorResponse](t, rec); e.Code != tc.code {
				t.Fatalf("error = %+v", e)
			}
		})
	}
}

func TestQuickCombineEndpoint(t *testing.T) {
	// forced failures keep counts deterministic
	h, led := newTestServer(t, nil, &script{vals: []float64{0.99}})
	led.SeedUnit("s1", "fox", 9, 1, 0) // surplus 8 -> 2 groups

	rec := doJSON(t, h, http.MethodPost, "/players/s1/fuse/quick", quickCombineRequest{Rarity: "common"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	res := decode[quickCombineResponse](t, rec)
	if res.Attempted != 2 || len(res.Completed) != 2 {
		t.Fatalf("batch = %+v", res)
	}

	rec = doJSON(t, h, http.MethodPost, "/players/s1/fuse/quick", quickCombineRequest{Rarity: "legendary"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("legendary status = %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodPost, "/players/s1/fuse/quick", quickCombineRequest{Rarity: "mythic"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown rarity status = %d", rec.Code)
	}
	if e := decode[errorResponse](t, rec); e.Code != "INVALID_RARITY" {
		t.Fatalf("unknown rarity error = %+v", e)
	}
}

func TestFeedAndEvolveEndpoints(t *testing.T) {
	h, led := newTestServer(t, nil, nil)
	doJSON(t, h, http.MethodPost, "/players/s1/grant", grantRequest{Food: 30})
	u := led.SeedUnit("s1", "fox", 1, 1, 0)

	rec := doJSON(t, h, http.MethodPost, "/units/"+u.ID+"/feed", feedRequest{Amount: 15})
	if rec.Code != http.StatusOK {
		t.Fatalf("feed status = %d body = %s", rec.Code, rec.Body.String())
	}
	fed := decode[feedResponse](t, rec)
	if fed.Wallet.Food != 15 || fed.Unit.FoodFed != 15 {
		t.Fatalf("feed = %+v", fed)
	}

	rec = doJSON(t, h, http.MethodPost, "/units/"+u.ID+"/evolve", nil)
	if rec.Code != http.StatusConflict {
		t.Fatalf("below threshold status = %d", rec.Code)
	}
	if e := decode[errorResponse](t, rec); e.Code != "NOT_ENOUGH_FOOD" {
		t.Fatalf("error = %+v", e)
	}

	doJSON(t, h, http.MethodPost, "/units/"+u.ID+"/feed", feedRequest{Amount: 5})
	rec = doJSON(t, h, http.MethodPost, "/units/"+u.ID+"/evolve", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("evolve status = %d body = %s", rec.Code, rec.Body.String())
	}
	unit := decode[unitResponse](t, rec)
	if unit.Tier != 2 || unit.FoodFed != 0 || unit.Artwork != "fox_t2" {
		t.Fatalf("evolved unit = %+v", unit)
	}

	rec = doJSON(t, h, http.MethodPost, "/units/nope/feed", feedRequest{Amount: 1})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown unit status = %d", rec.Code)
	}
}

func TestExchangeEndpoint(t *testing.T) {
	h, _ := newTestServer(t, nil, nil)
	doJSON(t, h, http.MethodPost, "/players/s1/grant", grantRequest{Coins: 100})

	rec := doJSON(t, h, http.MethodPost, "/players/s1/exchange", exchangeRequest{Amount: 5})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	w := decode[walletResponse](t, rec)
	if w.Coins != 50 || w.Food != 5 {
		t.Fatalf("wallet = %+v", w)
	}

	rec = doJSON(t, h, http.MethodPost, "/players/s1/exchange", exchangeRequest{Amount: 0})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("zero amount status = %d", rec.Code)
	}
	rec = doJSON(t, h, http.MethodPost, "/players/s1/exchange", exchangeRequest{Amount: 100})
	if rec.Code != http.StatusConflict {
		t.Fatalf("overdraft status = %d", rec.Code)
	}
}

func TestUnitsEndpoint(t *testing.T) {
	h, led := newTestServer(t, nil, nil)
	led.SeedUnit("s1", "fox", 3, 2, 7)

	rec := doJSON(t, h, http.MethodGet, "/players/s1/units", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	units := decode[[]unitResponse](t, rec)
	if len(units) != 1 {
		t.Fatalf("units = %+v", units)
	}
	u := units[0]
	if u.Count != 3 || u.Surplus != 2 || u.Tier != 2 || u.FoodFed != 7 || u.Artwork != "fox_t2" {
		t.Fatalf("unit = %+v", u)
	}
}
