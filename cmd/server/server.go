package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/studypets/economy/internal/apperrors"
	"github.com/studypets/economy/internal/catalog"
	"github.com/studypets/economy/internal/evolution"
	"github.com/studypets/economy/internal/exchange"
	"github.com/studypets/economy/internal/fusion"
	"github.com/studypets/economy/internal/gacha"
	"github.com/studypets/economy/internal/ledger"
)

type server struct {
	cat       *catalog.Catalog
	led       *ledger.Memory
	gacha     *gacha.Engine
	fusion    *fusion.Engine
	evolution *evolution.Engine
	exchange  *exchange.Engine
}

func (s *server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/catalog", s.handleCatalog)

	r.Route("/players/{playerID}", func(pr chi.Router) {
		pr.Get("/wallet", s.handleWallet)
		pr.Get("/units", s.handleUnits)
		pr.Post("/grant", s.handleGrant)
		pr.Post("/pull", s.handlePull)
		pr.Post("/fuse", s.handleFuse)
		pr.Post("/fuse/quick", s.handleQuickCombine)
		pr.Post("/exchange", s.handleExchange)
	})

	r.Route("/units/{unitID}", func(ur chi.Router) {
		ur.Post("/feed", s.handleFeed)
		ur.Post("/evolve", s.handleEvolve)
	})

	return r
}

type templateResponse struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Rarity  string    `json:"rarity"`
	Artwork [3]string `json:"artwork"`
}

type walletResponse struct {
	Coins int `json:"coins"`
	Food  int `json:"food"`
}

type unitResponse struct {
	ID         string    `json:"id"`
	TemplateID string    `json:"template_id"`
	Count      int       `json:"count"`
	Surplus    int       `json:"surplus"`
	Tier       int       `json:"tier"`
	FoodFed    int       `json:"food_fed"`
	Artwork    string    `json:"artwork"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (s *server) unitResponse(u ledger.Unit) unitResponse {
	out := unitResponse{
		ID:         u.ID,
		TemplateID: u.TemplateID,
		Count:      u.Count,
		Surplus:    u.Surplus(),
		Tier:       u.Tier,
		FoodFed:    u.FoodFed,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
	if t, err := s.cat.ByID(u.TemplateID); err == nil {
		if art, err := evolution.Artwork(t, u.Tier); err == nil {
			out.Artwork = art
		}
	}
	return out
}

func (s *server) unitResponses(units []ledger.Unit) []unitResponse {
	out := make([]unitResponse, len(units))
	for i, u := range units {
		out[i] = s.unitResponse(u)
	}
	return out
}

func (s *server) handleCatalog(w http.ResponseWriter, _ *http.Request) {
	all := s.cat.All()
	out := make([]templateResponse, len(all))
	for i, t := range all {
		out[i] = templateResponse{ID: t.ID, Name: t.Name, Rarity: string(t.Rarity), Artwork: t.Artwork}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := s.led.Wallet(r.Context(), chi.URLParam(r, "playerID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, walletResponse{Coins: wallet.Coins, Food: wallet.Food})
}

func (s *server) handleUnits(w http.ResponseWriter, r *http.Request) {
	units, err := s.led.Units(r.Context(), chi.URLParam(r, "playerID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.unitResponses(units))
}

type grantRequest struct {
	Coins int `json:"coins"`
	Food  int `json:"food"`
}

// handleGrant tops up a dev wallet. The in-memory ledger is the only
// backend this server runs against, so the helper is always available.
func (s *server) handleGrant(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	wallet := s.led.SeedWallet(chi.URLParam(r, "playerID"), req.Coins, req.Food)
	writeJSON(w, http.StatusOK, walletResponse{Coins: wallet.Coins, Food: wallet.Food})
}

type pullRequest struct {
	Count int `json:"count"`
}

type drawResponse struct {
	TemplateID string `json:"template_id"`
	Rarity     string `json:"rarity"`
	IsNew      bool   `json:"is_new"`
}

type pullResponse struct {
	Draws  []drawResponse `json:"draws"`
	Wallet walletResponse `json:"wallet"`
	Units  []unitResponse `json:"units"`
}

func (s *server) handlePull(w http.ResponseWriter, r *http.Request) {
	var req pullRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	res, err := s.gacha.Pull(r.Context(), chi.URLParam(r, "playerID"), req.Count)
	if err != nil {
		writeError(w, err)
		return
	}
	out := pullResponse{
		Wallet: walletResponse{Coins: res.Wallet.Coins, Food: res.Wallet.Food},
		Units:  s.unitResponses(res.Units),
	}
	for _, d := range res.Draws {
		out.Draws = append(out.Draws, drawResponse{TemplateID: d.TemplateID, Rarity: string(d.Rarity), IsNew: d.IsNew})
	}
	writeJSON(w, http.StatusOK, out)
}

type fuseRequest struct {
	Selection []fuseRef `json:"selection"`
}

type fuseRef struct {
	UnitID string `json:"unit_id"`
	Copies int    `json:"copies"`
}

type fuseResponse struct {
	Upgraded     bool           `json:"upgraded"`
	TemplateID   string         `json:"template_id"`
	ResultRarity string         `json:"result_rarity"`
	IsNew        bool           `json:"is_new"`
	Units        []unitResponse `json:"units"`
}

func (s *server) fuseResponse(res fusion.Result) fuseResponse {
	return fuseResponse{
		Upgraded:     res.Upgraded,
		TemplateID:   res.TemplateID,
		ResultRarity: string(res.ResultRarity),
		IsNew:        res.IsNew,
		Units:        s.unitResponses(res.Units),
	}
}

func (s *server) handleFuse(w http.ResponseWriter, r *http.Request) {
	var req fuseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	selection := make([]ledger.UnitRef, len(req.Selection))
	for i, ref := range req.Selection {
		selection[i] = ledger.UnitRef{UnitID: ref.UnitID, Copies: ref.Copies}
	}
	res, err := s.fusion.Fuse(r.Context(), chi.URLParam(r, "playerID"), selection)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.fuseResponse(res))
}

type quickCombineRequest struct {
	Rarity string `json:"rarity"`
}

type quickCombineResponse struct {
	Attempted int            `json:"attempted"`
	Completed []fuseResponse `json:"completed"`
}

func (s *server) handleQuickCombine(w http.ResponseWriter, r *http.Request) {
	var req quickCombineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	res, err := s.fusion.QuickCombine(r.Context(), chi.URLParam(r, "playerID"), catalog.Rarity(req.Rarity))
	if err != nil {
		writeError(w, err)
		return
	}
	out := quickCombineResponse{Attempted: res.Attempted, Completed: []fuseResponse{}}
	for _, fr := range res.Completed {
		out.Completed = append(out.Completed, s.fuseResponse(fr))
	}
	writeJSON(w, http.StatusOK, out)
}

type feedRequest struct {
	Amount int `json:"amount"`
}

type feedResponse struct {
	Wallet walletResponse `json:"wallet"`
	Unit   unitResponse   `json:"unit"`
}

func (s *server) handleFeed(w http.ResponseWriter, r *http.Request) {
	var req feedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	receipt, err := s.evolution.Feed(r.Context(), chi.URLParam(r, "unitID"), req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, feedResponse{
		Wallet: walletResponse{Coins: receipt.Wallet.Coins, Food: receipt.Wallet.Food},
		Unit:   s.unitResponse(receipt.Unit),
	})
}

func (s *server) handleEvolve(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.evolution.Evolve(r.Context(), chi.URLParam(r, "unitID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.unitResponse(receipt.Unit))
}

type exchangeRequest struct {
	Amount int `json:"amount"`
}

func (s *server) handleExchange(w http.ResponseWriter, r *http.Request) {
	var req exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	receipt, err := s.exchange.BuyFood(r.Context(), chi.URLParam(r, "playerID"), req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, walletResponse{Coins: receipt.Wallet.Coins, Food: receipt.Wallet.Food})
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := apperrors.GetCode(err)
	writeJSON(w, httpStatus(code), errorResponse{Code: string(code), Message: err.Error()})
}

func httpStatus(code apperrors.Code) int {
	switch code {
	case apperrors.CodeInvalidPullCount,
		apperrors.CodeInvalidAmount,
		apperrors.CodeInvalidSelectionCount,
		apperrors.CodeInvalidRarity:
		return http.StatusBadRequest
	case apperrors.CodeInsufficientFunds,
		apperrors.CodeMixedRarity,
		apperrors.CodeNoHigherRarity,
		apperrors.CodeInsufficientSurplus,
		apperrors.CodeAlreadyMaxTier,
		apperrors.CodeNotEnoughFood,
		apperrors.CodeTransactionRejected:
		return http.StatusConflict
	case apperrors.CodeOperationPending:
		return http.StatusTooManyRequests
	case apperrors.CodeNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
