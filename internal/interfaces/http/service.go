package httpinterface

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/swapmarket/swapd/internal/core/application"
	"github.com/swapmarket/swapd/internal/core/domain"
)

// Service exposes the settlement engine operations as a JSON over HTTP
// interface. Amounts travel as decimal strings so 256-bit values survive
// JSON number handling on any client.
type Service struct {
	settlementSvc *application.SettlementService
}

// NewService returns the HTTP interface of the given settlement service.
func NewService(settlementSvc *application.SettlementService) (*Service, error) {
	if settlementSvc == nil {
		return nil, fmt.Errorf("missing settlement service")
	}
	return &Service{settlementSvc: settlementSvc}, nil
}

// Router mounts all routes and returns the chi router.
func (s *Service) Router() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	router.Get("/v1/ping", s.pingHandler)
	router.Handle("/metrics", promhttp.Handler())

	router.Post("/v1/offers", s.createOfferHandler)
	router.Get("/v1/offers", s.listOffersHandler)
	router.Get("/v1/offers/{hash}", s.getOfferHandler)
	router.Post("/v1/offers/{hash}/take", s.takeOfferHandler)
	router.Post("/v1/offers/{hash}/cancel", s.cancelOfferHandler)
	router.Get("/v1/fills", s.listFillsHandler)

	return router
}

func (s *Service) pingHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) createOfferHandler(w http.ResponseWriter, req *http.Request) {
	var body createOfferRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	input, err := body.toInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	hash, err := s.settlementSvc.CreateOffer(req.Context(), input)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"hash": hash})
}

func (s *Service) getOfferHandler(w http.ResponseWriter, req *http.Request) {
	hash := chi.URLParam(req, "hash")
	info, err := s.settlementSvc.GetOffer(req.Context(), hash)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, offerView(*info))
}

func (s *Service) listOffersHandler(w http.ResponseWriter, req *http.Request) {
	maker := req.URL.Query().Get("maker")
	taker := req.URL.Query().Get("taker")

	var (
		infos []application.OfferInfo
		err   error
	)
	switch {
	case maker != "":
		infos, err = s.settlementSvc.ListOffersByMaker(req.Context(), maker)
	case taker != "":
		infos, err = s.settlementSvc.ListOffersRestrictedTo(req.Context(), taker)
	default:
		writeError(
			w, http.StatusBadRequest,
			fmt.Errorf("either maker or taker query param is required"),
		)
		return
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := make([]offerResponse, 0, len(infos))
	for _, info := range infos {
		views = append(views, offerView(info))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Service) takeOfferHandler(w http.ResponseWriter, req *http.Request) {
	hash := chi.URLParam(req, "hash")

	var body takeOfferRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	counterAmount, err := parseAmount(body.CounterAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	value, err := parseOptionalAmount(body.AttachedValue)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	receipt, err := s.settlementSvc.TakeOffer(
		req.Context(), hash, counterAmount, body.CallerAddress, value,
	)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fillReceiptView(*receipt))
}

func (s *Service) cancelOfferHandler(w http.ResponseWriter, req *http.Request) {
	hash := chi.URLParam(req, "hash")

	var body cancelOfferRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.settlementSvc.CancelOffer(
		req.Context(), hash, body.CallerAddress,
	); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"hash": hash})
}

func (s *Service) listFillsHandler(w http.ResponseWriter, req *http.Request) {
	taker := req.URL.Query().Get("taker")
	if taker == "" {
		writeError(
			w, http.StatusBadRequest, fmt.Errorf("taker query param is required"),
		)
		return
	}

	fills, err := s.settlementSvc.ListFillsByTaker(req.Context(), taker)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := make([]fillResponse, 0, len(fills))
	for _, f := range fills {
		views = append(views, fillView(f))
	}
	writeJSON(w, http.StatusOK, views)
}

func writeDomainError(w http.ResponseWriter, err error) {
	var ledgerErr *application.LedgerError
	if errors.As(err, &ledgerErr) {
		writeError(w, http.StatusBadGateway, err)
		return
	}

	switch {
	case errors.Is(err, domain.ErrOfferNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domain.ErrSelfTakeForbidden),
		errors.Is(err, domain.ErrUnauthorizedTaker),
		errors.Is(err, domain.ErrUnauthorizedCancel):
		writeError(w, http.StatusForbidden, err)
	case errors.Is(err, domain.ErrOfferNotOpen):
		writeError(w, http.StatusConflict, err)
	default:
		writeError(w, http.StatusBadRequest, err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("failed to write http response")
	}
}

func parseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("malformed amount %q", s)
	}
	return amount, nil
}

func parseOptionalAmount(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	return parseAmount(s)
}
