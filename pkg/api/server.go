// Package api exposes the settlement engine over REST and WebSocket. Reads
// come straight from the engine's read surface; writes go through the
// upgradable proxy so in-flight upgrades are invisible to clients.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/zrcswap/zrcswap/pkg/engine"
	"github.com/zrcswap/zrcswap/pkg/types"
)

// Config wires a Server.
type Config struct {
	// Addr the HTTP listener binds to, e.g. ":8080".
	Addr string
	// AllowedOrigins for CORS; empty allows none.
	AllowedOrigins []string
	// AmountDecimals scales base-unit amounts for the *Scaled fields.
	AmountDecimals int32
}

// Server handles REST and WebSocket traffic for one market.
type Server struct {
	cfg    Config
	view   *engine.Engine
	logic  engine.Logic
	blocks engine.BlockSource
	router *mux.Router
	hub    *Hub
	log    *zap.SugaredLogger
}

// NewServer builds the HTTP surface. view serves reads, logic serves writes;
// passing the proxy as logic keeps the surface stable across upgrades.
func NewServer(cfg Config, view *engine.Engine, logic engine.Logic, blocks engine.BlockSource, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &Server{
		cfg:    cfg,
		view:   view,
		logic:  logic,
		blocks: blocks,
		router: mux.NewRouter(),
		hub:    NewHub(log),
		log:    log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Reads
	api.HandleFunc("/orders/{asset}/{tokenId}", s.handleGetOrders).Methods("GET")
	api.HandleFunc("/auctions/{asset}/{tokenId}", s.handleGetAuction).Methods("GET")
	api.HandleFunc("/accounts/{address}/escrow", s.handleGetEscrow).Methods("GET")
	api.HandleFunc("/accounts/{address}/claims", s.handleGetClaims).Methods("GET")
	api.HandleFunc("/collections/{id}", s.handleGetCollection).Methods("GET")
	api.HandleFunc("/config", s.handleGetConfig).Methods("GET")
	api.HandleFunc("/status", s.handleGetStatus).Methods("GET")

	// Fixed-price book
	api.HandleFunc("/orders", s.handleSetOrder).Methods("POST")
	api.HandleFunc("/orders/fulfill", s.handleFulfillOrder).Methods("POST")
	api.HandleFunc("/orders/cancel", s.handleCancelOrder).Methods("POST")

	// Auctions
	api.HandleFunc("/auctions", s.handleStartAuction).Methods("POST")
	api.HandleFunc("/auctions/bid", s.handleBid).Methods("POST")
	api.HandleFunc("/auctions/cancel", s.handleCancelAuction).Methods("POST")
	api.HandleFunc("/auctions/end", s.handleEndAuction).Methods("POST")

	// Escrow withdrawals
	api.HandleFunc("/withdrawals/payments", s.handleWithdrawPayments).Methods("POST")
	api.HandleFunc("/withdrawals/assets", s.handleWithdrawAsset).Methods("POST")

	// Collections
	api.HandleFunc("/collections", s.handleCreateCollection).Methods("POST")
	api.HandleFunc("/collections/items", s.handleAddToCollection).Methods("POST")

	// Owner operations
	admin := api.PathPrefix("/admin").Subrouter()
	admin.HandleFunc("/pause", s.handlePause).Methods("POST")
	admin.HandleFunc("/unpause", s.handleUnpause).Methods("POST")
	admin.HandleFunc("/allowlist/add", s.adminAddress(s.logic.SetAllowlist)).Methods("POST")
	admin.HandleFunc("/allowlist/remove", s.adminAddress(s.logic.RemoveFromAllowlist)).Methods("POST")
	admin.HandleFunc("/payment-tokens/allow", s.adminAddress(s.logic.AllowPaymentTokenAddress)).Methods("POST")
	admin.HandleFunc("/payment-tokens/disallow", s.adminAddress(s.logic.DisallowPaymentTokenAddress)).Methods("POST")
	admin.HandleFunc("/marketplaces/register", s.adminAddress(s.logic.RegisterMarketplaceAddress)).Methods("POST")
	admin.HandleFunc("/ownership/transfer", s.adminAddress(s.logic.TransferOwnership)).Methods("POST")
	admin.HandleFunc("/service-fee", s.handleSetServiceFee).Methods("POST")
	admin.HandleFunc("/royalty", s.handleSetRoyalty).Methods("POST")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Run serves HTTP until the context is cancelled, forwarding engine events
// to WebSocket subscribers the whole time.
func (s *Server) Run(ctx context.Context) error {
	go s.hub.Run(ctx)
	go s.pumpEvents(ctx)

	c := cors.New(cors.Options{
		AllowedOrigins:   s.cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	srv := &http.Server{Addr: s.cfg.Addr, Handler: c.Handler(s.router)}
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	s.log.Infow("api listening", "addr", s.cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) pumpEvents(ctx context.Context) {
	events := s.view.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			env, err := types.WrapEvent(ev)
			if err != nil {
				s.log.Errorw("wrap event", "err", err)
				continue
			}
			s.hub.BroadcastToChannel(ev.Kind(), env)
		}
	}
}

// ==============================
// Read handlers
// ==============================

func (s *Server) handleGetOrders(w http.ResponseWriter, r *http.Request) {
	tok, err := tokenFromVars(mux.Vars(r))
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	orders := s.view.OrdersForToken(tok)
	out := make([]OrderInfo, 0, len(orders))
	for _, o := range orders {
		out = append(out, OrderInfo{
			Asset:           o.Key.Asset.Hex(),
			TokenID:         o.Key.TokenID.Dec(),
			PaymentToken:    o.Key.PaymentToken.Hex(),
			Price:           o.Key.Price.Dec(),
			PriceScaled:     s.scale(&o.Key.Price),
			Side:            o.Key.Side.String(),
			Maker:           o.Maker.Hex(),
			ExpirationBlock: o.ExpirationBlock,
		})
	}
	respondJSON(w, out)
}

func (s *Server) handleGetAuction(w http.ResponseWriter, r *http.Request) {
	tok, err := tokenFromVars(mux.Vars(r))
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	l, bid, ok := s.view.Listing(tok)
	if !ok {
		respondError(w, http.StatusNotFound, fmt.Errorf("no active auction for %s", tok))
		return
	}
	info := AuctionInfo{
		Asset:               l.Token.Asset.Hex(),
		TokenID:             l.Token.TokenID.Dec(),
		Seller:              l.Seller.Hex(),
		PaymentToken:        l.PaymentToken.Hex(),
		StartAmount:         l.StartAmount.Dec(),
		StartAmountScaled:   s.scale(&l.StartAmount),
		ExpirationBlock:     l.ExpirationBlock,
		RoyaltyRecipient:    l.RoyaltyRecipient.Hex(),
		RoyaltyBps:          l.RoyaltyBps,
		ServiceFeeRecipient: l.ServiceFeeRecipient.Hex(),
		ServiceFeeBps:       l.ServiceFeeBps,
		CommissionRecipient: l.CommissionRecipient.Hex(),
		CommissionBps:       l.CommissionBps,
	}
	if bid != nil {
		info.TopBid = &BidInfo{
			Bidder:       bid.Bidder.Hex(),
			Amount:       bid.Amount.Dec(),
			AmountScaled: s.scale(&bid.Amount),
			Beneficiary:  bid.Beneficiary.Hex(),
			Sequence:     bid.Sequence,
		}
	}
	respondJSON(w, info)
}

func (s *Server) handleGetEscrow(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(mux.Vars(r)["address"])
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	entries := s.view.EscrowEntries(addr)
	out := make([]EscrowInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, EscrowInfo{
			PaymentToken: e.PaymentToken.Hex(),
			Amount:       e.Amount.Dec(),
			AmountScaled: s.scale(&e.Amount),
		})
	}
	respondJSON(w, out)
}

func (s *Server) handleGetClaims(w http.ResponseWriter, r *http.Request) {
	addr, err := parseAddress(mux.Vars(r)["address"])
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	claims := s.view.AssetClaims(addr)
	out := make([]ClaimInfo, 0, len(claims))
	for _, c := range claims {
		out = append(out, ClaimInfo{Asset: c.Token.Asset.Hex(), TokenID: c.Token.TokenID.Dec()})
	}
	respondJSON(w, out)
}

func (s *Server) handleGetCollection(w http.ResponseWriter, r *http.Request) {
	var id uint64
	if _, err := fmt.Sscanf(mux.Vars(r)["id"], "%d", &id); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("invalid collection id"))
		return
	}
	col, ok := s.view.Collection(id)
	if !ok {
		respondError(w, http.StatusNotFound, fmt.Errorf("collection %d not found", id))
		return
	}
	respondJSON(w, CollectionInfo{ID: col.ID, BrandOwner: col.BrandOwner.Hex(), CommissionBps: col.CommissionBps})
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, s.view.Config())
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, StatusInfo{Height: s.blocks.Height(), Paused: s.view.IsPaused()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Write handlers
// ==============================

func (s *Server) handleSetOrder(w http.ResponseWriter, r *http.Request) {
	var req SetOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	call, err := callFrom(req.CallFields)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	key, err := orderKeyFrom(req.Asset, req.TokenID, req.PaymentToken, req.Price, req.Side)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	ev, err := s.logic.SetOrder(call, types.FixedOrder{Key: key, Maker: call.Sender, ExpirationBlock: req.ExpirationBlock})
	s.respondResult(w, ev, err)
}

func (s *Server) handleFulfillOrder(w http.ResponseWriter, r *http.Request) {
	var req FulfillOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	call, err := callFrom(req.CallFields)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	key, err := orderKeyFrom(req.Asset, req.TokenID, req.PaymentToken, req.Price, req.Side)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	dest, err := parseAddress(req.Destination)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	ev, err := s.logic.FulfillOrder(call, key.Asset, &key.TokenID, key.PaymentToken, &key.Price, key.Side, dest)
	s.respondResult(w, ev, err)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	var req CancelOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	call, err := callFrom(req.CallFields)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	key, err := orderKeyFrom(req.Asset, req.TokenID, req.PaymentToken, req.Price, req.Side)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	ev, err := s.logic.CancelOrder(call, key.Asset, &key.TokenID, key.PaymentToken, &key.Price, key.Side)
	s.respondResult(w, ev, err)
}

func (s *Server) handleStartAuction(w http.ResponseWriter, r *http.Request) {
	var req StartAuctionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	call, err := callFrom(req.CallFields)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	asset, err := parseAddress(req.Asset)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	payment, err := parseAddress(req.PaymentToken)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	tokenID, err := parseAmount(req.TokenID)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	start, err := parseAmount(req.StartAmount)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	param := types.ListingParam{
		Asset:           asset,
		PaymentToken:    payment,
		ExpirationBlock: req.ExpirationBlock,
	}
	param.TokenID.Set(tokenID)
	param.StartAmount.Set(start)
	ev, err := s.logic.Start(call, param)
	s.respondResult(w, ev, err)
}

func (s *Server) handleBid(w http.ResponseWriter, r *http.Request) {
	var req BidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	call, err := callFrom(req.CallFields)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	asset, err := parseAddress(req.Asset)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	tokenID, err := parseAmount(req.TokenID)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	dest, err := parseAddress(req.Destination)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	ev, err := s.logic.Bid(call, asset, tokenID, amount, dest)
	s.respondResult(w, ev, err)
}

func (s *Server) handleCancelAuction(w http.ResponseWriter, r *http.Request) {
	s.auctionTokenOp(w, r, func(call types.Call, asset common.Address, tokenID *uint256.Int) (interface{}, error) {
		return s.logic.Cancel(call, asset, tokenID)
	})
}

func (s *Server) handleEndAuction(w http.ResponseWriter, r *http.Request) {
	s.auctionTokenOp(w, r, func(call types.Call, asset common.Address, tokenID *uint256.Int) (interface{}, error) {
		return s.logic.End(call, asset, tokenID)
	})
}

func (s *Server) auctionTokenOp(w http.ResponseWriter, r *http.Request,
	op func(types.Call, common.Address, *uint256.Int) (interface{}, error)) {
	var req AuctionTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	call, err := callFrom(req.CallFields)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	asset, err := parseAddress(req.Asset)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	tokenID, err := parseAmount(req.TokenID)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	ev, err := op(call, asset, tokenID)
	s.respondResult(w, ev, err)
}

func (s *Server) handleWithdrawPayments(w http.ResponseWriter, r *http.Request) {
	var req WithdrawPaymentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	call, err := callFrom(req.CallFields)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	payment, err := parseAddress(req.PaymentToken)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	ev, err := s.logic.WithdrawPaymentTokens(call, payment)
	s.respondResult(w, ev, err)
}

func (s *Server) handleWithdrawAsset(w http.ResponseWriter, r *http.Request) {
	var req WithdrawAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	call, err := callFrom(req.CallFields)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	asset, err := parseAddress(req.Asset)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	tokenID, err := parseAmount(req.TokenID)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	ev, err := s.logic.WithdrawAsset(call, asset, tokenID)
	s.respondResult(w, ev, err)
}

func (s *Server) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	var req CreateCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	call, err := callFrom(req.CallFields)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	col, err := s.logic.CreateCollection(call, req.CommissionBps)
	if err != nil {
		s.respondSettlementError(w, err)
		return
	}
	respondJSON(w, CollectionInfo{ID: col.ID, BrandOwner: col.BrandOwner.Hex(), CommissionBps: col.CommissionBps})
}

func (s *Server) handleAddToCollection(w http.ResponseWriter, r *http.Request) {
	var req AddToCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	call, err := callFrom(req.CallFields)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	asset, err := parseAddress(req.Asset)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	tokenID, err := parseAmount(req.TokenID)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.logic.AddToCollection(call, asset, tokenID, req.CollectionID); err != nil {
		s.respondSettlementError(w, err)
		return
	}
	respondJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.callOnly(w, r, s.logic.Pause)
}

func (s *Server) handleUnpause(w http.ResponseWriter, r *http.Request) {
	s.callOnly(w, r, s.logic.Unpause)
}

func (s *Server) callOnly(w http.ResponseWriter, r *http.Request, op func(types.Call) error) {
	var req struct{ CallFields }
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	call, err := callFrom(req.CallFields)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := op(call); err != nil {
		s.respondSettlementError(w, err)
		return
	}
	respondJSON(w, map[string]string{"status": "ok"})
}

// adminAddress wraps the owner operations of shape (Call, Address) error.
func (s *Server) adminAddress(op func(types.Call, common.Address) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AdminAddressRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, err)
			return
		}
		call, err := callFrom(req.CallFields)
		if err != nil {
			respondError(w, http.StatusBadRequest, err)
			return
		}
		addr, err := parseAddress(req.Address)
		if err != nil {
			respondError(w, http.StatusBadRequest, err)
			return
		}
		if err := op(call, addr); err != nil {
			s.respondSettlementError(w, err)
			return
		}
		respondJSON(w, map[string]string{"status": "ok"})
	}
}

func (s *Server) handleSetServiceFee(w http.ResponseWriter, r *http.Request) {
	var req ServiceFeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	call, err := callFrom(req.CallFields)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	recipient, err := parseAddress(req.Recipient)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.logic.SetServiceFee(call, recipient, req.Bps); err != nil {
		s.respondSettlementError(w, err)
		return
	}
	respondJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleSetRoyalty(w http.ResponseWriter, r *http.Request) {
	var req RoyaltyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	call, err := callFrom(req.CallFields)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	asset, err := parseAddress(req.Asset)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	recipient, err := parseAddress(req.Recipient)
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.logic.SetRoyalty(call, asset, recipient, req.Bps); err != nil {
		s.respondSettlementError(w, err)
		return
	}
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Helpers
// ==============================

// scale renders a base-unit amount at the configured decimal precision.
func (s *Server) scale(v *uint256.Int) string {
	return decimal.NewFromBigInt(v.ToBig(), -s.cfg.AmountDecimals).String()
}

func (s *Server) respondResult(w http.ResponseWriter, ev interface{}, err error) {
	if err != nil {
		s.respondSettlementError(w, err)
		return
	}
	respondJSON(w, ev)
}

func (s *Server) respondSettlementError(w http.ResponseWriter, err error) {
	var se *engine.Error
	if !errors.As(err, &se) {
		s.log.Errorw("internal failure", "err", err)
		respondError(w, http.StatusInternalServerError, fmt.Errorf("internal error"))
		return
	}
	respondJSONStatus(w, statusFor(se.Code), ErrorResponse{
		Error:   se.Code.String(),
		Code:    se.Code.String(),
		Checks:  se.Checks,
		Message: se.Detail,
	})
}

// statusFor maps settlement failure codes onto HTTP statuses.
func statusFor(code engine.ErrorCode) int {
	switch code {
	case engine.CodeSellOrderNotFound, engine.CodeBuyOrderNotFound,
		engine.CodeAccountNotFound, engine.CodeAssetNotFound, engine.CodeCollectionNotFound:
		return http.StatusNotFound
	case engine.CodeNotAllowedUser, engine.CodeNotContractOwner,
		engine.CodeNotAllowedToCancelOrder, engine.CodeNotAllowedToEnd, engine.CodeNotBrandOwner:
		return http.StatusForbidden
	case engine.CodePaused, engine.CodeNotPaused, engine.CodeExpired,
		engine.CodeNotExpired, engine.CodeSellOrderFound:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func callFrom(f CallFields) (types.Call, error) {
	sender, err := parseAddress(f.Sender)
	if err != nil {
		return types.Call{}, fmt.Errorf("invalid sender: %w", err)
	}
	call := types.Call{Sender: sender}
	if f.Value != "" {
		v, err := parseAmount(f.Value)
		if err != nil {
			return types.Call{}, fmt.Errorf("invalid value: %w", err)
		}
		call.Value = v
	}
	return call, nil
}

func orderKeyFrom(asset, tokenID, payment, price, side string) (types.FixedOrderKey, error) {
	var key types.FixedOrderKey
	a, err := parseAddress(asset)
	if err != nil {
		return key, fmt.Errorf("invalid asset: %w", err)
	}
	p, err := parseAddress(payment)
	if err != nil {
		return key, fmt.Errorf("invalid payment token: %w", err)
	}
	id, err := parseAmount(tokenID)
	if err != nil {
		return key, fmt.Errorf("invalid token id: %w", err)
	}
	pr, err := parseAmount(price)
	if err != nil {
		return key, fmt.Errorf("invalid price: %w", err)
	}
	sd, err := types.ParseSide(side)
	if err != nil {
		return key, err
	}
	key.Asset = a
	key.PaymentToken = p
	key.TokenID.Set(id)
	key.Price.Set(pr)
	key.Side = sd
	return key, nil
}

func tokenFromVars(vars map[string]string) (types.TokenKey, error) {
	var tok types.TokenKey
	asset, err := parseAddress(vars["asset"])
	if err != nil {
		return tok, fmt.Errorf("invalid asset: %w", err)
	}
	id, err := parseAmount(vars["tokenId"])
	if err != nil {
		return tok, fmt.Errorf("invalid token id: %w", err)
	}
	tok.Asset = asset
	tok.TokenID.Set(id)
	return tok, nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func parseAmount(s string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return v, nil
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSONStatus(w, status, ErrorResponse{Error: err.Error()})
}
