package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fbarrueco/crimson-city-life/internal/domain"
	"github.com/fbarrueco/crimson-city-life/internal/market"
)

// Server exposes a read-only view of the marketplace over HTTP and
// websocket: catalog, order books, the transaction ledger, and a live
// trade feed. Orders are never accepted remotely.
type Server struct {
	engine   *market.Engine
	tradeHub *hub[domain.Transaction]
	bookHub  *hub[bookMessage]
	upgrader websocket.Upgrader
	httpSrv  *http.Server
}

type bookMessage struct {
	CommodityID string        `json:"commodityId"`
	BuySide     []publicOrder `json:"buySide"`
	SellSide    []publicOrder `json:"sellSide"`
}

type publicOrder struct {
	ID        string  `json:"id"`
	Side      string  `json:"side"`
	Quantity  int64   `json:"quantity"`
	Price     float64 `json:"price"`
	Trader    string  `json:"trader"`
	CreatedAt int64   `json:"createdAt"`
}

type publicTransaction struct {
	ID          string  `json:"id"`
	CommodityID string  `json:"commodityId"`
	Quantity    int64   `json:"quantity"`
	Price       float64 `json:"price"`
	Ts          int64   `json:"ts"`
	Buyer       string  `json:"buyer"`
	Seller      string  `json:"seller"`
}

type outboundMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// NewServer builds the feed server over a running engine.
func NewServer(engine *market.Engine, addr string) *Server {
	s := &Server{
		engine:   engine,
		tradeHub: newHub[domain.Transaction](),
		bookHub:  newHub[bookMessage](),
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start listens on the configured address. Blocks until the server stops.
func (s *Server) Start() error {
	slog.Info("Feed server listening", slog.String("addr", s.httpSrv.Addr))
	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Publish pushes the transactions of an executed order to trade
// subscribers, plus a fresh book view for the affected commodity.
func (s *Server) Publish(commodityID string, txs []domain.Transaction) {
	for _, tx := range txs {
		s.tradeHub.Broadcast(tx)
	}
	s.bookHub.Broadcast(toBookMessage(s.engine.BookView(commodityID)))
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/catalog", s.withCORS(http.HandlerFunc(s.handleCatalog)))
	mux.Handle("/book", s.withCORS(http.HandlerFunc(s.handleBook)))
	mux.Handle("/ledger", s.withCORS(http.HandlerFunc(s.handleLedger)))
	mux.Handle("/ws/trades", s.withCORS(http.HandlerFunc(s.handleTradeStream)))
	mux.Handle("/ws/book", s.withCORS(http.HandlerFunc(s.handleBookStream)))
	return mux
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, s.engine.Catalog())
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	commodityID := r.URL.Query().Get("commodity")
	if commodityID == "" {
		writeError(w, http.StatusBadRequest, "commodity query parameter is required")
		return
	}
	writeJSON(w, http.StatusOK, toBookMessage(s.engine.BookView(commodityID)))
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	commodityID := r.URL.Query().Get("commodity")
	if commodityID == "" {
		writeError(w, http.StatusBadRequest, "commodity query parameter is required")
		return
	}

	txs := s.engine.RecentTransactions(commodityID, 100)
	out := make([]publicTransaction, 0, len(txs))
	for _, tx := range txs {
		out = append(out, toPublicTransaction(tx))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTradeStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := s.tradeHub.Subscribe(32)
	defer s.tradeHub.Unsubscribe(sub)

	for tx := range sub.ch {
		msg := outboundMessage{Type: "trade", Data: toPublicTransaction(tx)}
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func (s *Server) handleBookStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := s.bookHub.Subscribe(32)
	defer s.bookHub.Unsubscribe(sub)

	for view := range sub.ch {
		msg := outboundMessage{Type: "book", Data: view}
		if err := conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

func toBookMessage(book domain.OrderBook) bookMessage {
	msg := bookMessage{
		CommodityID: book.CommodityID,
		BuySide:     make([]publicOrder, 0, len(book.BuySide)),
		SellSide:    make([]publicOrder, 0, len(book.SellSide)),
	}
	for _, o := range book.BuySide {
		msg.BuySide = append(msg.BuySide, toPublicOrder(o))
	}
	for _, o := range book.SellSide {
		msg.SellSide = append(msg.SellSide, toPublicOrder(o))
	}
	return msg
}

func toPublicOrder(o domain.Order) publicOrder {
	return publicOrder{
		ID:        o.ID,
		Side:      o.Side,
		Quantity:  o.Quantity,
		Price:     o.LimitPrice,
		Trader:    o.TraderID,
		CreatedAt: o.CreatedUnixM,
	}
}

func toPublicTransaction(tx domain.Transaction) publicTransaction {
	return publicTransaction{
		ID:          tx.ID,
		CommodityID: tx.CommodityID,
		Quantity:    tx.Quantity,
		Price:       tx.Price,
		Ts:          tx.TsUnixM,
		Buyer:       tx.Buyer.String(),
		Seller:      tx.Seller.String(),
	}
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
