package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"match_go/internal/book"
	"match_go/internal/domain"
	"match_go/internal/event"
	"match_go/internal/infra"
)

// journalReader is the slice of the journal the gateway reads from.
type journalReader interface {
	RecentTrades(limit int) ([]domain.TradeRecord, error)
	ResultFor(orderID string) (*domain.MatchRecord, error)
}

// Server is the order-entry boundary: it validates requests, assigns
// sequence numbers and forwards submissions to the sequencer inbox. The
// matching core itself never sees a socket.
type Server struct {
	inbox      chan<- event.Event
	nextSeq    *uint64
	journal    journalReader
	results    *hub[resultMessage]
	upgrader   websocket.Upgrader
	authToken  string
	corsOrigin string
	now        func() time.Time

	// seqMu serializes sequence reservation with the inbox send. The two
	// must be one step: a number handed out before an earlier one reaches
	// the channel is a gap to the sequencer.
	seqMu sync.Mutex

	mu  sync.RWMutex
	top book.TopOfBook
}

// NewServer wires a gateway in front of a sequencer inbox. journal may be
// nil when no journal is configured.
func NewServer(inbox chan<- event.Event, nextSeq *uint64, journal journalReader, authToken, corsOrigin string) *Server {
	s := &Server{
		inbox:      inbox,
		nextSeq:    nextSeq,
		journal:    journal,
		results:    newHub[resultMessage](),
		authToken:  authToken,
		corsOrigin: corsOrigin,
		now:        time.Now,
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return s.corsOrigin == "*" || r.Header.Get("Origin") == s.corsOrigin
		},
	}
	return s
}

// OnResult is the sequencer callback: it caches the post-match top of book
// and fans the outcome out to websocket subscribers.
func (s *Server) OnResult(res *domain.MatchResult, top book.TopOfBook) {
	s.mu.Lock()
	s.top = top
	s.mu.Unlock()

	s.results.Broadcast(toResultMessage(res))

	infra.GlobalMetrics.RecordTrades(len(res.Trades))
	switch res.Status {
	case domain.StatusFilled:
		infra.GlobalMetrics.RecordFill()
	case domain.StatusAllRejected, domain.StatusPartialRejection:
		infra.GlobalMetrics.RecordRejection()
	}
}

// Routes builds the HTTP handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/orders", s.handleOrders)
	mux.HandleFunc("/orders/", s.handleOrderLookup)
	mux.HandleFunc("/book", s.handleBook)
	mux.HandleFunc("/trades", s.handleTrades)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/ws", s.handleWS)
	return s.withCORS(mux)
}

type orderRequest struct {
	TraderID string `json:"trader_id"`
	Side     string `json:"side"`
	Type     string `json:"type"`
	Price    string `json:"price,omitempty"` // empty for market orders
	Volume   int64  `json:"volume"`
}

type resultMessage struct {
	OrderID         string         `json:"order_id"`
	Side            string         `json:"side"`
	Type            string         `json:"type"`
	Status          string         `json:"status"`
	Note            string         `json:"note,omitempty"`
	FilledVolume    int64          `json:"filled_volume"`
	RemainingVolume int64          `json:"remaining_volume"`
	AvgMatchPrice   string         `json:"avg_match_price"`
	Timestamp       time.Time      `json:"timestamp"`
	Trades          []tradeMessage `json:"trades"`
}

type tradeMessage struct {
	OffererID string    `json:"offerer_id"`
	BidderID  string    `json:"bidder_id"`
	Price     string    `json:"price"`
	Volume    int64     `json:"volume"`
	Timestamp time.Time `json:"timestamp"`
}

type bookLevel struct {
	OrderID string `json:"order_id"`
	Price   string `json:"price"`
	Volume  int64  `json:"volume"`
}

type bookResponse struct {
	BestBid   *bookLevel `json:"best_bid,omitempty"`
	BestOffer *bookLevel `json:"best_offer,omitempty"`
}

func toResultMessage(res *domain.MatchResult) resultMessage {
	msg := resultMessage{
		OrderID:         res.OrderID.String(),
		Side:            string(res.Side),
		Type:            string(res.OrderType),
		Status:          string(res.Status),
		Note:            res.Note,
		FilledVolume:    res.FilledVolume,
		RemainingVolume: res.RemainingVolume,
		AvgMatchPrice:   res.AvgMatchPrice.String(),
		Timestamp:       res.Timestamp,
		Trades:          make([]tradeMessage, 0, len(res.Trades)),
	}
	for _, t := range res.Trades {
		msg.Trades = append(msg.Trades, tradeMessage{
			OffererID: t.OffererID.String(),
			BidderID:  t.BidderID.String(),
			Price:     t.Price.String(),
			Volume:    t.Volume,
			Timestamp: t.Timestamp,
		})
	}
	return msg
}

// parseOrder turns a request body into a validated domain order.
func (s *Server) parseOrder(req *orderRequest) (*domain.Order, error) {
	trader, err := uuid.Parse(req.TraderID)
	if err != nil {
		return nil, &domain.ValidationError{Field: "trader_id", Reason: err.Error()}
	}

	price := domain.NoPrice
	if req.Price != "" {
		price, err = decimal.NewFromString(req.Price)
		if err != nil {
			return nil, &domain.ValidationError{Field: "price", Reason: err.Error()}
		}
	}

	return domain.NewOrder(domain.Side(req.Side), domain.OrderType(req.Type), trader, req.Volume, price, s.now())
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed request body", http.StatusBadRequest)
		return
	}

	order, err := s.parseOrder(&req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidOrder) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	start := s.now()

	ev := event.AcquireOrderSubmitEvent()
	ev.Ts = start.UnixMicro()
	ev.Order = order
	ev.Done = make(chan *domain.MatchResult, 1)

	// Reserve the sequence number and enqueue under one lock: the
	// sequencer halts on any out-of-order arrival, so two submitters must
	// never be able to reach the channel in inverted order.
	s.seqMu.Lock()
	*s.nextSeq++
	ev.Seq = *s.nextSeq
	s.inbox <- ev
	s.seqMu.Unlock()

	res := <-ev.Done
	event.ReleaseOrderSubmitEvent(ev)

	infra.GlobalMetrics.RecordOrder(s.now().Sub(start).Nanoseconds())

	s.writeJSON(w, http.StatusOK, toResultMessage(res))
}

// handleOrderLookup serves the persisted outcome of a past order by id.
func (s *Server) handleOrderLookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.journal == nil {
		http.Error(w, "journal disabled", http.StatusNotFound)
		return
	}

	id, err := uuid.Parse(strings.TrimPrefix(r.URL.Path, "/orders/"))
	if err != nil {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}

	rec, err := s.journal.ResultFor(id.String())
	if err != nil {
		slog.Error("Failed to read result", slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if rec == nil {
		http.Error(w, "order not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	top := s.top
	s.mu.RUnlock()

	resp := bookResponse{}
	if top.BestBid != nil {
		resp.BestBid = &bookLevel{
			OrderID: top.BestBid.ID.String(),
			Price:   top.BestBid.Price.String(),
			Volume:  top.BestBid.Volume,
		}
	}
	if top.BestOffer != nil {
		resp.BestOffer = &bookLevel{
			OrderID: top.BestOffer.ID.String(),
			Price:   top.BestOffer.Price.String(),
			Volume:  top.BestOffer.Volume,
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.journal == nil {
		http.Error(w, "journal disabled", http.StatusNotFound)
		return
	}

	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 || n > 1000 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	rows, err := s.journal.RecentTrades(limit)
	if err != nil {
		slog.Error("Failed to read trades", slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, infra.GlobalMetrics.Snapshot())
}

type outboundMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// handleWS streams match results to the client as they happen.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	sub := s.results.Subscribe(64)
	infra.GlobalMetrics.IncrementClients()
	defer func() {
		s.results.Unsubscribe(sub)
		infra.GlobalMetrics.DecrementClients()
		conn.Close()
	}()

	// Discard inbound frames; the socket is outbound-only.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for msg := range sub.ch {
		if err := conn.WriteJSON(outboundMessage{Type: "result", Data: msg}); err != nil {
			return
		}
	}
}

func (s *Server) authorized(r *http.Request) bool {
	if s.authToken == "" {
		return true
	}
	return r.Header.Get("Authorization") == "Bearer "+s.authToken
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", slog.Any("error", err))
	}
}
