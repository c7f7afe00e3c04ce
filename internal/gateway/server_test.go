package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"

	"match_go/internal/book"
	"match_go/internal/domain"
	"match_go/internal/engine"
	"match_go/internal/infra"
)

// startGateway spins up a real sequencer behind the server so requests flow
// the same path they do in production.
func startGateway(t *testing.T, authToken string) (*Server, *engine.Sequencer) {
	t.Helper()

	eng := engine.NewMatchingEngine(book.NewOrderBook())
	var srv *Server
	seq := engine.NewSequencer(16, eng, nil, func(res *domain.MatchResult, top book.TopOfBook) {
		srv.OnResult(res, top)
	})

	var nextSeq uint64
	srv = NewServer(seq.Inbox(), &nextSeq, nil, authToken, "*")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go seq.Run(ctx)

	return srv, seq
}

func postOrder(t *testing.T, h http.Handler, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func orderBody(side, typ, price string, volume int64) string {
	req := orderRequest{
		TraderID: uuid.NewString(),
		Side:     side,
		Type:     typ,
		Price:    price,
		Volume:   volume,
	}
	out, _ := json.Marshal(req)
	return string(out)
}

func TestServer_PlaceOrder(t *testing.T) {
	srv, _ := startGateway(t, "")
	h := srv.Routes()

	rec := postOrder(t, h, "", orderBody("SELL", "LIMIT", "10.00", 25))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var res resultMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if res.Status != string(domain.StatusAllResting) {
		t.Errorf("expected ALL_RESTING, got %s", res.Status)
	}
	if res.RemainingVolume != 25 {
		t.Errorf("expected remaining 25, got %d", res.RemainingVolume)
	}

	// A crossing buy should fill against the rested offer.
	rec = postOrder(t, h, "", orderBody("BUY", "MARKET", "", 25))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if res.Status != string(domain.StatusFilled) {
		t.Errorf("expected FILLED, got %s", res.Status)
	}
	if len(res.Trades) != 1 || res.Trades[0].Price != "10" {
		t.Errorf("expected one trade at the resting price, got %+v", res.Trades)
	}
}

func TestServer_PlaceOrderValidation(t *testing.T) {
	srv, _ := startGateway(t, "")
	h := srv.Routes()

	t.Run("Malformed Body", func(t *testing.T) {
		rec := postOrder(t, h, "", "{not json")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("Bad Trader ID", func(t *testing.T) {
		rec := postOrder(t, h, "", `{"trader_id":"nope","side":"BUY","type":"LIMIT","price":"10","volume":5}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("Zero Volume", func(t *testing.T) {
		rec := postOrder(t, h, "", orderBody("BUY", "LIMIT", "10", 0))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("Limit Without Price", func(t *testing.T) {
		rec := postOrder(t, h, "", orderBody("BUY", "LIMIT", "", 5))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("Wrong Method", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})
}

func TestServer_Auth(t *testing.T) {
	srv, _ := startGateway(t, "hunter2")
	h := srv.Routes()

	t.Run("Missing Token", func(t *testing.T) {
		rec := postOrder(t, h, "", orderBody("BUY", "LIMIT", "10", 5))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("Wrong Token", func(t *testing.T) {
		rec := postOrder(t, h, "wrong", orderBody("BUY", "LIMIT", "10", 5))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("Correct Token", func(t *testing.T) {
		rec := postOrder(t, h, "hunter2", orderBody("BUY", "LIMIT", "10", 5))
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})
}

func TestServer_Book(t *testing.T) {
	srv, _ := startGateway(t, "")
	h := srv.Routes()

	t.Run("Empty", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/book", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var resp bookResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("bad response body: %v", err)
		}
		if resp.BestBid != nil || resp.BestOffer != nil {
			t.Errorf("empty book should have no levels: %+v", resp)
		}
	})

	t.Run("After Submissions", func(t *testing.T) {
		postOrder(t, h, "", orderBody("BUY", "LIMIT", "9.50", 10))
		postOrder(t, h, "", orderBody("SELL", "LIMIT", "10.50", 15))

		req := httptest.NewRequest(http.MethodGet, "/book", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		var resp bookResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("bad response body: %v", err)
		}
		if resp.BestBid == nil || resp.BestBid.Price != "9.5" || resp.BestBid.Volume != 10 {
			t.Errorf("best bid mismatch: %+v", resp.BestBid)
		}
		if resp.BestOffer == nil || resp.BestOffer.Price != "10.5" || resp.BestOffer.Volume != 15 {
			t.Errorf("best offer mismatch: %+v", resp.BestOffer)
		}
	})
}

func TestServer_ConcurrentSubmissions(t *testing.T) {
	srv, _ := startGateway(t, "")
	h := srv.Routes()

	// Many submitters race for sequence numbers; every order must reach
	// the sequencer in reservation order or the engine halts.
	const submitters = 64
	codes := make(chan int, submitters)

	var wg sync.WaitGroup
	for i := 0; i < submitters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec := postOrder(t, h, "", orderBody("BUY", "LIMIT", "10.00", 1))
			codes <- rec.Code
		}()
	}
	wg.Wait()
	close(codes)

	for code := range codes {
		if code != http.StatusOK {
			t.Fatalf("concurrent submission failed with status %d", code)
		}
	}
}

func TestServer_OnResultMetrics(t *testing.T) {
	srv, _ := startGateway(t, "")

	result := func(status domain.OrderStatus) *domain.MatchResult {
		return &domain.MatchResult{OrderID: uuid.New(), Side: domain.SideBuy, OrderType: domain.OrderTypeMarket, Status: status}
	}

	infra.GlobalMetrics.Reset()
	srv.OnResult(result(domain.StatusAllRejected), book.TopOfBook{})
	srv.OnResult(result(domain.StatusPartialRejection), book.TopOfBook{})
	srv.OnResult(result(domain.StatusFilled), book.TopOfBook{})

	snap := infra.GlobalMetrics.Snapshot()
	if snap.OrdersRejected != 2 {
		t.Errorf("full and partial rejections should both count, got %d", snap.OrdersRejected)
	}
	if snap.OrdersFilled != 1 {
		t.Errorf("expected 1 fill, got %d", snap.OrdersFilled)
	}
}

// fakeJournal backs the read-only endpoints in tests.
type fakeJournal struct {
	trades  []domain.TradeRecord
	results map[string]*domain.MatchRecord
}

func (f *fakeJournal) RecentTrades(limit int) ([]domain.TradeRecord, error) {
	if limit > len(f.trades) {
		limit = len(f.trades)
	}
	return f.trades[:limit], nil
}

func (f *fakeJournal) ResultFor(orderID string) (*domain.MatchRecord, error) {
	return f.results[orderID], nil
}

func TestServer_OrderLookup(t *testing.T) {
	orderID := uuid.New()
	journal := &fakeJournal{results: map[string]*domain.MatchRecord{
		orderID.String(): {OrderID: orderID.String(), Status: string(domain.StatusFilled), FilledVolume: 25},
	}}
	var nextSeq uint64
	srv := NewServer(nil, &nextSeq, journal, "", "*")
	h := srv.Routes()

	get := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	t.Run("Known Order", func(t *testing.T) {
		rec := get("/orders/" + orderID.String())
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		var got domain.MatchRecord
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("bad response body: %v", err)
		}
		if got.Status != string(domain.StatusFilled) || got.FilledVolume != 25 {
			t.Errorf("result mismatch: %+v", got)
		}
	})

	t.Run("Unknown Order", func(t *testing.T) {
		if rec := get("/orders/" + uuid.NewString()); rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("Malformed ID", func(t *testing.T) {
		if rec := get("/orders/not-a-uuid"); rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("Journal Disabled", func(t *testing.T) {
		bare, _ := startGateway(t, "")
		rec := httptest.NewRecorder()
		bare.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/"+orderID.String(), nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404 with journal disabled, got %d", rec.Code)
		}
	})
}

func TestServer_TradesWithoutJournal(t *testing.T) {
	srv, _ := startGateway(t, "")
	h := srv.Routes()

	req := httptest.NewRequest(http.MethodGet, "/trades", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 with journal disabled, got %d", rec.Code)
	}
}

func TestServer_CORSPreflight(t *testing.T) {
	srv, _ := startGateway(t, "")
	h := srv.Routes()

	req := httptest.NewRequest(http.MethodOptions, "/orders", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 for preflight, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS origin header")
	}
}
