package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"match_go/internal/book"
	"match_go/internal/domain"
	"match_go/internal/event"
)

// Sequencer is the single-threaded order processor. All submissions funnel
// through its inbox and are matched strictly one at a time, which is the
// serialization discipline price-time priority depends on: no second order
// ever observes the book mid-match.
type Sequencer struct {
	inbox   chan event.Event
	engine  *MatchingEngine
	nextSeq uint64
	journal domain.TradeJournal

	// Boundary: notifies the gateway (or other callers) of each outcome
	// together with the post-match top of book.
	onResult func(*domain.MatchResult, book.TopOfBook)
}

// NewSequencer creates a sequencer over the given engine. journal may be
// nil to disable persistence; onResult may be nil.
func NewSequencer(inboxSize int, eng *MatchingEngine, journal domain.TradeJournal, onResult func(*domain.MatchResult, book.TopOfBook)) *Sequencer {
	return &Sequencer{
		inbox:    make(chan event.Event, inboxSize),
		engine:   eng,
		nextSeq:  1,
		journal:  journal,
		onResult: onResult,
	}
}

// Inbox returns the event channel. External workers send events here.
func (s *Sequencer) Inbox() chan<- event.Event {
	return s.inbox
}

// Run starts the main event loop. This MUST be run in a single goroutine.
func (s *Sequencer) Run(ctx context.Context) {
	slog.Info("Sequencer started (Single-Thread Hotpath)")

	defer func() {
		if r := recover(); r != nil {
			slog.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r))
			s.DumpState("panic_dump.json")
			// Halt after dump; a half-matched book must not keep trading.
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Sequencer stopping...")
			return
		case ev := <-s.inbox:
			s.processEvent(ev)
		}
	}
}

func (s *Sequencer) processEvent(ev event.Event) {
	// 1. Sequence Gap Check (Halt Policy)
	if ev.GetSeq() != s.nextSeq {
		panic(fmt.Sprintf("SEQUENCE_GAP_DETECTED: expected %d, got %d", s.nextSeq, ev.GetSeq()))
	}

	switch e := ev.(type) {
	case *event.OrderSubmitEvent:
		// 2. WAL-first: journal the submission before matching
		if s.journal != nil {
			rec := domain.NewSubmissionRecord(e.Seq, e.Order)
			if err := s.journal.SaveSubmission(rec); err != nil {
				panic(fmt.Sprintf("PERSISTENCE_FAILURE: %v", err))
			}
		}

		// 3. Match
		res := s.engine.PlaceOrder(e.Order)

		// 4. Journal the outcome (trades + result summary)
		if s.journal != nil {
			if err := s.journal.SaveResult(res); err != nil {
				panic(fmt.Sprintf("PERSISTENCE_FAILURE: %v", err))
			}
		}

		if e.Done != nil {
			e.Done <- res
		}
		if s.onResult != nil {
			s.onResult(res, s.engine.Book().Top())
		}
	default:
		slog.Warn("Unknown event type", slog.Any("type", ev.GetType()))
	}

	// 5. Increment Sequence
	s.nextSeq++
}

// ReplayEvent processes an event synchronously without journaling.
// Used exclusively when rebuilding the book from the journal.
func (s *Sequencer) ReplayEvent(ev event.Event) {
	// Replay must still respect sequence order
	if ev.GetSeq() != s.nextSeq {
		panic(fmt.Sprintf("REPLAY_GAP_DETECTED: expected %d, got %d", s.nextSeq, ev.GetSeq()))
	}

	switch e := ev.(type) {
	case *event.OrderSubmitEvent:
		s.engine.PlaceOrder(e.Order)
	default:
		slog.Warn("Unknown event type in replay", slog.Any("type", ev.GetType()))
	}

	s.nextSeq++
}

// ReplayJournal rebuilds book state by re-running every journaled
// submission in sequence order. Must be called before Run.
func (s *Sequencer) ReplayJournal() error {
	if s.journal == nil {
		return nil
	}

	recs, err := s.journal.Submissions()
	if err != nil {
		return fmt.Errorf("load journal: %w", err)
	}

	for i := range recs {
		order, err := recs[i].ToOrder()
		if err != nil {
			return fmt.Errorf("journal seq %d: %w", recs[i].Seq, err)
		}
		s.ReplayEvent(&event.OrderSubmitEvent{
			BaseEvent: event.BaseEvent{Seq: recs[i].Seq},
			Order:     order,
		})
	}

	if len(recs) > 0 {
		slog.Info("Journal replayed", slog.Int("submissions", len(recs)), slog.Uint64("next_seq", s.nextSeq))
	}
	return nil
}

// NextSeq returns the sequence number the next event must carry. Read it
// after replay, before Run, to seed the ingress counter.
func (s *Sequencer) NextSeq() uint64 {
	return s.nextSeq
}

// DumpState writes the book and sequence state to a file (for post-mortem).
func (s *Sequencer) DumpState(filename string) {
	slog.Info("Dumping internal state...", slog.String("file", filename))

	b := s.engine.Book()
	data := struct {
		NextSeq uint64         `json:"next_seq"`
		Bids    []domain.Order `json:"bids"`
		Offers  []domain.Order `json:"offers"`
	}{
		NextSeq: s.nextSeq,
		Bids:    b.SideOrders(domain.SideBuy),
		Offers:  b.SideOrders(domain.SideSell),
	}

	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	if err := os.WriteFile(filename, out, 0644); err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}
