package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/catalog"
	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/model"
	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/state"
	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/store"
	"github.com/nico-arroyo/inbound-carrier-sales-demo/internal/testutil"
)

type fakeVerifier struct {
	resp model.CarrierVerifyResponse
	err  error
}

func (f fakeVerifier) VerifyMC(ctx context.Context, mc string) (model.CarrierVerifyResponse, error) {
	return f.resp, f.err
}

// countingStore counts successful upserts and can be told to fail them.
type countingStore struct {
	store.RecordStore

	mu      sync.Mutex
	upserts int
	fail    error
}

func (c *countingStore) Upsert(ctx context.Context, rec model.CallRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail != nil {
		return c.fail
	}
	c.upserts++
	return c.RecordStore.Upsert(ctx, rec)
}

func (c *countingStore) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.upserts
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]model.Load{
		{LoadID: "L-1001", Origin: "Chicago, IL", Destination: "Dallas, TX", EquipmentType: "Dry Van", LoadboardRate: 1000},
		{LoadID: "L-1002", Origin: "Chicago, IL", Destination: "Dallas, TX", EquipmentType: "Dry Van", LoadboardRate: 2000},
		{LoadID: "L-1003", Origin: "Chicago, IL", Destination: "Denver, CO", EquipmentType: "Reefer", LoadboardRate: 1500},
		{LoadID: "L-1004", Origin: "Atlanta, GA", Destination: "Dallas, TX", EquipmentType: "Dry Van", LoadboardRate: 1200},
	})
	testutil.AssertNoError(t, err)
	return cat
}

func eligibleCarrier() fakeVerifier {
	name := "ACME TRUCKING"
	return fakeVerifier{resp: model.CarrierVerifyResponse{
		Verified: true,
		Eligible: true,
		Reason:   model.CarrierReasonEligible,
		Carrier:  model.CarrierInfo{MCNumber: "123456", LegalName: &name},
	}}
}

func newTestService(t *testing.T, verifier CarrierVerifier) (*Service, *state.Store, *countingStore) {
	t.Helper()
	st := state.New()
	records := &countingStore{RecordStore: store.NewMemoryStore()}
	return New(st, testCatalog(t), verifier, records, nil), st, records
}

func TestCallStarted(t *testing.T) {
	svc, st, _ := newTestService(t, eligibleCarrier())
	ctx := context.Background()

	ack, err := svc.CallStarted(ctx, model.CallStartedEvent{CallID: "call-1", FromNumber: "+15550100", Metadata: map[string]any{"campaign": "inbound"}})
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, ack.OK && !ack.Idempotent, "first ack = %+v", ack)

	ack, err = svc.CallStarted(ctx, model.CallStartedEvent{CallID: "call-1", FromNumber: "+15559999"})
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, ack.Idempotent, "second start should be idempotent")

	call, ok := st.Call("call-1")
	testutil.AssertTrue(t, ok, "call missing")
	testutil.AssertEqual(t, "+15550100", call.FromNumber)
	testutil.AssertEqual(t, "inbound", call.Metadata["campaign"])
	testutil.AssertEqual(t, int64(1), st.Metrics().CallsStarted)

	_, err = svc.CallStarted(ctx, model.CallStartedEvent{CallID: "  "})
	testutil.AssertErrorIs(t, err, model.ErrValidation)
}

func TestCallEndedValidation(t *testing.T) {
	svc, st, _ := newTestService(t, eligibleCarrier())

	tests := []struct {
		name string
		ev   model.CallEndedEvent
	}{
		{name: "missing call id", ev: model.CallEndedEvent{Outcome: "accepted"}},
		{name: "unknown outcome", ev: model.CallEndedEvent{CallID: "c", Outcome: "maybe"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CallEnded(context.Background(), tt.ev)
			testutil.AssertErrorIs(t, err, model.ErrValidation)
		})
	}
	testutil.AssertEqual(t, int64(0), st.Metrics().CallsStarted)
}

// A call-ended signal delivered twice is applied once.
func TestCallEndedDuplicateDelivery(t *testing.T) {
	svc, st, records := newTestService(t, eligibleCarrier())
	ctx := context.Background()
	ev := model.CallEndedEvent{CallID: "call-d", Outcome: "declined", Summary: map[string]any{"sentiment": "Neutral"}}

	first, err := svc.CallEnded(ctx, ev)
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, first.OK && !first.Idempotent, "first = %+v", first)

	second, err := svc.CallEnded(ctx, ev)
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, second.OK && second.Idempotent, "second = %+v", second)

	testutil.AssertEqual(t, 1, records.count())
	m := st.Metrics()
	testutil.AssertEqual(t, int64(1), m.CallsStarted)
	testutil.AssertEqual(t, int64(1), m.CallsEnded)

	rec, err := records.Get(ctx, "call-d")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, model.OutcomeDeclined, rec.Outcome)
	testutil.AssertTrue(t, rec.LoadID == nil && rec.Rounds == nil, "no negotiation, got %+v", rec)
}

func TestCallEndedPersistenceFailureKeepsCallOpen(t *testing.T) {
	svc, st, records := newTestService(t, eligibleCarrier())
	ctx := context.Background()
	ev := model.CallEndedEvent{CallID: "call-p", Outcome: "other"}

	records.fail = fmt.Errorf("mongo down")
	_, err := svc.CallEnded(ctx, ev)
	testutil.AssertTrue(t, err != nil, "expected persistence error")

	call, _ := st.Call("call-p")
	testutil.AssertTrue(t, !call.Ended(), "call must stay open after a failed write")
	testutil.AssertEqual(t, int64(0), st.Metrics().CallsEnded)

	records.mu.Lock()
	records.fail = nil
	records.mu.Unlock()

	ack, err := svc.CallEnded(ctx, ev)
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, !ack.Idempotent, "retry should apply")
	testutil.AssertEqual(t, int64(1), st.Metrics().CallsStarted)
	testutil.AssertEqual(t, int64(1), st.Metrics().CallsEnded)
}

func TestCallEndedUnconfiguredStore(t *testing.T) {
	svc := New(state.New(), testCatalog(t), eligibleCarrier(), store.UnconfiguredStore{}, nil)
	_, err := svc.CallEnded(context.Background(), model.CallEndedEvent{CallID: "c", Outcome: "other"})
	testutil.AssertErrorIs(t, err, model.ErrUnavailable)
}

func TestCallEndedConcurrentDeliveries(t *testing.T) {
	svc, st, records := newTestService(t, eligibleCarrier())
	ctx := context.Background()

	const n = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ack, err := svc.CallEnded(ctx, model.CallEndedEvent{CallID: "call-c", Outcome: "dropped"})
			if err != nil {
				t.Errorf("CallEnded: %v", err)
				return
			}
			if !ack.Idempotent {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	testutil.AssertEqual(t, 1, applied)
	testutil.AssertEqual(t, 1, records.count())
	m := st.Metrics()
	testutil.AssertEqual(t, int64(1), m.CallsStarted)
	testutil.AssertEqual(t, int64(1), m.CallsEnded)
}

// gatedStore holds the first Upsert until release is closed.
type gatedStore struct {
	countingStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedStore) Upsert(ctx context.Context, rec model.CallRecord) error {
	first := false
	g.once.Do(func() { first = true })
	if first {
		close(g.entered)
		<-g.release
	}
	return g.countingStore.Upsert(ctx, rec)
}

// A delivery arriving while another one is persisting writes nothing, so the
// stored record is the one committed to the call.
func TestCallEndedDeliveryDuringPersist(t *testing.T) {
	st := state.New()
	records := &gatedStore{
		countingStore: countingStore{RecordStore: store.NewMemoryStore()},
		entered:       make(chan struct{}),
		release:       make(chan struct{}),
	}
	svc := New(st, testCatalog(t), eligibleCarrier(), records, nil)
	ctx := context.Background()

	done := make(chan model.CallAck, 1)
	go func() {
		ack, err := svc.CallEnded(ctx, model.CallEndedEvent{
			CallID: "call-g", Outcome: "other", Summary: map[string]any{"sentiment": "Positive"},
		})
		if err != nil {
			t.Errorf("first CallEnded: %v", err)
		}
		done <- ack
	}()

	select {
	case <-records.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first delivery never reached the record store")
	}

	ack, err := svc.CallEnded(ctx, model.CallEndedEvent{
		CallID: "call-g", Outcome: "other", Summary: map[string]any{"sentiment": "Negative"},
	})
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, ack.Idempotent, "delivery during persist should be idempotent")

	close(records.release)
	first := <-done
	testutil.AssertTrue(t, !first.Idempotent, "first delivery should apply")

	testutil.AssertEqual(t, 1, records.count())
	rec, err := records.Get(ctx, "call-g")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, "Positive", *rec.Sentiment)

	call, _ := st.Call("call-g")
	committed := call.Summary[model.DashboardSummaryKey].(model.CallRecord)
	testutil.AssertEqual(t, "Positive", *committed.Sentiment)
	testutil.AssertEqual(t, "Positive", call.Summary["sentiment"])
	testutil.AssertEqual(t, int64(1), st.Metrics().CallsEnded)
}

// Full call: verify, search, negotiate to agreement, end the call.
func TestCallFlowAccepted(t *testing.T) {
	svc, st, records := newTestService(t, eligibleCarrier())
	ctx := context.Background()

	_, err := svc.CallStarted(ctx, model.CallStartedEvent{CallID: "call-1"})
	testutil.AssertNoError(t, err)

	verify, err := svc.VerifyCarrier(ctx, model.CarrierVerifyRequest{MCNumber: "MC123456", CallID: "call-1"})
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, verify.Eligible, "carrier should be eligible")

	search := svc.SearchLoads(ctx, model.LoadSearchRequest{CallID: "call-1", Origin: "chicago,  il", Destination: "Dallas, TX"})
	testutil.AssertEqual(t, 2, len(search.Matches))
	testutil.AssertEqual(t, "L-1002", search.Matches[0].LoadID)

	step, err := svc.NegotiationStep(ctx, model.NegotiationStepRequest{CallID: "call-1", LoadID: "L-1001", MCNumber: "123456", CarrierOffer: 1200})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, model.DecisionCounter, step.Decision)
	testutil.AssertEqual(t, 1050.0, *step.CounterOffer)

	step, err = svc.NegotiationStep(ctx, model.NegotiationStepRequest{CallID: "call-1", LoadID: "L-1001", CarrierOffer: 1050})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, model.NegotiationAccepted, step.Status)
	testutil.AssertTrue(t, step.TransferToRep, "accepted step must transfer")

	_, err = svc.CallEnded(ctx, model.CallEndedEvent{
		CallID:  "call-1",
		Outcome: "accepted",
		Summary: map[string]any{"sentiment": "Positive", "summary": "Booked L-1001"},
	})
	testutil.AssertNoError(t, err)

	rec, err := records.Get(ctx, "call-1")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, model.OutcomeAcceptedTransferred, rec.Outcome)
	testutil.AssertTrue(t, rec.Agreed && rec.TransferToRep, "agreed/transfer = %v/%v", rec.Agreed, rec.TransferToRep)
	testutil.AssertEqual(t, 1050.0, *rec.FinalOffer)
	testutil.AssertEqual(t, 1200.0, *rec.CarrierFirstOffer)
	testutil.AssertEqual(t, 1050.0, *rec.CarrierLastOffer)
	testutil.AssertEqual(t, 2, *rec.Rounds)
	testutil.AssertEqual(t, true, *rec.Verified)
	testutil.AssertEqual(t, "Booked L-1001", *rec.SummaryText)

	call, _ := st.Call("call-1")
	testutil.AssertTrue(t, call.Ended(), "call should be ended")
	testutil.AssertEqual(t, "accepted", call.Outcome)
	testutil.AssertEqual(t, "Positive", call.Summary["sentiment"])
	testutil.AssertEqual(t, true, call.Summary["carrier_eligible"])
	testutil.AssertTrue(t, call.EndedAt.Equal(rec.EndedAt), "call and record end times differ")
	if _, ok := call.Summary["last_search"].(map[string]any); !ok {
		t.Errorf("last_search = %#v", call.Summary["last_search"])
	}
	if d, ok := call.Summary[model.DashboardSummaryKey].(model.CallRecord); !ok || d.CallID != "call-1" {
		t.Errorf("dashboard = %#v", call.Summary[model.DashboardSummaryKey])
	}

	detail, err := svc.GetCall(ctx, "call-1")
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, detail.CallState != nil, "live call state should be attached")
	testutil.AssertEqual(t, "Positive", detail.RawSummary["sentiment"])

	m := svc.Overview()
	testutil.AssertEqual(t, int64(1), m.NegotiationsAccepted)
	testutil.AssertEqual(t, 2.0, m.AverageRoundsCompleted)
}

func TestVerifyCarrierUpstreamError(t *testing.T) {
	svc, st, _ := newTestService(t, fakeVerifier{err: fmt.Errorf("fmcsa returned 500: %w", model.ErrUpstream)})
	ctx := context.Background()
	_, _ = svc.CallStarted(ctx, model.CallStartedEvent{CallID: "call-1"})

	_, err := svc.VerifyCarrier(ctx, model.CarrierVerifyRequest{MCNumber: "1", CallID: "call-1"})
	testutil.AssertErrorIs(t, err, model.ErrUpstream)

	call, _ := st.Call("call-1")
	_, annotated := call.Summary["carrier_verified"]
	testutil.AssertTrue(t, !annotated, "failed verification must not annotate the call")
}

func TestVerifyCarrierUnknownCallIsNotCreated(t *testing.T) {
	svc, st, _ := newTestService(t, eligibleCarrier())
	_, err := svc.VerifyCarrier(context.Background(), model.CarrierVerifyRequest{MCNumber: "1", CallID: "ghost"})
	testutil.AssertNoError(t, err)
	_, ok := st.Call("ghost")
	testutil.AssertTrue(t, !ok, "verification must not create calls")
}

func TestSearchLoadsLimit(t *testing.T) {
	svc, _, _ := newTestService(t, eligibleCarrier())
	ctx := context.Background()

	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{name: "default", limit: 0, want: 3},
		{name: "explicit", limit: 2, want: 2},
		{name: "negative clamps to one", limit: -4, want: 1},
		{name: "more than available", limit: 10, want: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := svc.SearchLoads(ctx, model.LoadSearchRequest{Limit: tt.limit})
			testutil.AssertEqual(t, tt.want, len(resp.Matches))
		})
	}
}

func TestNegotiationWrappers(t *testing.T) {
	svc, _, _ := newTestService(t, eligibleCarrier())
	ctx := context.Background()

	_, err := svc.StartNegotiation(ctx, model.NegotiationStartRequest{CallID: "call-1", LoadID: "nope", CarrierInitialOffer: 1000})
	testutil.AssertErrorIs(t, err, model.ErrNotFound)

	_, err = svc.NegotiationStep(ctx, model.NegotiationStepRequest{LoadID: "nope", CarrierOffer: 1000})
	testutil.AssertErrorIs(t, err, model.ErrValidation)

	resp, err := svc.StartNegotiation(ctx, model.NegotiationStartRequest{CallID: "call-1", LoadID: "L-1001", CarrierInitialOffer: 1500})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, model.DecisionCounter, resp.Decision)
	testutil.AssertEqual(t, "call-1", resp.NegotiationID)

	resp, err = svc.CounterNegotiation(ctx, "call-1", model.NegotiationCounterRequest{CarrierOffer: 1400})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 2, resp.Round)

	resp, err = svc.DeclineNegotiation(ctx, "call-1", model.NegotiationDeclineRequest{Reason: " too low "})
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, model.NegotiationDeclined, resp.Status)

	_, err = svc.AcceptNegotiation(ctx, "call-1", model.NegotiationAcceptRequest{FinalRate: 1000})
	testutil.AssertErrorIs(t, err, model.ErrConflict)

	n, err := svc.GetNegotiation(ctx, "call-1")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, "too low", n.DeclineReason)
}

func TestDashboardAggregates(t *testing.T) {
	svc, _, records := newTestService(t, eligibleCarrier())
	ctx := context.Background()
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	seed := []model.CallRecord{
		// accepted at 950 on a 1000 load
		testutil.NewCallRecordFixture("a").EndedAt(base).Build(),
		// accepted at 1100 on a 1000 load, verification unknown
		testutil.NewCallRecordFixture("b").EndedAt(base.Add(time.Minute)).
			Offers(testutil.Ptr(1000.0), testutil.Ptr(1100.0)).Verified(nil).Build(),
		// declined, no sentiment
		testutil.NewCallRecordFixture("c").EndedAt(base.Add(2 * time.Minute)).
			Outcome(model.OutcomeDeclined).Sentiment(nil).Rounds(testutil.Ptr(1)).Build(),
		// failed verification, never negotiated
		testutil.NewCallRecordFixture("d").EndedAt(base.Add(3 * time.Minute)).
			Outcome(model.OutcomeFailedVerification).Verified(testutil.Ptr(false)).
			Rounds(nil).Offers(nil, nil).Build(),
	}
	for _, r := range seed {
		testutil.AssertNoError(t, records.RecordStore.Upsert(ctx, r))
	}

	ov, err := svc.DashboardOverview(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 4, ov.TotalCalls)
	testutil.AssertEqual(t, 0.5, ov.AcceptanceRate)
	testutil.AssertEqual(t, 0.6667, ov.VerifiedRate)
	testutil.AssertEqual(t, 0.5, ov.TransferRate)
	testutil.AssertEqual(t, 2.33, ov.AvgRounds)
	testutil.AssertEqual(t, 25.0, ov.AvgFinalVsListedDelta)

	outcomes, err := svc.OutcomeDistribution(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 2, outcomes[string(model.OutcomeAcceptedTransferred)])
	testutil.AssertEqual(t, 1, outcomes[string(model.OutcomeFailedVerification)])

	sentiment, err := svc.SentimentDistribution(ctx)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 3, sentiment["Positive"])
	testutil.AssertEqual(t, 1, sentiment["Unknown"])

	list, err := svc.ListCalls(ctx, 2, 1)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, 4, list.Total)
	testutil.AssertEqual(t, 2, list.Count)
	testutil.AssertEqual(t, "c", list.Calls[0].CallID)

	list, err = svc.ListCalls(ctx, 0, 0)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, DefaultCallsPageSize, list.Limit)

	_, err = svc.ListCalls(ctx, -1, 0)
	testutil.AssertErrorIs(t, err, model.ErrValidation)

	detail, err := svc.GetCall(ctx, "b")
	testutil.AssertNoError(t, err)
	testutil.AssertTrue(t, detail.CallState == nil, "record-only call has no live state")

	_, err = svc.GetCall(ctx, "zzz")
	testutil.AssertErrorIs(t, err, model.ErrNotFound)
}

func TestDashboardOverviewEmpty(t *testing.T) {
	svc, _, _ := newTestService(t, eligibleCarrier())
	ov, err := svc.DashboardOverview(context.Background())
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, model.DashboardOverview{}, ov)
}

func TestOverviewRoundsAverage(t *testing.T) {
	svc, _, _ := newTestService(t, eligibleCarrier())
	ctx := context.Background()

	// rounds 1, 1 and 2
	for _, id := range []string{"x", "y"} {
		_, err := svc.NegotiationStep(ctx, model.NegotiationStepRequest{CallID: id, LoadID: "L-1001", CarrierOffer: 1000})
		testutil.AssertNoError(t, err)
	}
	_, err := svc.NegotiationStep(ctx, model.NegotiationStepRequest{CallID: "z", LoadID: "L-1001", CarrierOffer: 2000})
	testutil.AssertNoError(t, err)
	_, err = svc.NegotiationStep(ctx, model.NegotiationStepRequest{CallID: "z", LoadID: "L-1001", CarrierOffer: 1100})
	testutil.AssertNoError(t, err)

	m := svc.Overview()
	testutil.AssertEqual(t, int64(3), m.NegotiationsStarted)
	testutil.AssertEqual(t, int64(3), m.NegotiationsAccepted)
	testutil.AssertEqual(t, int64(4), m.CompletedRoundsTotal)
	testutil.AssertEqual(t, 1.33, m.AverageRoundsCompleted)
	testutil.AssertEqual(t, int64(3), m.CallsStarted)
}

func TestUpstreamErrorsPassThrough(t *testing.T) {
	svc, _, _ := newTestService(t, fakeVerifier{err: errors.New("boom")})
	_, err := svc.VerifyCarrier(context.Background(), model.CarrierVerifyRequest{MCNumber: "1"})
	testutil.AssertTrue(t, err != nil && err.Error() == "boom", "err = %v", err)
}
