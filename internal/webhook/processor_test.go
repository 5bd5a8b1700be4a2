package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/kidsstudy/kidsstudy/internal/cache"
	"github.com/kidsstudy/kidsstudy/internal/metrics"
	"github.com/kidsstudy/kidsstudy/internal/model"
	"github.com/kidsstudy/kidsstudy/internal/repository"
	"github.com/kidsstudy/kidsstudy/internal/testutil"
)

const (
	testSecret = "whsec_processor_test"
	// u1 is the user of the canonical checkout scenario.
	u1 = "6f1c2a9e-3b4d-4e5f-8a7b-9c0d1e2f3a4b"
)

type fakeStore struct {
	mu       sync.Mutex
	profiles map[string]*model.Profile
	calls    int
	err      error
}

func newFakeStore(ids ...string) *fakeStore {
	s := &fakeStore{profiles: make(map[string]*model.Profile)}
	for _, id := range ids {
		s.profiles[id] = &model.Profile{UserID: id, TrialEndsAt: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}
	}
	return s
}

func (s *fakeStore) MarkPaid(_ context.Context, in repository.MarkPaidInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return s.err
	}
	p, ok := s.profiles[in.UserID]
	if !ok {
		return repository.ErrProfileNotFound
	}
	plan := in.PlanType
	now := time.Now()
	p.IsPaid = true
	p.PlanType = &plan
	p.UpdatedAt = &now
	return nil
}

func (s *fakeStore) profile(id string) *model.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profiles[id]
}

func eventPayload(id, eventType string, metadata map[string]string) []byte {
	meta := "{"
	first := true
	for k, v := range metadata {
		if !first {
			meta += ","
		}
		meta += fmt.Sprintf("%q:%q", k, v)
		first = false
	}
	meta += "}"
	return []byte(fmt.Sprintf(`{"id":%q,"object":"event","type":%q,"data":{"object":{"id":"cs_test_1","object":"checkout.session","metadata":%s}}}`, id, eventType, meta))
}

func newTestProcessor(t *testing.T, store ProfileWriter, opts ...ProcessorOption) (*Processor, *metrics.InMemoryRecorder) {
	t.Helper()
	recorder := metrics.NewInMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewProcessor(testSecret, DefaultReplayWindow, store, logger, recorder, opts...), recorder
}

func signed(payload []byte) string {
	return signAt(testSecret, time.Now(), payload)
}

func mustProcess(t *testing.T, p *Processor, payload []byte) *Result {
	t.Helper()
	res, err := p.Process(context.Background(), payload, signed(payload))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	return res
}

func TestProcessor_CheckoutCompleted_BasicPlan(t *testing.T) {
	store := newFakeStore(u1)
	p, recorder := newTestProcessor(t, store)

	payload := eventPayload("evt_u1", model.EventTypeCheckoutCompleted, map[string]string{"userId": u1, "planType": "basic"})
	if res := mustProcess(t, p, payload); res.Outcome != OutcomeApplied {
		t.Fatalf("outcome = %s, want %s", res.Outcome, OutcomeApplied)
	}

	got := store.profile(u1)
	if !got.IsPaid {
		t.Error("profile should be paid")
	}
	if got.PlanType == nil || *got.PlanType != model.PlanBasic {
		t.Errorf("PlanType = %v, want basic", got.PlanType)
	}
	if got.UpdatedAt == nil {
		t.Error("UpdatedAt should be set")
	}
	if n := recorder.Snapshot().ProfilesMarkedPaid; n != 1 {
		t.Errorf("ProfilesMarkedPaid = %d, want 1", n)
	}
}

func TestProcessor_PlanNormalization(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]string
		want     model.PlanType
	}{
		{"missing plan", map[string]string{"userId": u1}, model.PlanPro},
		{"unknown plan", map[string]string{"userId": u1, "planType": "platinum"}, model.PlanPro},
		{"pro plan", map[string]string{"userId": u1, "planType": "pro"}, model.PlanPro},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore(u1)
			p, _ := newTestProcessor(t, store)

			mustProcess(t, p, eventPayload("evt_plan", model.EventTypeCheckoutCompleted, tt.metadata))

			got := store.profile(u1)
			if got.PlanType == nil || *got.PlanType != tt.want {
				t.Errorf("PlanType = %v, want %s", got.PlanType, tt.want)
			}
		})
	}
}

func TestProcessor_ForgedSignatureNeverMutates(t *testing.T) {
	payload := eventPayload("evt_forged", model.EventTypeCheckoutCompleted, map[string]string{"userId": u1, "planType": "pro"})
	now := time.Now()

	headers := map[string]string{
		"missing":       "",
		"wrong secret":  signAt("whsec_attacker", now, payload),
		"stale":         signAt(testSecret, now.Add(-time.Hour), payload),
		"garbage":       "t=abc,v1=zz",
		"truncated sig": fmt.Sprintf("t=%d,v1=%s", now.Unix(), v1(testSecret, now, payload)[:32]),
	}

	for name, header := range headers {
		t.Run(name, func(t *testing.T) {
			store := newFakeStore(u1)
			p, recorder := newTestProcessor(t, store)

			res, err := p.Process(context.Background(), payload, header)
			if err == nil || res != nil {
				t.Fatalf("Process() = %v, %v; want rejection", res, err)
			}
			if !IsVerificationError(err) {
				t.Errorf("IsVerificationError(%v) = false", err)
			}
			if store.calls != 0 || store.profile(u1).IsPaid {
				t.Error("a rejected delivery must not touch the store")
			}
			if n := recorder.Snapshot().WebhooksRejected["signature"]; n != 1 {
				t.Errorf("WebhooksRejected[signature] = %d, want 1", n)
			}
		})
	}
}

func TestProcessor_MalformedPayload(t *testing.T) {
	store := newFakeStore(u1)
	p, recorder := newTestProcessor(t, store)

	payload := []byte(`{"not":"an event"`)
	_, err := p.Process(context.Background(), payload, signed(payload))
	if !errors.Is(err, ErrMalformedEvent) {
		t.Fatalf("Process() error = %v, want ErrMalformedEvent", err)
	}
	if store.calls != 0 {
		t.Error("store should not be called")
	}
	if n := recorder.Snapshot().WebhooksRejected["payload"]; n != 1 {
		t.Errorf("WebhooksRejected[payload] = %d, want 1", n)
	}
}

func TestProcessor_AcknowledgedWithoutMutation(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    Outcome
	}{
		{
			name:    "other event type",
			payload: eventPayload("evt_other", "payment_intent.succeeded", map[string]string{"userId": u1}),
			want:    OutcomeIgnored,
		},
		{
			name:    "missing userId",
			payload: eventPayload("evt_nouser", model.EventTypeCheckoutCompleted, map[string]string{"planType": "basic"}),
			want:    OutcomeMissingUser,
		},
		{
			name:    "malformed userId",
			payload: eventPayload("evt_baduser", model.EventTypeCheckoutCompleted, map[string]string{"userId": "u1"}),
			want:    OutcomeUnknownUser,
		},
		{
			name:    "urn form userId",
			payload: eventPayload("evt_urn", model.EventTypeCheckoutCompleted, map[string]string{"userId": "urn:uuid:" + u1}),
			want:    OutcomeUnknownUser,
		},
		{
			name:    "braced userId",
			payload: eventPayload("evt_brace", model.EventTypeCheckoutCompleted, map[string]string{"userId": "{" + u1 + "}"}),
			want:    OutcomeUnknownUser,
		},
		{
			name:    "unknown profile",
			payload: eventPayload("evt_ghost", model.EventTypeCheckoutCompleted, map[string]string{"userId": "0e7a8b1c-0000-4000-8000-000000000000"}),
			want:    OutcomeUnknownUser,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore(u1)
			p, _ := newTestProcessor(t, store)

			if res := mustProcess(t, p, tt.payload); res.Outcome != tt.want {
				t.Errorf("outcome = %s, want %s", res.Outcome, tt.want)
			}
			if store.profile(u1).IsPaid {
				t.Error("profile must stay unpaid")
			}
		})
	}
}

func TestProcessor_NonCanonicalUserIDSkipsStore(t *testing.T) {
	store := newFakeStore(u1)
	p, _ := newTestProcessor(t, store)

	mustProcess(t, p, eventPayload("evt_urn", model.EventTypeCheckoutCompleted, map[string]string{"userId": "urn:uuid:" + u1}))

	if store.calls != 0 {
		t.Errorf("store calls = %d, want 0", store.calls)
	}
}

func TestProcessor_StoreFailure(t *testing.T) {
	_, client := testutil.NewRedis(t)
	tracker := cache.NewFromClient(client, "")

	store := newFakeStore(u1)
	store.err = errors.New("connection refused")
	p, _ := newTestProcessor(t, store, WithTracker(tracker))

	payload := eventPayload("evt_fail", model.EventTypeCheckoutCompleted, map[string]string{"userId": u1})
	_, err := p.Process(context.Background(), payload, signed(payload))
	if !errors.Is(err, ErrProfileUpdate) {
		t.Fatalf("Process() error = %v, want ErrProfileUpdate", err)
	}
	if IsVerificationError(err) {
		t.Error("store failure is not a verification error")
	}

	seen, err := tracker.IsEventDelivered(context.Background(), "evt_fail")
	if err != nil {
		t.Fatalf("IsEventDelivered() error = %v", err)
	}
	if seen {
		t.Error("failed mutation must not set the delivered marker")
	}
}

func TestProcessor_ReplaySameEndState(t *testing.T) {
	_, client := testutil.NewRedis(t)
	tracker := cache.NewFromClient(client, "")

	store := newFakeStore(u1)
	p, recorder := newTestProcessor(t, store, WithTracker(tracker))

	payload := eventPayload("evt_replay", model.EventTypeCheckoutCompleted, map[string]string{"userId": u1, "planType": "basic"})
	if res := mustProcess(t, p, payload); res.Outcome != OutcomeApplied {
		t.Fatalf("first outcome = %s, want applied", res.Outcome)
	}
	if res := mustProcess(t, p, payload); res.Outcome != OutcomeDuplicate {
		t.Fatalf("second outcome = %s, want duplicate", res.Outcome)
	}

	if store.calls != 1 {
		t.Errorf("store calls = %d, want 1", store.calls)
	}
	got := store.profile(u1)
	if !got.IsPaid || *got.PlanType != model.PlanBasic {
		t.Errorf("unexpected end state: %+v", got)
	}
	if n := recorder.Snapshot().WebhookDuplicatesSkipped; n != 1 {
		t.Errorf("WebhookDuplicatesSkipped = %d, want 1", n)
	}
}

func TestProcessor_TrackerDownFailsOpen(t *testing.T) {
	mr, client := testutil.NewRedis(t)
	tracker := cache.NewFromClient(client, "")
	mr.Close()

	store := newFakeStore(u1)
	p, _ := newTestProcessor(t, store, WithTracker(tracker))

	res := mustProcess(t, p, eventPayload("evt_nocache", model.EventTypeCheckoutCompleted, map[string]string{"userId": u1}))
	if res.Outcome != OutcomeApplied || !store.profile(u1).IsPaid {
		t.Errorf("outcome = %s, paid = %v; want applied and paid", res.Outcome, store.profile(u1).IsPaid)
	}
}
