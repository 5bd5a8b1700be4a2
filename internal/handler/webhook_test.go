package handler

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	stripewebhook "github.com/stripe/stripe-go/v76/webhook"

	"github.com/kidsstudy/kidsstudy/internal/metrics"
	"github.com/kidsstudy/kidsstudy/internal/model"
	"github.com/kidsstudy/kidsstudy/internal/repository"
	"github.com/kidsstudy/kidsstudy/internal/webhook"
)

const webhookSecret = "whsec_handler_test"

type recordingStore struct {
	inputs []repository.MarkPaidInput
	err    error
}

func (s *recordingStore) MarkPaid(_ context.Context, in repository.MarkPaidInput) error {
	if s.err != nil {
		return s.err
	}
	s.inputs = append(s.inputs, in)
	return nil
}

func newWebhookHandler(store webhook.ProfileWriter) *WebhookHandler {
	p := webhook.NewProcessor(webhookSecret, time.Minute*5, store, discardLogger(), metrics.NewNoop())
	return NewWebhookHandler(p, time.Second, discardLogger())
}

func signPayload(secret string, payload []byte) string {
	return stripewebhook.GenerateTestSignedPayload(&stripewebhook.UnsignedPayload{
		Payload: payload,
		Secret:  secret,
	}).Header
}

func postWebhook(h *WebhookHandler, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set(webhook.SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	h.Receive(rec, req)
	return rec
}

var completedPayload = []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_1","object":"checkout.session","metadata":{"userId":"6f1c2a9e-3b4d-4e5f-8a7b-9c0d1e2f3a4b","planType":"basic"}}}}`)

func TestWebhook_Applied(t *testing.T) {
	store := &recordingStore{}
	h := newWebhookHandler(store)

	rec := postWebhook(h, completedPayload, signPayload(webhookSecret, completedPayload))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	wantJSONBody(t, rec, `{"received":true}`)
	if len(store.inputs) != 1 {
		t.Fatalf("MarkPaid calls = %d, want 1", len(store.inputs))
	}
	if store.inputs[0].PlanType != model.PlanBasic {
		t.Errorf("PlanType = %s, want %s", store.inputs[0].PlanType, model.PlanBasic)
	}
	if store.inputs[0].StripeEventID != "evt_1" {
		t.Errorf("StripeEventID = %q, want evt_1", store.inputs[0].StripeEventID)
	}
}

func TestWebhook_BadSignature(t *testing.T) {
	store := &recordingStore{}
	h := newWebhookHandler(store)

	for name, sig := range map[string]string{
		"missing": "",
		"forged":  signPayload("whsec_other", completedPayload),
	} {
		t.Run(name, func(t *testing.T) {
			rec := postWebhook(h, completedPayload, sig)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			wantJSONBody(t, rec, `{"error":"Webhook Error"}`)
		})
	}
	if len(store.inputs) != 0 {
		t.Errorf("MarkPaid called %d times for unverified deliveries", len(store.inputs))
	}
}

func TestWebhook_StoreFailure(t *testing.T) {
	h := newWebhookHandler(&recordingStore{err: errors.New("db down")})

	rec := postWebhook(h, completedPayload, signPayload(webhookSecret, completedPayload))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	wantJSONBody(t, rec, `{"error":"Error updating user profile"}`)
}

func TestWebhook_OtherEventAcknowledged(t *testing.T) {
	store := &recordingStore{}
	h := newWebhookHandler(store)
	payload := []byte(`{"id":"evt_2","object":"event","type":"invoice.paid","data":{"object":{}}}`)

	rec := postWebhook(h, payload, signPayload(webhookSecret, payload))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	wantJSONBody(t, rec, `{"received":true}`)
	if len(store.inputs) != 0 {
		t.Errorf("MarkPaid called %d times for an ignored event", len(store.inputs))
	}
}
