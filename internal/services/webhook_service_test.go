package services

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/geoyang/Visitor/internal/common"
	"github.com/geoyang/Visitor/internal/models"
	"github.com/geoyang/Visitor/internal/repositories"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

const testWebhookSecret = "whsec_test"

func signedHeader(payload []byte, secret string, at time.Time) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: payload, Secret: secret, Timestamp: at}).Header
}

func TestVerifyStripeSignature(t *testing.T) {
	now := time.Now()
	payload := []byte(`{"id":"evt_1"}`)
	header := signedHeader(payload, testWebhookSecret, now)

	assert.NoError(t, VerifyStripeSignature(payload, header, testWebhookSecret, 5*time.Minute))
	assert.NoError(t, VerifyStripeSignature(payload, header, testWebhookSecret, 0))

	assert.ErrorIs(t, VerifyStripeSignature(payload, "", testWebhookSecret, 0), ErrMissingSignature)
	assert.ErrorIs(t, VerifyStripeSignature(payload, header, "other", 0), ErrInvalidSignature)
	assert.ErrorIs(t, VerifyStripeSignature([]byte(`{"id":"evt_2"}`), header, testWebhookSecret, 0), ErrInvalidSignature)
	assert.ErrorIs(t, VerifyStripeSignature(payload, "t=abc,v1=00", testWebhookSecret, 0), ErrInvalidSignature)

	old := signedHeader(payload, testWebhookSecret, now.Add(-10*time.Minute))
	assert.ErrorIs(t, VerifyStripeSignature(payload, old, testWebhookSecret, 5*time.Minute), ErrStaleSignature)
	assert.NoError(t, VerifyStripeSignature(payload, old, testWebhookSecret, 0))
}

func newWebhookFixture(t *testing.T, secret string) (*MockSubscriptionRepository, *clockwork.FakeClock, WebhookService) {
	t.Helper()
	subs := &MockSubscriptionRepository{}
	clock := clockwork.NewFakeClockAt(time.Date(2024, 8, 1, 12, 0, 0, 0, time.UTC))
	return subs, clock, NewWebhookService(subs, secret, 5*time.Minute, clock, nil, zap.NewNop())
}

func TestWebhook_PaymentFailedMovesToPastDue(t *testing.T) {
	ctx := context.Background()
	subs, _, svc := newWebhookFixture(t, testWebhookSecret)
	sub := &models.Subscription{ID: uuid.New(), Status: models.SubscriptionStatusActive}
	subs.On("GetByStripeID", ctx, "sub_42").Return(sub, nil).Once()
	subs.On("UpdateStatus", ctx, sub.ID, models.SubscriptionStatusPastDue, (*time.Time)(nil)).Return(nil).Once()

	payload := []byte(`{"id":"evt_1","type":"invoice.payment_failed","data":{"object":{"id":"in_1","subscription":"sub_42"}}}`)
	require.NoError(t, svc.Handle(ctx, payload, signedHeader(payload, testWebhookSecret, time.Now())))
	subs.AssertExpectations(t)
}

func TestWebhook_SubscriptionDeletedStampsCanceledAt(t *testing.T) {
	ctx := context.Background()
	subs, clock, svc := newWebhookFixture(t, "")
	sub := &models.Subscription{ID: uuid.New(), Status: models.SubscriptionStatusTrialing}
	subs.On("GetByStripeID", ctx, "sub_7").Return(sub, nil).Once()
	subs.On("UpdateStatus", ctx, sub.ID, models.SubscriptionStatusCanceled, mock.MatchedBy(func(at *time.Time) bool {
		return at != nil && at.Equal(clock.Now())
	})).Return(nil).Once()

	payload := []byte(`{"id":"evt_2","type":"customer.subscription.deleted","data":{"object":{"id":"sub_7"}}}`)
	require.NoError(t, svc.Handle(ctx, payload, ""))
	subs.AssertExpectations(t)
}

func TestWebhook_BadSignatureRejected(t *testing.T) {
	_, _, svc := newWebhookFixture(t, testWebhookSecret)

	err := svc.Handle(context.Background(), []byte(`{}`), "t=1,v1=00")
	appErr, ok := common.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, "Invalid webhook signature", appErr.Detail)
}

func TestWebhook_IgnoredEvents(t *testing.T) {
	ctx := context.Background()
	subs, _, svc := newWebhookFixture(t, "")

	assert.NoError(t, svc.Handle(ctx, []byte(`{"type":"charge.refunded"}`), ""))

	subs.On("GetByStripeID", ctx, "sub_unknown").Return(nil, repositories.ErrNotFound).Once()
	assert.NoError(t, svc.Handle(ctx, []byte(`{"type":"invoice.payment_succeeded","data":{"object":{"subscription":"sub_unknown"}}}`), ""))

	canceled := &models.Subscription{ID: uuid.New(), Status: models.SubscriptionStatusCanceled}
	subs.On("GetByStripeID", ctx, "sub_dead").Return(canceled, nil).Once()
	assert.NoError(t, svc.Handle(ctx, []byte(`{"type":"invoice.payment_succeeded","data":{"object":{"subscription":"sub_dead"}}}`), ""))

	subs.AssertExpectations(t)
	subs.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestWebhook_MalformedAndStoreErrors(t *testing.T) {
	ctx := context.Background()
	subs, _, svc := newWebhookFixture(t, "")

	assert.Equal(t, http.StatusBadRequest, common.StatusOf(svc.Handle(ctx, []byte(`not json`), "")))

	subs.On("GetByStripeID", ctx, "sub_1").Return(nil, errors.New("db down")).Once()
	err := svc.Handle(ctx, []byte(`{"type":"invoice.payment_succeeded","data":{"object":{"subscription":"sub_1"}}}`), "")
	assert.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, common.StatusOf(err))
}

func TestWebhook_SubscriptionDeletedRespectsTransitions(t *testing.T) {
	ctx := context.Background()
	subs, _, svc := newWebhookFixture(t, "")
	unpaid := &models.Subscription{ID: uuid.New(), Status: models.SubscriptionStatusUnpaid}
	subs.On("GetByStripeID", ctx, "sub_unpaid").Return(unpaid, nil).Once()

	payload := []byte(`{"id":"evt_3","type":"customer.subscription.deleted","data":{"object":{"id":"sub_unpaid"}}}`)
	require.NoError(t, svc.Handle(ctx, payload, ""))
	subs.AssertExpectations(t)
	subs.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
