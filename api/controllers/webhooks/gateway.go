package webhooks

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/angelmondragon/bazaar-backend/api/responses"
	gatewaywebhook "github.com/angelmondragon/bazaar-backend/internal/webhooks/gateway"
	pkgerrors "github.com/angelmondragon/bazaar-backend/pkg/errors"
	"github.com/angelmondragon/bazaar-backend/pkg/gateway"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
)

const (
	signatureHeader = "X-Razorpay-Signature"
	eventIDHeader   = "X-Razorpay-Event-Id"
	guardConsumer   = "gateway-webhook"
	maxWebhookBody  = 1 << 20
)

type GatewayWebhookService interface {
	HandleEvent(ctx context.Context, event *gatewaywebhook.Event) error
}

// Guard remembers processed event ids so gateway retries are acknowledged once.
type Guard interface {
	CheckAndMarkProcessed(ctx context.Context, consumer, eventID string) (bool, error)
	Delete(ctx context.Context, consumer, eventID string) error
}

// GatewayWebhook handles payment and refund notifications from the gateway.
func GatewayWebhook(svc GatewayWebhookService, secret string, guard Guard, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if secret == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook secret not configured"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := strings.TrimSpace(r.Header.Get(signatureHeader))
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeSignatureInvalid, "webhook signature missing"))
			return
		}
		if !gateway.VerifyWebhookSignature(payload, signature, secret) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeSignatureInvalid, "webhook signature mismatch"))
			return
		}

		event, err := gatewaywebhook.ParseEvent(payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		// Redeliveries carry the same event id; the signature stands in when the header is absent.
		eventID := strings.TrimSpace(r.Header.Get(eventIDHeader))
		if eventID == "" {
			eventID = signature
		}
		if logg != nil {
			ctx = logg.WithFields(ctx, map[string]any{"gateway_event": event.Event, "gateway_event_id": eventID})
		}

		alreadyProcessed, err := guard.CheckAndMarkProcessed(ctx, guardConsumer, eventID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadyProcessed {
			responses.WriteSuccess(w, nil)
			return
		}

		if err := svc.HandleEvent(ctx, event); err != nil {
			if delErr := guard.Delete(ctx, guardConsumer, eventID); delErr != nil && logg != nil {
				logg.Error(ctx, "gateway_webhook.guard_release_failed", delErr)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, "gateway_webhook.processed")
		}
		responses.WriteSuccess(w, nil)
	}
}
