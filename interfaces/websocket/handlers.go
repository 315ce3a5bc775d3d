// Package websocket holds the API Gateway WebSocket handlers that attach
// clients to views and push view events to them.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi"
	apigwtypes "github.com/aws/aws-sdk-go-v2/service/apigatewaymanagementapi/types"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"devrank/application/ports"
	domainevents "devrank/domain/events"
	"devrank/pkg/auth"
)

// PostAPI is the subset of the API Gateway management client used to push
type PostAPI interface {
	PostToConnection(ctx context.Context, params *apigatewaymanagementapi.PostToConnectionInput, optFns ...func(*apigatewaymanagementapi.Options)) (*apigatewaymanagementapi.PostToConnectionOutput, error)
}

// TokenValidator validates bearer tokens
type TokenValidator interface {
	ValidateToken(token string) (*auth.Claims, error)
}

// Message is the frame pushed to a client
type Message struct {
	Type      string          `json:"type"`
	ViewID    string          `json:"viewId"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// forwarded lists the event types clients are told about
var forwarded = map[string]bool{
	domainevents.TypeRenderCompleted: true,
	domainevents.TypeNoticeChanged:   true,
	domainevents.TypeViewClosed:      true,
}

// ConnectHandler registers a connection against the view named by the
// viewId query parameter.
type ConnectHandler struct {
	store     ports.ConnectionStore
	validator TokenValidator
	logger    *zap.Logger
}

// NewConnectHandler creates a connect handler. A nil validator accepts
// every client.
func NewConnectHandler(store ports.ConnectionStore, validator TokenValidator, logger *zap.Logger) *ConnectHandler {
	return &ConnectHandler{store: store, validator: validator, logger: logger}
}

// Handle processes a $connect request
func (h *ConnectHandler) Handle(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	connID := req.RequestContext.ConnectionID
	viewID := req.QueryStringParameters["viewId"]
	if viewID == "" {
		return respond(http.StatusBadRequest, "viewId is required"), nil
	}

	if h.validator != nil {
		token := req.QueryStringParameters["token"]
		if token == "" {
			token = bearer(req.Headers)
		}
		if token == "" {
			return respond(http.StatusUnauthorized, "unauthorized"), nil
		}
		if _, err := h.validator.ValidateToken(token); err != nil {
			h.logger.Warn("WebSocket authentication failed",
				zap.String("connectionID", connID),
				zap.Error(err),
			)
			return respond(http.StatusUnauthorized, "unauthorized"), nil
		}
	}

	if err := h.store.Save(ctx, viewID, connID); err != nil {
		h.logger.Error("Failed to store connection",
			zap.String("connectionID", connID),
			zap.String("viewID", viewID),
			zap.Error(err),
		)
		return respond(http.StatusInternalServerError, "internal server error"), nil
	}

	h.logger.Info("WebSocket connected",
		zap.String("connectionID", connID),
		zap.String("viewID", viewID),
	)
	return respond(http.StatusOK, "connected"), nil
}

// DisconnectHandler forgets a connection
type DisconnectHandler struct {
	store  ports.ConnectionStore
	logger *zap.Logger
}

// NewDisconnectHandler creates a disconnect handler
func NewDisconnectHandler(store ports.ConnectionStore, logger *zap.Logger) *DisconnectHandler {
	return &DisconnectHandler{store: store, logger: logger}
}

// Handle processes a $disconnect request
func (h *DisconnectHandler) Handle(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	connID := req.RequestContext.ConnectionID
	if err := h.store.Delete(ctx, connID); err != nil {
		h.logger.Error("Failed to remove connection",
			zap.String("connectionID", connID),
			zap.Error(err),
		)
		return respond(http.StatusInternalServerError, "internal server error"), nil
	}
	h.logger.Info("WebSocket disconnected", zap.String("connectionID", connID))
	return respond(http.StatusOK, "disconnected"), nil
}

// Forwarder pushes view events arriving from EventBridge to the
// connections watching the view.
type Forwarder struct {
	store  ports.ConnectionStore
	client PostAPI
	logger *zap.Logger
}

// NewForwarder creates a forwarder
func NewForwarder(store ports.ConnectionStore, client PostAPI, logger *zap.Logger) *Forwarder {
	return &Forwarder{store: store, client: client, logger: logger}
}

// Handle forwards one EventBridge event. Events of other types are ignored.
func (f *Forwarder) Handle(ctx context.Context, ev events.CloudWatchEvent) error {
	if !forwarded[ev.DetailType] {
		f.logger.Debug("Ignoring event", zap.String("eventType", ev.DetailType))
		return nil
	}

	var base domainevents.BaseEvent
	if err := json.Unmarshal(ev.Detail, &base); err != nil {
		return fmt.Errorf("failed to parse event detail: %w", err)
	}
	if base.AggregateID == "" {
		return fmt.Errorf("event %s has no view id", ev.DetailType)
	}

	payload, err := json.Marshal(Message{
		Type:      ev.DetailType,
		ViewID:    base.AggregateID,
		Timestamp: ev.Time.Unix(),
		Data:      json.RawMessage(ev.Detail),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	connIDs, err := f.store.ListByView(ctx, base.AggregateID)
	if err != nil {
		return fmt.Errorf("failed to list connections: %w", err)
	}

	sent, failed := 0, 0
	for _, connID := range connIDs {
		if err := f.send(ctx, connID, payload); err != nil {
			f.logger.Warn("Failed to send to connection",
				zap.String("connectionID", connID),
				zap.Error(err),
			)
			failed++
			continue
		}
		sent++
	}

	f.logger.Debug("Event forwarded",
		zap.String("eventType", ev.DetailType),
		zap.String("viewID", base.AggregateID),
		zap.Int("sent", sent),
		zap.Int("failed", failed),
	)
	if failed > 0 && sent == 0 {
		return fmt.Errorf("all %d sends failed", failed)
	}
	return nil
}

// send posts to one connection; gone connections are removed and not
// counted as failures.
func (f *Forwarder) send(ctx context.Context, connID string, payload []byte) error {
	_, err := f.client.PostToConnection(ctx, &apigatewaymanagementapi.PostToConnectionInput{
		ConnectionId: aws.String(connID),
		Data:         payload,
	})
	if err == nil {
		return nil
	}

	var gone *apigwtypes.GoneException
	if !errors.As(err, &gone) {
		return err
	}
	if delErr := f.store.Delete(ctx, connID); delErr != nil {
		f.logger.Warn("Failed to remove stale connection",
			zap.String("connectionID", connID),
			zap.Error(delErr),
		)
	}
	return nil
}

func bearer(headers map[string]string) string {
	for k, v := range headers {
		if !strings.EqualFold(k, "Authorization") {
			continue
		}
		scheme, token, ok := strings.Cut(v, " ")
		if ok && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(token)
		}
	}
	return ""
}

func respond(status int, message string) events.APIGatewayProxyResponse {
	body, _ := json.Marshal(map[string]string{"message": message})
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Body:       string(body),
	}
}
