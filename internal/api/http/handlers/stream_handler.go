package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fieldops/dispatch/internal/domain"
	"github.com/fieldops/dispatch/internal/events"
	"github.com/fieldops/dispatch/internal/lifecycle"
	apperrors "github.com/fieldops/dispatch/pkg/errorutil"
)

// StreamHandler relays the change feed to browsers as server-sent events.
type StreamHandler struct {
	source    events.Source
	heartbeat time.Duration
	logger    *zap.Logger
}

// NewStreamHandler constructs handler.
func NewStreamHandler(source events.Source, heartbeat time.Duration, logger *zap.Logger) *StreamHandler {
	if heartbeat <= 0 {
		heartbeat = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamHandler{source: source, heartbeat: heartbeat, logger: logger}
}

type streamEnvelope struct {
	Type     events.EventType `json:"type"`
	SectorID string           `json:"sector_id"`
}

// Stream GET /v1/stream. Only changes in sectors the actor can see are sent.
func (h *StreamHandler) Stream(c *fiber.Ctx) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}
	viewer := *actor

	ctx, cancel := context.WithCancel(context.Background())
	messages, stop, err := h.source.Listen(ctx)
	if err != nil {
		cancel()
		h.logger.Warn("change feed unavailable", zap.Error(err))
		return apperrors.NewDomainError("DEPENDENCY_UNAVAILABLE", "change feed unavailable", fiber.StatusServiceUnavailable, nil)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()
		defer stop()

		ticker := time.NewTicker(h.heartbeat)
		defer ticker.Stop()

		fmt.Fprint(w, "event: ready\ndata: {}\n\n")
		if err := w.Flush(); err != nil {
			return
		}
		for {
			select {
			case msg, ok := <-messages:
				if !ok {
					return
				}
				eventType, visible := visibleTo(&viewer, msg)
				if !visible {
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, msg)
			case <-ticker.C:
				fmt.Fprint(w, ": ping\n\n")
			}
			if err := w.Flush(); err != nil {
				h.logger.Debug("stream client gone", zap.String("user_id", viewer.ID))
				return
			}
		}
	}))
	return nil
}

func visibleTo(viewer *domain.User, raw []byte) (events.EventType, bool) {
	var envelope streamEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return "", false
	}
	if envelope.SectorID != "" && !lifecycle.HasSectorAccess(viewer, envelope.SectorID) {
		return "", false
	}
	if envelope.Type == "" {
		envelope.Type = "change"
	}
	return envelope.Type, true
}
