package reslog

import (
	"context"
	"fmt"
	"log/slog"

	slogcommon "github.com/samber/slog-common"
)

// Handler is an slog.Handler that fans finished records into a Hub,
// keyed by the "reservation_id" attribute every reservation-scoped
// logger attaches via .With(). Records without that attribute are
// dropped: this handler only exists to back the per-reservation log
// stream, not general process logging.
//
// Built with github.com/samber/slog-common, the attribute-flattening
// helper shared by the samber/slog-* family of custom slog.Handler
// implementations.
type Handler struct {
	hub    *Hub
	attrs  []slog.Attr
	groups []string
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

func (h *Handler) Enabled(context.Context, slog.Level) bool { return true }

func (h *Handler) Handle(_ context.Context, record slog.Record) error {
	attrs := slogcommon.AppendRecordAttrsToAttrs(h.attrs, h.groups, &record)
	m := slogcommon.AttrsToMap(attrs...)

	idVal, ok := m["reservation_id"]
	if !ok {
		return nil
	}
	id, ok := toUint(idVal)
	if !ok {
		return nil
	}

	h.hub.Publish(Message{
		ReservationID: id,
		Timestamp:     record.Time.UTC().Format("2006-01-02T15:04:05.000Z"),
		Text:          record.Message,
	})
	return nil
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{hub: h.hub, attrs: append(append([]slog.Attr{}, h.attrs...), attrs...), groups: h.groups}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{hub: h.hub, attrs: h.attrs, groups: append(append([]string{}, h.groups...), name)}
}

func toUint(v any) (uint, bool) {
	switch n := v.(type) {
	case uint:
		return n, true
	case uint64:
		return uint(n), true
	case int:
		return uint(n), true
	case int64:
		return uint(n), true
	case float64:
		return uint(n), true
	case fmt.Stringer:
		return 0, false
	default:
		return 0, false
	}
}
