package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	api "portfolio-backend/internal/delivery/http"
	"portfolio-backend/internal/domain"
	"portfolio-backend/internal/infrastructure/logging"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for now
	},
}

// PortfolioStream is the live view of a user's portfolio.
type PortfolioStream interface {
	OnHoldingsChanged(ctx context.Context, userID string, fn func(domain.Portfolio)) (func(), error)
	Latest(userID string) (domain.Portfolio, bool)
}

// Handler streams the caller's enriched portfolio. A full recompute is pushed
// on every holdings change, and the latest scheduled pass is re-sent every
// interval so prices stay current while holdings do not move.
type Handler struct {
	portfolios PortfolioStream
	interval   time.Duration
	logger     *logging.Logger
}

func NewHandler(portfolios PortfolioStream, interval time.Duration, logger *logging.Logger) *Handler {
	return &Handler{
		portfolios: portfolios,
		interval:   interval,
		logger:     logger,
	}
}

func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	uid, ok := api.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	h.logger.Info().Str("user", uid).Msg("client connected")
	defer h.logger.Info().Str("user", uid).Msg("client disconnected")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The client never sends anything meaningful; reading only detects close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	updates := make(chan domain.Portfolio, 1)
	stop, err := h.portfolios.OnHoldingsChanged(ctx, uid, func(p domain.Portfolio) {
		latestOnly(updates, p)
	})
	if err != nil {
		h.logger.Error().Err(err).Str("user", uid).Msg("subscribe to holdings")
		return
	}
	defer stop()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case p := <-updates:
			if err := h.write(conn, p); err != nil {
				return
			}
		case <-ticker.C:
			p, ok := h.portfolios.Latest(uid)
			if !ok {
				continue
			}
			if err := h.write(conn, p); err != nil {
				return
			}
		}
	}
}

func (h *Handler) write(conn *websocket.Conn, p domain.Portfolio) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(p); err != nil {
		h.logger.Debug().Err(err).Msg("write error")
		return err
	}
	return nil
}

// latestOnly replaces any unsent portfolio with p.
func latestOnly(ch chan domain.Portfolio, p domain.Portfolio) {
	for {
		select {
		case ch <- p:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
