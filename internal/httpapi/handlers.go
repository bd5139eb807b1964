package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/typerace-backend/internal/engine"
	"github.com/DoyleJ11/typerace-backend/internal/hub"
	"github.com/DoyleJ11/typerace-backend/internal/session"
	"github.com/DoyleJ11/typerace-backend/internal/types"
	wire "github.com/DoyleJ11/typerace-backend/pkg/types"
)

// RoomLookup is the slice of the hub the HTTP handlers need.
type RoomLookup interface {
	Room(ctx context.Context, roomID string) (*session.View, error)
	Stats(ctx context.Context) (hub.Stats, error)
}

type ResultLister interface {
	RecentResults(ctx context.Context, roomID string, limit int) ([]engine.RoundResult, error)
}

const queryTimeout = 2 * time.Second

func GenerateCode() (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"

	code := make([]byte, 6)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

// CreateRoom hands out a room code nobody is using yet. The session itself
// only comes into existence when the first participant joins it.
func CreateRoom(rooms RoomLookup, log *zap.Logger) http.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
		defer cancel()

		for range 10 {
			code, err := GenerateCode()
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to generate code")
				return
			}
			v, err := rooms.Room(ctx, code)
			if err != nil {
				writeError(w, http.StatusServiceUnavailable, err.Error())
				return
			}
			if v == nil {
				writeJSON(w, http.StatusCreated, struct {
					Code string `json:"code"`
				}{Code: code})
				return
			}
			log.Debug("collision on code, regenerating", zap.String("code", code))
		}
		writeError(w, http.StatusInternalServerError, "failed to find a free code")
	}
}

func GetRoom(rooms RoomLookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
		defer cancel()

		v, err := rooms.Room(ctx, types.NormalizeRoomID(chi.URLParam(r, "roomID")))
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		if v == nil {
			writeError(w, http.StatusNotFound, "room not found")
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

type resultView struct {
	Round      int                `json:"round"`
	Paragraph  string             `json:"paragraph"`
	Standings  []wire.Participant `json:"standings"`
	Winner     *wire.Participant  `json:"winner,omitempty"`
	FinishedAt time.Time          `json:"finishedAt"`
}

func RoomResults(results ResultLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 10
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > 100 {
				writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
				return
			}
			limit = n
		}

		ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
		defer cancel()
		list, err := results.RecentResults(ctx, types.NormalizeRoomID(chi.URLParam(r, "roomID")), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load results")
			return
		}

		out := make([]resultView, 0, len(list))
		for _, res := range list {
			rv := resultView{
				Round:      res.Round,
				Paragraph:  res.Paragraph,
				Standings:  res.Standings,
				FinishedAt: res.FinishedAt,
			}
			if res.HasWinner {
				winner := res.Winner
				rv.Winner = &winner
			}
			out = append(out, rv)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func Healthz(rooms RoomLookup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
		defer cancel()
		st, err := rooms.Stats(ctx)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, struct {
		Error string `json:"error"`
	}{Error: msg})
}
