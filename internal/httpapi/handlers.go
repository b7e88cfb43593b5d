package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"

	"github.com/DoyleJ11/quizrooms/internal/engine"
	"github.com/DoyleJ11/quizrooms/internal/hub"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type RoomInfoResponse struct {
	Code           string `json:"code"`
	Phase          string `json:"phase"`
	Players        int    `json:"players"`
	QuestionNumber int    `json:"questionNumber"`
	TotalQuestions int    `json:"totalQuestions"`
}

type RecentGame struct {
	RoomCode       string           `json:"roomCode"`
	TotalQuestions int              `json:"totalQuestions"`
	FinishedAt     string           `json:"finishedAt"`
	Standings      []RecentStanding `json:"standings"`
}

type RecentStanding struct {
	Position int    `json:"position"`
	Name     string `json:"name"`
	Score    int    `json:"score"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRoomErr(w http.ResponseWriter, err error) {
	if errors.Is(err, engine.ErrNotFound) || errors.Is(err, engine.ErrRoomClosed) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "room not found"})
		return
	}
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func Stats(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := h.Stats(r.Context())
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "hub unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func RoomInfo(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm, err := h.Room(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			writeRoomErr(w, err)
			return
		}
		v, err := rm.State(r.Context())
		if err != nil {
			writeRoomErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, RoomInfoResponse{
			Code:           v.State.Code,
			Phase:          string(v.State.Phase),
			Players:        len(v.State.Players),
			QuestionNumber: min(v.State.CurrentQuestion, len(v.State.Questions)),
			TotalQuestions: len(v.State.Questions),
		})
	}
}

// RoomQR renders a PNG QR code linking to the join page for a live room.
func RoomQR(h *hub.Hub, publicURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rm, err := h.Room(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			writeRoomErr(w, err)
			return
		}

		size := 320
		if s := r.URL.Query().Get("size"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 64 || n > 1024 {
				writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "size must be between 64 and 1024"})
				return
			}
			size = n
		}

		png, err := qrcode.Encode(JoinURL(publicURL, rm.Code()), qrcode.Medium, size)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "failed to render qr code"})
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(png)
	}
}

// JoinURL is publicURL with ?room=code set.
func JoinURL(publicURL, code string) string {
	u, err := url.Parse(publicURL)
	if err != nil {
		return publicURL + "?room=" + url.QueryEscape(code)
	}
	q := u.Query()
	q.Set("room", code)
	u.RawQuery = q.Encode()
	return u.String()
}

func RecentGames(games GameLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if games == nil {
			writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "archive not configured"})
			return
		}
		limit := 20
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 || n > 100 {
				writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be between 1 and 100"})
				return
			}
			limit = n
		}

		recs, err := games.Recent(r.Context(), limit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
			return
		}
		out := make([]RecentGame, 0, len(recs))
		for _, rec := range recs {
			g := RecentGame{
				RoomCode:       rec.RoomCode,
				TotalQuestions: rec.TotalQuestions,
				FinishedAt:     rec.FinishedAt.UTC().Format(time.RFC3339),
				Standings:      make([]RecentStanding, 0, len(rec.Standings)),
			}
			for _, st := range rec.Standings {
				g.Standings = append(g.Standings, RecentStanding{Position: st.Position, Name: st.Name, Score: st.Score})
			}
			out = append(out, g)
		}
		writeJSON(w, http.StatusOK, out)
	}
}
