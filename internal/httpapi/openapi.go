package httpapi

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/DoyleJ11/quizrooms/internal/hub"
)

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "Quiz Rooms API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("HTTP side of the multiplayer location quiz. Gameplay runs over /ws.")

	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getHealthz)

	getStats, _ := r.NewOperationContext(http.MethodGet, "/stats")
	getStats.SetSummary("Live room stats")
	getStats.AddRespStructure(hub.Stats{}, openapi.WithHTTPStatus(http.StatusOK))
	getStats.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getStats)

	getRoom, _ := r.NewOperationContext(http.MethodGet, "/rooms/{code}")
	getRoom.SetSummary("Look up room")
	getRoom.SetDescription("Check a room code before joining.")
	getRoom.AddReqStructure(struct {
		Code string `path:"code"`
	}{})
	getRoom.AddRespStructure(RoomInfoResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getRoom.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getRoom)

	getQR, _ := r.NewOperationContext(http.MethodGet, "/rooms/{code}/qr")
	getQR.SetSummary("Room QR code")
	getQR.SetDescription("PNG QR code linking to the join page for the room.")
	getQR.AddReqStructure(struct {
		Code string `path:"code"`
		Size int    `query:"size"`
	}{})
	getQR.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK), openapi.WithContentType("image/png"))
	getQR.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getQR)

	getRecent, _ := r.NewOperationContext(http.MethodGet, "/games/recent")
	getRecent.SetSummary("Recently finished games")
	getRecent.AddReqStructure(struct {
		Limit int `query:"limit"`
	}{})
	getRecent.AddRespStructure([]RecentGame{}, openapi.WithHTTPStatus(http.StatusOK))
	getRecent.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getRecent)

	getWS, _ := r.NewOperationContext(http.MethodGet, "/ws")
	getWS.SetSummary("Game websocket")
	getWS.SetDescription("Upgrades to a websocket carrying JSON {type, data} frames.")
	getWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getWS)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
