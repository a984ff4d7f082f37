/*
Package handler provides the HTTP handlers and routing setup for the bot's
control dashboard.

This file contains the status, log, roster, and control handlers backing
the browser dashboard. Everything except the control endpoints is a pure
read over the shared state store and the log ring.
*/
package handler

import (
	"net/http"
	"strconv"

	"howdybot/internal/pkg/errs"
	"howdybot/internal/pkg/logx"
	"howdybot/internal/pkg/req"
	"howdybot/internal/pkg/resp"
)

// HandleStatus reports the current connection status, the reconnect attempt
// number, and roster/room counts.
func HandleStatus(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, attempt := deps.Engine.Status()

		data := map[string]any{
			"status":      status,
			"attempt":     attempt,
			"own_id":      deps.Engine.OwnID(),
			"known_users": deps.Engine.State().UserCount(),
			"rooms":       deps.Engine.State().Rooms(),
		}
		resp.RespondSuccess(w, r, data)
	}
}

// HandleLogs returns retained log entries newer than the "after" sequence
// number, so the dashboard can poll incrementally.
func HandleLogs(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		after := uint64(0)
		if raw := r.URL.Query().Get("after"); raw != "" {
			parsed, err := strconv.ParseUint(raw, 10, 64)
			if err != nil {
				resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
				return
			}
			after = parsed
		}

		data := map[string]any{
			"entries":  deps.LogRing.Since(after),
			"last_seq": deps.LogRing.LastSeq(),
		}
		resp.RespondSuccess(w, r, data)
	}
}

// HandleUsers returns a snapshot of the known roster.
func HandleUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, deps.Engine.Users())
	}
}

// HandleRooms returns a snapshot of the joined rooms.
func HandleRooms(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, deps.Engine.State().Rooms())
	}
}

// HandleFeatures reports each feature module's registration outcome.
func HandleFeatures(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, deps.Loader.Statuses())
	}
}

// HandleStop requests a cooperative shutdown of the wire session. The HTTP
// server itself stays up so the operator can still read status and logs.
func HandleStop(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logx.Warn("Stop requested via dashboard.")
		deps.Engine.Stop()

		status, _ := deps.Engine.Status()
		resp.RespondSuccess(w, r, map[string]any{"status": status})
	}
}

// sendRequest is the body of POST /api/control/send.
type sendRequest struct {
	// Target is a room id, or the recipient handle when DM is true. Empty
	// with DM false addresses the default room.
	Target string `json:"target"`
	Text   string `json:"text"`
	DM     bool   `json:"dm"`
}

// HandleSend lets the operator speak as the bot.
func HandleSend(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body sendRequest
		if bindErr := req.BindJSON(w, r, &body); bindErr != nil {
			resp.RespondError(w, r, bindErr)
			return
		}

		if body.Text == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		if err := deps.Engine.SendText(body.Target, body.Text, body.DM); err != nil {
			if customErr, ok := err.(*errs.CustomError); ok {
				resp.RespondError(w, r, customErr)
				return
			}
			resp.RespondError(w, r, errs.NewError(errs.ErrUnknown, err))
			return
		}

		resp.RespondSuccess(w, r, nil)
	}
}
