/*
Package handler provides HTTP handler functions for read-only presence queries.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"

	"pairchat/internal/app/event"
	"pairchat/internal/pkg/errs"
	"pairchat/internal/pkg/req"
	"pairchat/internal/pkg/resp"
)

type BatchStatusInput struct {
	UserIDs []string `json:"userIds" validate:"required,min=1,max=100,dive,required"`
}

// HandleOnlineUsers returns the sorted ids of every online user.
func HandleOnlineUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, deps.Manager.Presence().OnlineIDs())
	}
}

// HandleUserStatus reports whether the user in the path is online.
func HandleUserStatus(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userId")
		if userID == "" {
			resp.RespondError(w, errs.NewError(errs.ErrInvalidParams))
			return
		}

		resp.RespondSuccess(w, event.UserStatus{
			UserID:   userID,
			IsOnline: deps.Manager.Presence().IsOnline(userID),
		})
	}
}

// HandleBatchStatus reports the presence of each requested user, in request order.
func HandleBatchStatus(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input BatchStatusInput
		if err := req.BindJSON(r, &input); err != nil {
			resp.RespondError(w, err)
			return
		}

		registry := deps.Manager.Presence()
		statuses := lo.Map(input.UserIDs, func(id string, _ int) event.UserStatus {
			return event.UserStatus{UserID: id, IsOnline: registry.IsOnline(id)}
		})

		resp.RespondSuccess(w, statuses)
	}
}
