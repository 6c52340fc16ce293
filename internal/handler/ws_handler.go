/*
Package handler provides the HTTP handler function for WebSocket connection upgrading and initialization.

This file contains the HandleWebSocket function, which upgrades the HTTP connection,
assigns the connection id and runs the client until it disconnects.
*/
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"pairchat/internal/app/chat"
	"pairchat/internal/pkg/logx"
	"pairchat/internal/pkg/randx"
)

// HandleWebSocket creates an HTTP HandlerFunc to process WebSocket connection requests.
// Identity is not part of the handshake; clients announce it with a join event.
func HandleWebSocket(manager *chat.Manager, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Warn("Failed to upgrade connection to WebSocket", "error", err.Error())
			return
		}

		connID := randx.ConnID()
		logx.Debug("WebSocket connection established", "conn_id", connID, "ip", logx.AnonymizeIP(r.RemoteAddr))

		chat.NewClient(connID, manager, conn).Run()
	}
}
