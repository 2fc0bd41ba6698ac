package main

import (
	"net/http"

	"fieldops/internal/websocket"
)

var wsHub = websocket.NewHub()

type WSEvent = websocket.Event

func handleWS(w http.ResponseWriter, r *http.Request) {
	wsHub.Handle(w, r)
}
