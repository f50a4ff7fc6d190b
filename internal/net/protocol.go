// Package net carries projects between the GUI and a project server over a
// websocket RPC, and finds servers on the local network with mDNS.
package net

import (
	"encoding/json"
	"errors"
)

// Path is the websocket endpoint served by the project server.
const Path = "/ws"

const (
	OpSignUp = "signup"
	OpLogin  = "login"
	OpLogout = "logout"
	OpSave   = "save"
	OpLoad   = "load"
	OpList   = "list"
	OpDelete = "delete"
)

var (
	// ErrRemote wraps any failure reported by the server.
	ErrRemote = errors.New("server error")
	// ErrNotLoggedIn is returned for project operations before login.
	ErrNotLoggedIn = errors.New("not logged in")
)

// Request is one RPC call. Fields are used depending on Op.
type Request struct {
	ID       uint64          `json:"id"`
	Op       string          `json:"op"`
	User     string          `json:"user,omitempty"`
	Password string          `json:"password,omitempty"`
	Name     string          `json:"name,omitempty"`
	Project  json.RawMessage `json:"project,omitempty"`
}

// Response answers the Request with the same ID.
type Response struct {
	ID      uint64          `json:"id"`
	OK      bool            `json:"ok"`
	Error   string          `json:"error,omitempty"`
	Project json.RawMessage `json:"project,omitempty"`
	Names   []string        `json:"names,omitempty"`
}
