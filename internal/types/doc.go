// Package types holds the JSON wire protocol. One WebSocket per client; the
// first message decides the role.
//
// Controller -> Server
//
//	create:          gameType, requestedCode, allowedNumberOfPlayers, teamCount, bestOf, location
//	controllerEvent: code, payload.kind = phase | roundEnd | roundStarting | roundLive | gameOver | requestSnapshot
//
// Player -> Server
//
//	join:        code, username, resumeToken (optional, idempotent rejoin)
//	resume:      code, resumeToken, teamIndex (optional override)
//	playerEvent: payload.kind = tap, payload.count
//
// Server -> Player
//
//	joinResult | resumeResult, phase, roundEnd, roundStarting, roundLive, gameResult, snapshot
//
// Server -> Controller
//
//	created, playerJoined, playerResumed, playerLeft, tap, gameOver, recordSaved, snapshot, error
//
// Both roles may send ping and receive pong.
package types
