package ws

import "stockade/internal/world"

const ProtocolVersion = "1.0"

// Client messages.

type HelloMessage struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
}

type MoveMessage struct {
	Type  string  `json:"type"`
	World string  `json:"world,omitempty"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
}

// Server messages.

type Welcome struct {
	Type            string           `json:"type"`
	ProtocolVersion string           `json:"protocol_version"`
	UserID          string           `json:"user_id"`
	Position        world.Coordinate `json:"position"`
}

type PositionUpdate struct {
	Type            string           `json:"type"`
	ProtocolVersion string           `json:"protocol_version"`
	Position        world.Coordinate `json:"position"`
}

type Notice struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Message         string `json:"message"`
}

type MoveResult struct {
	Type            string           `json:"type"`
	ProtocolVersion string           `json:"protocol_version"`
	Ok              bool             `json:"ok"`
	Position        world.Coordinate `json:"position"`
}

type ErrorMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Error           string `json:"error"`
}
