package world

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Coordinate is a position inside a named world.
type Coordinate struct {
	World string  `json:"world" yaml:"world"`
	X     float64 `json:"x" yaml:"x"`
	Y     float64 `json:"y" yaml:"y"`
	Z     float64 `json:"z" yaml:"z"`
	Yaw   float32 `json:"yaw,omitempty" yaml:"yaw,omitempty"`
	Pitch float32 `json:"pitch,omitempty" yaml:"pitch,omitempty"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%s(%.1f, %.1f, %.1f)", c.World, c.X, c.Y, c.Z)
}

// ParseCoordinate parses "x,y,z" into a coordinate in the given world.
func ParseCoordinate(worldName, raw string) (Coordinate, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 3 {
		return Coordinate{}, fmt.Errorf("coordinate %q: want x,y,z", raw)
	}
	var v [3]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Coordinate{}, fmt.Errorf("coordinate %q: %w", raw, err)
		}
		v[i] = f
	}
	return Coordinate{World: worldName, X: v[0], Y: v[1], Z: v[2]}, nil
}

type Vec struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// Cuboid is an axis-aligned box, inclusive on both corners.
type Cuboid struct {
	World string `json:"world" yaml:"world"`
	Min   Vec    `json:"min" yaml:"min"`
	Max   Vec    `json:"max" yaml:"max"`
}

// Normalize orders the corners so Min <= Max on every axis.
func (b Cuboid) Normalize() Cuboid {
	return Cuboid{
		World: b.World,
		Min:   Vec{X: math.Min(b.Min.X, b.Max.X), Y: math.Min(b.Min.Y, b.Max.Y), Z: math.Min(b.Min.Z, b.Max.Z)},
		Max:   Vec{X: math.Max(b.Min.X, b.Max.X), Y: math.Max(b.Min.Y, b.Max.Y), Z: math.Max(b.Min.Z, b.Max.Z)},
	}
}

func (b Cuboid) Contains(c Coordinate) bool {
	if !strings.EqualFold(b.World, c.World) {
		return false
	}
	return c.X >= b.Min.X && c.X <= b.Max.X &&
		c.Y >= b.Min.Y && c.Y <= b.Max.Y &&
		c.Z >= b.Min.Z && c.Z <= b.Max.Z
}

func (b Cuboid) Center() Coordinate {
	return Coordinate{
		World: b.World,
		X:     (b.Min.X + b.Max.X) / 2,
		Y:     (b.Min.Y + b.Max.Y) / 2,
		Z:     (b.Min.Z + b.Max.Z) / 2,
	}
}
