package tree

import (
	"strconv"
	"time"

	"stockade/internal/world"
)

func (t *Tree) String(path string) (string, bool) {
	v, ok := t.Get(path)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (t *Tree) Int(path string) (int64, bool) {
	v, ok := t.Get(path)
	if !ok {
		return 0, false
	}
	return toInt64(v)
}

func (t *Tree) Float(path string) (float64, bool) {
	v, ok := t.Get(path)
	if !ok {
		return 0, false
	}
	return toFloat64(v)
}

// Time reads a timestamp stored as unix milliseconds.
func (t *Tree) Time(path string) (time.Time, bool) {
	ms, ok := t.Int(path)
	if !ok {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

func (t *Tree) SetTime(path string, v time.Time) {
	t.Set(path, v.UnixMilli())
}

// Coordinate reads a section holding world, x, y, z and optional yaw and
// pitch.
func (t *Tree) Coordinate(path string) (world.Coordinate, bool) {
	s := t.Sub(path)
	name, ok := s.String("world")
	if !ok {
		return world.Coordinate{}, false
	}
	x, okX := s.Float("x")
	y, okY := s.Float("y")
	z, okZ := s.Float("z")
	if !okX || !okY || !okZ {
		return world.Coordinate{}, false
	}
	yaw, _ := s.Float("yaw")
	pitch, _ := s.Float("pitch")
	return world.Coordinate{World: name, X: x, Y: y, Z: z, Yaw: float32(yaw), Pitch: float32(pitch)}, true
}

func (t *Tree) SetCoordinate(path string, c world.Coordinate) {
	t.Set(path, map[string]any{
		"world": c.World,
		"x":     c.X,
		"y":     c.Y,
		"z":     c.Z,
		"yaw":   float64(c.Yaw),
		"pitch": float64(c.Pitch),
	})
}

// Cuboid reads a section holding world, min and max corners.
func (t *Tree) Cuboid(path string) (world.Cuboid, bool) {
	s := t.Sub(path)
	name, ok := s.String("world")
	if !ok {
		return world.Cuboid{}, false
	}
	minV, okMin := vec(s.Sub("min"))
	maxV, okMax := vec(s.Sub("max"))
	if !okMin || !okMax {
		return world.Cuboid{}, false
	}
	return world.Cuboid{World: name, Min: minV, Max: maxV}, true
}

func (t *Tree) SetCuboid(path string, b world.Cuboid) {
	t.Set(path, map[string]any{
		"world": b.World,
		"min":   map[string]any{"x": b.Min.X, "y": b.Min.Y, "z": b.Min.Z},
		"max":   map[string]any{"x": b.Max.X, "y": b.Max.Y, "z": b.Max.Z},
	})
}

func vec(s *Tree) (world.Vec, bool) {
	x, okX := s.Float("x")
	y, okY := s.Float("y")
	z, okZ := s.Float("z")
	return world.Vec{X: x, Y: y, Z: z}, okX && okY && okZ
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true
	case float64:
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	default:
		return 0, false
	}
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
