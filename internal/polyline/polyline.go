// Package polyline implements the encoded polyline algorithm used by road-routing
// providers: signed deltas between consecutive points, zigzag sign folding, and
// 5-bit groups written as printable ASCII starting at '?'.
package polyline

import (
	"fmt"
	"math"
	"strings"

	"github.com/Kilat-Pet-Delivery/service-routing/internal/domain/route"
)

const (
	// precision is the fixed-point scale of encoded coordinates (five decimals).
	precision = 1e5

	charOffset   = 63
	minChar      = charOffset
	maxChar      = charOffset + 0x3f
	groupMask    = 0x1f
	continuation = 0x20
	groupBits    = 5

	// maxShift bounds a single value to 12 groups so it fits an int64.
	maxShift = 60
)

// DecodeError reports a string that violates the polyline grammar.
type DecodeError struct {
	Offset int
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("polyline: decode at offset %d: %s", e.Offset, e.Reason)
}

// Decode reconstructs the coordinate sequence of an encoded polyline. An empty
// string yields an empty sequence. A string that ends inside a group, or after a
// latitude without its longitude, is rejected rather than truncated.
func Decode(encoded string) ([]route.Waypoint, error) {
	points := make([]route.Waypoint, 0, len(encoded)/4)

	var lat, lng int64
	index := 0
	for index < len(encoded) {
		dLat, next, err := decodeValue(encoded, index)
		if err != nil {
			return nil, err
		}
		if next >= len(encoded) {
			return nil, &DecodeError{Offset: next, Reason: "input ends before longitude of point"}
		}
		dLng, next, err := decodeValue(encoded, next)
		if err != nil {
			return nil, err
		}
		index = next

		lat += dLat
		lng += dLng
		points = append(points, route.Waypoint{
			Lat: float64(lat) / precision,
			Lng: float64(lng) / precision,
		})
	}

	return points, nil
}

// decodeValue reads one zigzag-encoded delta starting at index and returns it
// together with the index of the next unread character.
func decodeValue(encoded string, index int) (int64, int, error) {
	var result int64
	var shift uint
	for {
		if index >= len(encoded) {
			return 0, index, &DecodeError{Offset: index, Reason: "input ends inside a 5-bit group"}
		}
		if shift >= maxShift {
			return 0, index, &DecodeError{Offset: index, Reason: "value has too many groups"}
		}
		c := encoded[index]
		if c < minChar || c > maxChar {
			return 0, index, &DecodeError{Offset: index, Reason: fmt.Sprintf("invalid character %q", c)}
		}
		b := int64(c) - charOffset
		index++

		result |= (b & groupMask) << shift
		shift += groupBits
		if b < continuation {
			break
		}
	}

	if result&1 != 0 {
		return ^(result >> 1), index, nil
	}
	return result >> 1, index, nil
}

// Encode writes points as an encoded polyline at five-decimal precision.
func Encode(points []route.Waypoint) string {
	var b strings.Builder
	b.Grow(len(points) * 8)

	var prevLat, prevLng int64
	for _, p := range points {
		lat := int64(math.Round(p.Lat * precision))
		lng := int64(math.Round(p.Lng * precision))
		encodeValue(&b, lat-prevLat)
		encodeValue(&b, lng-prevLng)
		prevLat, prevLng = lat, lng
	}
	return b.String()
}

func encodeValue(b *strings.Builder, v int64) {
	u := v << 1
	if v < 0 {
		u = ^u
	}
	for u >= continuation {
		b.WriteByte(byte((continuation | (u & groupMask)) + charOffset))
		u >>= groupBits
	}
	b.WriteByte(byte(u + charOffset))
}
