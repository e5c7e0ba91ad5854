package model

import (
	"fmt"
	"strings"
)

type Direction string

const (
	DirectionUnset   Direction = ""
	DirectionForward Direction = "forward"
	DirectionReverse Direction = "reverse"
)

func (d Direction) IsSet() bool {
	return d == DirectionForward || d == DirectionReverse
}

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "forward", "outbound":
		return DirectionForward, nil
	case "reverse", "inbound":
		return DirectionReverse, nil
	default:
		return DirectionUnset, fmt.Errorf("unknown direction %q", s)
	}
}
