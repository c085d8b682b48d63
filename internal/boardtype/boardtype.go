// Package boardtype is the closed set of board kinds that own posts,
// comments and likes.
package boardtype

import "fmt"

type Type string

const (
	Free Type = "free"
	Code Type = "code"
)

// All lists every board type in display order.
var All = []Type{Free, Code}

func (t Type) Valid() bool {
	switch t {
	case Free, Code:
		return true
	}
	return false
}

func (t Type) String() string { return string(t) }

// Parse accepts the canonical names and the board path prefixes
// ("freeboard", "codeboard").
func Parse(s string) (Type, error) {
	switch s {
	case "free", "freeboard", "FREE":
		return Free, nil
	case "code", "codeboard", "CODE":
		return Code, nil
	}
	return "", fmt.Errorf("unknown board type %q", s)
}
