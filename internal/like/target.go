package like

import (
	"fmt"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/boardtype"
)

// Target is the closed set of likeable things.
type Target string

const (
	TargetFree    Target = "free"
	TargetCode    Target = "code"
	TargetComment Target = "comment"
)

var Targets = []Target{TargetFree, TargetCode, TargetComment}

func ParseTarget(s string) (Target, error) {
	switch Target(s) {
	case TargetFree, TargetCode, TargetComment:
		return Target(s), nil
	}
	return "", fmt.Errorf("unknown like target %q", s)
}

// BoardTarget maps a board type onto its like target.
func BoardTarget(t boardtype.Type) Target {
	switch t {
	case boardtype.Code:
		return TargetCode
	default:
		return TargetFree
	}
}

// Owner locates the liked item for notifications.
type Owner struct {
	AuthorID  int64
	BoardType boardtype.Type
	BoardID   int64
	CommentID *int64
}
