package task

import (
	"strings"

	"github.com/trezcool/kazi/core"
	"github.com/trezcool/kazi/core/user"
)

const (
	targetSingle    = "single"
	targetBroadcast = "broadcast"
	targetAll       = "all"
)

// Target describes who a Task is fanned out to.
type Target struct {
	Kind        Kind
	RecipientID string // personal only
}

// SingleTarget targets one recipient.
func SingleTarget(recipientID string) Target {
	return Target{Kind: KindPersonal, RecipientID: recipientID}
}

// BroadcastTarget targets everyone on the roster.
func BroadcastTarget() Target {
	return Target{Kind: KindBroadcast}
}

// ParseTarget parses a descriptor of the form "single:<userId>" or "broadcast:all".
// A single descriptor with a blank id still parses; resolving it fails with ErrInvalidTarget.
func ParseTarget(descriptor string) (Target, error) {
	parts := strings.SplitN(core.CleanString(descriptor), ":", 2)
	if len(parts) != 2 {
		return Target{}, ErrInvalidTarget
	}
	switch strings.ToLower(parts[0]) {
	case targetSingle:
		return SingleTarget(core.CleanString(parts[1])), nil
	case targetBroadcast:
		if strings.ToLower(core.CleanString(parts[1])) != targetAll {
			return Target{}, ErrInvalidTarget
		}
		return BroadcastTarget(), nil
	}
	return Target{}, ErrInvalidTarget
}

func (t Target) String() string {
	if t.Kind == KindBroadcast {
		return targetBroadcast + ":" + targetAll
	}
	return targetSingle + ":" + t.RecipientID
}

// Resolve produces the recipient ids of target from a roster snapshot.
// A personal target must name a principal present in the snapshot.
// Broadcasting to an empty roster fails with ErrEmptyRoster.
func Resolve(target Target, roster []user.User) ([]string, error) {
	switch target.Kind {
	case KindPersonal:
		id := core.CleanString(target.RecipientID)
		if id == "" {
			return nil, ErrInvalidTarget
		}
		for _, usr := range roster {
			if usr.ID == id {
				return []string{id}, nil
			}
		}
		return nil, ErrInvalidTarget
	case KindBroadcast:
		ids := make([]string, 0, len(roster))
		for _, usr := range roster {
			ids = append(ids, usr.ID)
		}
		ids = core.Dedupe(ids)
		if len(ids) == 0 {
			return nil, ErrEmptyRoster
		}
		return ids, nil
	}
	return nil, ErrInvalidTarget
}
