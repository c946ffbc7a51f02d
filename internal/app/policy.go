package app

import (
	"errors"
	"fmt"

	"github.com/dkeye/Telemed/internal/core"
)

var ErrRoleTaken = errors.New("role already taken")

// AdmissionPolicy decides whether a participant may join a room given the
// members already in it.
type AdmissionPolicy interface {
	Admit(members []core.Participant, joining core.Participant) error
}

// SharedAdmission admits every well-formed join; a second doctor simply becomes
// another peer.
type SharedAdmission struct{}

func (SharedAdmission) Admit([]core.Participant, core.Participant) error { return nil }

// ExclusiveAdmission allows at most one connection per role in a room.
type ExclusiveAdmission struct{}

func (ExclusiveAdmission) Admit(members []core.Participant, joining core.Participant) error {
	for _, m := range members {
		if m.Role == joining.Role {
			return fmt.Errorf("%w: %s", ErrRoleTaken, joining.Role)
		}
	}
	return nil
}

func NewAdmissionPolicy(mode string) (AdmissionPolicy, error) {
	switch mode {
	case "", "shared":
		return SharedAdmission{}, nil
	case "exclusive":
		return ExclusiveAdmission{}, nil
	default:
		return nil, fmt.Errorf("unknown admission mode %q", mode)
	}
}

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	DropMessage
	KickPeer
)

// BackpressurePolicy reacts to a peer whose outbound buffer is full.
type BackpressurePolicy interface {
	OnBackPressure(peer core.Participant) BackpressureAction
}

type DropPolicy struct{}

func (DropPolicy) OnBackPressure(core.Participant) BackpressureAction { return DropMessage }

type KickPolicy struct{}

func (KickPolicy) OnBackPressure(core.Participant) BackpressureAction { return KickPeer }

func NewBackpressurePolicy(mode string) (BackpressurePolicy, error) {
	switch mode {
	case "", "drop":
		return DropPolicy{}, nil
	case "kick":
		return KickPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown backpressure mode %q", mode)
	}
}
