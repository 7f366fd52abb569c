// Package authflow is the explicit stage machine behind the sign-in and
// sign-up conversation.
package authflow

import (
	"errors"
	"fmt"
)

type Stage int

const (
	CollectCredentials Stage = iota
	AwaitConfirmation
	CollectProfile
	LogIn
	Complete
)

func (s Stage) String() string {
	switch s {
	case CollectCredentials:
		return "collect_credentials"
	case AwaitConfirmation:
		return "await_confirmation"
	case CollectProfile:
		return "collect_profile"
	case LogIn:
		return "log_in"
	case Complete:
		return "complete"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

type Event int

const (
	SignedIn Event = iota
	SignedUp
	Switch
	Acknowledged
	ProfileSaved
)

func (e Event) String() string {
	switch e {
	case SignedIn:
		return "signed_in"
	case SignedUp:
		return "signed_up"
	case Switch:
		return "switch"
	case Acknowledged:
		return "acknowledged"
	case ProfileSaved:
		return "profile_saved"
	}
	return fmt.Sprintf("event(%d)", int(e))
}

var ErrIllegalTransition = errors.New("illegal auth flow transition")

type edge struct {
	from  Stage
	event Event
}

var transitions = map[edge]Stage{
	{CollectCredentials, SignedIn}:    Complete,
	{CollectCredentials, SignedUp}:    AwaitConfirmation,
	{CollectCredentials, Switch}:      LogIn,
	{LogIn, Switch}:                   CollectCredentials,
	{LogIn, SignedIn}:                 Complete,
	{AwaitConfirmation, Acknowledged}: CollectProfile,
	{CollectProfile, ProfileSaved}:    Complete,
}

// Next returns the stage reached from s on e.
func Next(s Stage, e Event) (Stage, error) {
	next, ok := transitions[edge{s, e}]
	if !ok {
		return s, fmt.Errorf("%w: %s on %s", ErrIllegalTransition, e, s)
	}
	return next, nil
}

// Flow tracks one conversation. It is not safe for concurrent use.
type Flow struct {
	stage Stage
}

func New() *Flow {
	return &Flow{stage: CollectCredentials}
}

// NewAt starts a flow at an arbitrary stage, e.g. LogIn for a /login command.
func NewAt(stage Stage) *Flow {
	return &Flow{stage: stage}
}

func (f *Flow) Stage() Stage {
	return f.stage
}

// Fire applies e. On error the stage is unchanged.
func (f *Flow) Fire(e Event) error {
	next, err := Next(f.stage, e)
	if err != nil {
		return err
	}
	f.stage = next
	return nil
}

func (f *Flow) Done() bool {
	return f.stage == Complete
}
