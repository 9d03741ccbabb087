// Package camera tracks the view mode state machine and the eased
// transitions between viewpoints.
package camera

import (
	"sync"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"github.com/automoto/stardrift-mp/config"
	"github.com/automoto/stardrift-mp/shared/spatial"
)

// Mode is the active camera behavior.
type Mode string

const (
	ModePlayer    Mode = "player"
	ModeVehicle   Mode = "vehicle"
	ModeOrbit     Mode = "orbit"
	ModeFree      Mode = "free"
	ModeSpectator Mode = "spectator"
)

// State holds the current mode, the follow targets and an optional in-flight
// transition tween. Targets may be refreshed every frame while a transition
// blends toward them.
type State struct {
	mu sync.Mutex

	mode     Mode
	prevMode Mode

	position spatial.Vec3
	lookAt   spatial.Vec3

	targetPos  spatial.Vec3
	targetLook spatial.Vec3

	fromPos  spatial.Vec3
	fromLook spatial.Vec3
	tween    *gween.Tween
}

// NewState starts in player mode at the configured default viewpoint.
func NewState() *State {
	pos := spatial.FromArray(config.Camera.DefaultPosition)
	look := spatial.FromArray(config.Camera.DefaultLookAt)
	return &State{
		mode:       ModePlayer,
		prevMode:   ModePlayer,
		position:   pos,
		lookAt:     look,
		targetPos:  pos,
		targetLook: look,
	}
}

// SetMode switches the camera behavior and starts an eased transition from
// the current viewpoint toward the targets. Setting the active mode again is
// a no-op.
func (s *State) SetMode(mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mode == s.mode {
		return
	}
	s.prevMode = s.mode
	s.mode = mode
	s.beginTransitionLocked()
}

// SetTargets updates the viewpoint the camera is converging on. Outside a
// transition the camera tracks the targets directly.
func (s *State) SetTargets(position, lookAt spatial.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targetPos = position
	s.targetLook = lookAt
	if s.tween == nil {
		s.position = position
		s.lookAt = lookAt
	}
}

// Transition starts an eased move to the given viewpoint without changing
// the mode.
func (s *State) Transition(position, lookAt spatial.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targetPos = position
	s.targetLook = lookAt
	s.beginTransitionLocked()
}

func (s *State) beginTransitionLocked() {
	s.fromPos = s.position
	s.fromLook = s.lookAt
	s.tween = gween.New(0, 1, float32(config.Camera.TransitionSeconds), ease.OutCubic)
}

// Update advances an in-flight transition by dt seconds and reports whether
// a transition is still running.
func (s *State) Update(dt float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tween == nil {
		s.position = s.targetPos
		s.lookAt = s.targetLook
		return false
	}

	t, done := s.tween.Update(float32(dt))
	s.position = spatial.Lerp(s.fromPos, s.targetPos, float64(t))
	s.lookAt = spatial.Lerp(s.fromLook, s.targetLook, float64(t))
	if done {
		s.tween = nil
		return false
	}
	return true
}

// ForceReset snaps back to player mode at the default viewpoint, cancelling
// any transition.
func (s *State) ForceReset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos := spatial.FromArray(config.Camera.DefaultPosition)
	look := spatial.FromArray(config.Camera.DefaultLookAt)
	s.mode = ModePlayer
	s.prevMode = ModePlayer
	s.tween = nil
	s.position = pos
	s.lookAt = look
	s.targetPos = pos
	s.targetLook = look
}

func (s *State) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *State) PreviousMode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.prevMode
}

func (s *State) Position() spatial.Vec3 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

func (s *State) LookAt() spatial.Vec3 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookAt
}

// InTransition reports whether a transition tween is running.
func (s *State) InTransition() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tween != nil
}
