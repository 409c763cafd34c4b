package physics

import "errors"

var (
	// ErrWorldLocked is returned by structural calls made while the world is stepping.
	ErrWorldLocked = errors.New("world is locked during step")

	// ErrInvalidShape is returned for degenerate or otherwise unusable geometry.
	ErrInvalidShape = errors.New("invalid shape")

	ErrInvalidFixture  = errors.New("invalid fixture")
	ErrInvalidBody     = errors.New("invalid body")
	ErrInvalidJoint    = errors.New("invalid joint")
	ErrInvalidSettings = errors.New("invalid settings")
	ErrInvalidStep     = errors.New("invalid step parameters")
	ErrInvalidParticle = errors.New("invalid particle")

	// ErrNotInWorld is returned when an object belongs to another world or was destroyed.
	ErrNotInWorld = errors.New("object is not in this world")

	// ErrParticleLimit is returned when a particle system would exceed its capacity.
	ErrParticleLimit = errors.New("particle limit reached")
)
