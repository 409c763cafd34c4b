package physics

// Profile counts the work done by the last Step.
type Profile struct {
	Islands              int
	Bodies               int
	Contacts             int
	Joints               int
	VelocityIterations   int
	// PositionIterations is the number of position passes actually run,
	// which is lower than requested when the solver converges early.
	PositionIterations   int
	TOIEvents            int
	SleepingBodies       int
	Particles            int
	ParticleContacts     int
	// ParticleBodyContacts counts particles within one diameter of a
	// fixture; ParticleBodyHits counts particles stopped by a fixture they
	// would have passed through.
	ParticleBodyContacts int
	ParticleBodyHits     int
}

type timeStep struct {
	dt      float64
	invDt   float64
	dtRatio float64

	velocityIterations int
	positionIterations int
	warmStarting       bool
}

type position struct {
	c Vector
	a float64
}

type velocity struct {
	v Vector
	w float64
}

// solverData is shared by the joints of one island during a solve.
type solverData struct {
	step       timeStep
	positions  []position
	velocities []velocity
	settings   *Settings
}
