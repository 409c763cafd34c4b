package physics

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
)

// Settings holds the tunable constants of a world.
type Settings struct {
	Gravity            Vector `json:"gravity"`
	VelocityIterations int    `json:"velocityIterations"`
	PositionIterations int    `json:"positionIterations"`
	WarmStarting       bool   `json:"warmStarting"`
	ContinuousPhysics  bool   `json:"continuousPhysics"`
	AllowSleep         bool   `json:"allowSleep"`
	AutoClearForces    bool   `json:"autoClearForces"`

	LinearSlop           float64 `json:"linearSlop"`
	AngularSlop          float64 `json:"angularSlop"`
	Baumgarte            float64 `json:"baumgarte"`
	MaxLinearCorrection  float64 `json:"maxLinearCorrection"`
	MaxAngularCorrection float64 `json:"maxAngularCorrection"`
	MaxTranslation       float64 `json:"maxTranslation"`
	MaxRotation          float64 `json:"maxRotation"`
	VelocityThreshold    float64 `json:"velocityThreshold"`

	LinearSleepTolerance  float64 `json:"linearSleepTolerance"`
	AngularSleepTolerance float64 `json:"angularSleepTolerance"`
	TimeToSleep           float64 `json:"timeToSleep"`

	AABBExtension  float64 `json:"aabbExtension"`
	AABBMultiplier float64 `json:"aabbMultiplier"`

	// A non-bullet body is swept when it moves further than this fraction
	// of its smallest extent in one step.
	CCDDisplacementRatio float64 `json:"ccdDisplacementRatio"`
	TOIMaxIterations     int     `json:"toiMaxIterations"`

	Particles ParticleSettings `json:"particles"`
}

// ParticleSettings configures the particle system of a world.
type ParticleSettings struct {
	Radius       float64 `json:"radius"`
	Density      float64 `json:"density"`
	GravityScale float64 `json:"gravityScale"`
	// MaxCount of zero means unlimited.
	MaxCount int `json:"maxCount"`

	PressureStrength        float64 `json:"pressureStrength"`
	DampingStrength         float64 `json:"dampingStrength"`
	ElasticStrength         float64 `json:"elasticStrength"`
	SpringStrength          float64 `json:"springStrength"`
	ViscousStrength         float64 `json:"viscousStrength"`
	SurfaceTensionStrengthA float64 `json:"surfaceTensionStrengthA"`
	SurfaceTensionStrengthB float64 `json:"surfaceTensionStrengthB"`
	PowderStrength          float64 `json:"powderStrength"`
	EjectionStrength        float64 `json:"ejectionStrength"`
	ColorMixingStrength     float64 `json:"colorMixingStrength"`
}

// DefaultSettings returns the standard tuning for a world with earth gravity.
func DefaultSettings() Settings {
	return Settings{
		Gravity:            Vector{0, -10},
		VelocityIterations: 8,
		PositionIterations: 3,
		WarmStarting:       true,
		ContinuousPhysics:  true,
		AllowSleep:         true,
		AutoClearForces:    true,

		LinearSlop:           DefaultLinearSlop,
		AngularSlop:          DefaultAngularSlop,
		Baumgarte:            0.2,
		MaxLinearCorrection:  0.2,
		MaxAngularCorrection: 8.0 / 180.0 * math.Pi,
		MaxTranslation:       2.0,
		MaxRotation:          0.5 * math.Pi,
		VelocityThreshold:    1.0,

		LinearSleepTolerance:  0.01,
		AngularSleepTolerance: 2.0 / 180.0 * math.Pi,
		TimeToSleep:           0.5,

		AABBExtension:  0.1,
		AABBMultiplier: 2.0,

		CCDDisplacementRatio: 0.5,
		TOIMaxIterations:     20,

		Particles: DefaultParticleSettings(),
	}
}

func DefaultParticleSettings() ParticleSettings {
	return ParticleSettings{
		Radius:       0.1,
		Density:      1.0,
		GravityScale: 1.0,

		PressureStrength:        0.05,
		DampingStrength:         1.0,
		ElasticStrength:         0.25,
		SpringStrength:          0.25,
		ViscousStrength:         0.25,
		SurfaceTensionStrengthA: 0.1,
		SurfaceTensionStrengthB: 0.2,
		PowderStrength:          0.5,
		EjectionStrength:        0.5,
		ColorMixingStrength:     0.5,
	}
}

// Validate reports the first unusable value.
func (s Settings) Validate() error {
	if !s.Gravity.IsValid() {
		return fmt.Errorf("gravity %v: %w", s.Gravity, ErrInvalidSettings)
	}
	if s.VelocityIterations < 1 || s.PositionIterations < 0 {
		return fmt.Errorf("iterations %d/%d: %w", s.VelocityIterations, s.PositionIterations, ErrInvalidSettings)
	}
	positive := []struct {
		name  string
		value float64
	}{
		{"linearSlop", s.LinearSlop},
		{"angularSlop", s.AngularSlop},
		{"maxLinearCorrection", s.MaxLinearCorrection},
		{"maxAngularCorrection", s.MaxAngularCorrection},
		{"maxTranslation", s.MaxTranslation},
		{"maxRotation", s.MaxRotation},
		{"timeToSleep", s.TimeToSleep},
		{"aabbMultiplier", s.AABBMultiplier},
		{"ccdDisplacementRatio", s.CCDDisplacementRatio},
		{"particles.radius", s.Particles.Radius},
		{"particles.density", s.Particles.Density},
	}
	for _, p := range positive {
		if !(p.value > 0) || !isValidFloat(p.value) {
			return fmt.Errorf("%s must be positive, got %v: %w", p.name, p.value, ErrInvalidSettings)
		}
	}
	if s.Baumgarte < 0 || s.Baumgarte > 1 {
		return fmt.Errorf("baumgarte %v outside [0,1]: %w", s.Baumgarte, ErrInvalidSettings)
	}
	if s.AABBExtension < 0 || s.VelocityThreshold < 0 || s.LinearSleepTolerance < 0 || s.AngularSleepTolerance < 0 {
		return fmt.Errorf("negative tolerance: %w", ErrInvalidSettings)
	}
	if s.TOIMaxIterations < 1 {
		return fmt.Errorf("toiMaxIterations %d: %w", s.TOIMaxIterations, ErrInvalidSettings)
	}
	if s.Particles.MaxCount < 0 {
		return fmt.Errorf("particles.maxCount %d: %w", s.Particles.MaxCount, ErrInvalidSettings)
	}
	return nil
}

// LoadSettings reads settings from a JSON file. Fields missing from the file
// keep their default values.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		return settings, fmt.Errorf("failed to read settings file: %w", err)
	}
	if err := json.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("failed to parse settings file: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return settings, err
	}
	return settings, nil
}

// SaveSettings writes settings to a JSON file.
func SaveSettings(settings Settings, path string) error {
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}

// ApplyEnv overrides settings from PHYSICS_* environment variables.
func (s *Settings) ApplyEnv() error {
	floats := []struct {
		key string
		dst *float64
	}{
		{"PHYSICS_GRAVITY_X", &s.Gravity.X},
		{"PHYSICS_GRAVITY_Y", &s.Gravity.Y},
		{"PHYSICS_LINEAR_SLOP", &s.LinearSlop},
		{"PHYSICS_TIME_TO_SLEEP", &s.TimeToSleep},
		{"PHYSICS_PARTICLE_RADIUS", &s.Particles.Radius},
	}
	for _, f := range floats {
		if v, ok := os.LookupEnv(f.key); ok {
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("%s=%q: %w", f.key, v, ErrInvalidSettings)
			}
			*f.dst = parsed
		}
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"PHYSICS_VELOCITY_ITERATIONS", &s.VelocityIterations},
		{"PHYSICS_POSITION_ITERATIONS", &s.PositionIterations},
		{"PHYSICS_MAX_PARTICLES", &s.Particles.MaxCount},
	}
	for _, i := range ints {
		if v, ok := os.LookupEnv(i.key); ok {
			parsed, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s=%q: %w", i.key, v, ErrInvalidSettings)
			}
			*i.dst = parsed
		}
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"PHYSICS_WARM_STARTING", &s.WarmStarting},
		{"PHYSICS_CONTINUOUS", &s.ContinuousPhysics},
		{"PHYSICS_ALLOW_SLEEP", &s.AllowSleep},
	}
	for _, b := range bools {
		if v, ok := os.LookupEnv(b.key); ok {
			parsed, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s=%q: %w", b.key, v, ErrInvalidSettings)
			}
			*b.dst = parsed
		}
	}
	return s.Validate()
}
