package envelope

// Envelope is an attack-decay-sustain-release state machine. Its output
// value is recomputed from the current phase and the progress reported by
// a Timer, which is handed to the trigger methods and never owned.
//
// An Envelope is not safe for concurrent use. All calls, including the
// timer callbacks, are expected to come from the goroutine that drives
// the timer.
type Envelope struct {
	name   string
	cfg    Config
	staged *Config

	phase        Phase
	value        float64
	releaseStart float64

	onValue listeners[func(float64, Phase)]
	onPhase listeners[func(Phase, *Envelope)]
}

func New(name string, cfg Config) *Envelope {
	return &Envelope{
		name:  name,
		cfg:   cfg,
		value: cfg.InitialLevel,
	}
}

func (e *Envelope) Name() string   { return e.name }
func (e *Envelope) Phase() Phase   { return e.phase }
func (e *Envelope) Value() float64 { return e.value }

// Config returns the configuration of the current run.
func (e *Envelope) Config() Config { return e.cfg }

// Configure stages cfg. It takes effect at the next accepted attack, so the
// parameters of a run in progress never change underneath it.
func (e *Envelope) Configure(cfg Config) {
	e.staged = &cfg
}

// OnValueChange registers fn to be called every time the value is
// recalculated. The returned function removes it.
func (e *Envelope) OnValueChange(fn func(value float64, phase Phase)) (remove func()) {
	return e.onValue.add(fn)
}

// OnPhaseChange registers fn to be called on every phase transition. Not
// every phase is visited: retriggers and WaitForRelease == false skip some.
func (e *Envelope) OnPhaseChange(fn func(phase Phase, e *Envelope)) (remove func()) {
	return e.onPhase.add(fn)
}

// TriggerAttack starts the attack phase. It fails when the envelope is
// active and retriggering is not allowed.
func (e *Envelope) TriggerAttack(t Timer) bool {
	cfg := e.cfg
	if e.staged != nil {
		cfg = *e.staged
	}
	if !cfg.AllowRetrigger && e.phase != Inactive {
		return false
	}
	e.cfg = cfg
	e.staged = nil
	e.enterAttack(t)
	return true
}

// TriggerRelease starts the release phase. It fails when the envelope is
// inactive or already releasing.
func (e *Envelope) TriggerRelease(t Timer) bool {
	if e.phase == Inactive || e.phase == Release {
		return false
	}
	e.enterRelease(t)
	return true
}

func (e *Envelope) enterAttack(t Timer) {
	begin := e.cfg.InitialLevel
	if e.phase != Inactive {
		begin = e.value
	}
	e.setPhase(Attack)

	timing := e.cfg.timing()
	t.SetDuration(FloorDuration(timing.Attack * (e.cfg.PeakLevel - begin)))
	if e.cfg.BypassDecay {
		t.SetCompletion(e.enterSustain)
	} else {
		t.SetCompletion(e.enterDecay)
	}
	t.Play(e.attackProgress(begin))
}

// attackProgress is the attack progress at which the ramp passes through
// level.
func (e *Envelope) attackProgress(level float64) float64 {
	if e.cfg.PeakLevel <= 0 {
		return 0
	}
	return clamp01(level / e.cfg.PeakLevel)
}

func (e *Envelope) enterDecay(t Timer) {
	e.setPhase(Decay)
	t.SetDuration(e.cfg.timing().Decay)
	t.SetCompletion(e.enterSustain)
	t.Play(0)
}

func (e *Envelope) enterSustain(t Timer) {
	e.phase = Sustain
	if !e.cfg.WaitForRelease {
		e.enterRelease(t)
		return
	}
	e.notifyPhase()
}

func (e *Envelope) enterRelease(t Timer) {
	e.releaseStart = e.value
	e.setPhase(Release)
	t.SetDuration(FloorDuration(e.cfg.timing().Release * e.value))
	t.SetCompletion(e.reset)
	t.Play(0)
}

func (e *Envelope) reset(Timer) {
	e.setPhase(Inactive)
}

func (e *Envelope) setPhase(p Phase) {
	e.phase = p
	e.notifyPhase()
}

func (e *Envelope) notifyPhase() {
	e.onPhase.each(func(fn func(Phase, *Envelope)) { fn(e.phase, e) })
}

// CalculateValue recomputes the output from the current phase and the
// timer progress, then notifies value listeners. In the sustain phase
// the value is left alone but listeners are still notified.
func (e *Envelope) CalculateValue(progress float64) {
	progress = clamp01(progress)
	switch e.phase {
	case Inactive:
		e.value = e.cfg.InitialLevel
	case Attack:
		e.value = progress * e.cfg.PeakLevel
	case Decay:
		e.value = lerp(e.cfg.PeakLevel, e.cfg.SustainLevel, progress)
	case Release:
		e.value = lerp(e.releaseStart, e.cfg.InitialLevel, progress)
	}
	e.onValue.each(func(fn func(float64, Phase)) { fn(e.value, e.phase) })
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}
