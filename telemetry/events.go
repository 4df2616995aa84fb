package telemetry

// TickDelta is the tick-completed event payload. External subscribers
// (telemetry sinks, UI) receive one per committed tick; the engine has no
// knowledge of where it goes.
type TickDelta struct {
	Tick          uint64
	Births        int
	Deaths        int
	Culled        int
	Population    int
	GenerationMax uint32
}

// TickListener receives tick-completed events. Listeners run synchronously
// on the simulation thread and must not call back into the engine.
type TickListener func(TickDelta)
