package telemetry

import "testing"

func TestCollectorAccumulates(t *testing.T) {
	c := NewCollector(10)

	c.RecordBirth(1)
	c.RecordBirth(3)
	c.RecordDeath()
	c.RecordDeath()
	c.RecordCull()
	c.RecordTick(42)

	got := c.Current()
	if got.Births != 2 {
		t.Errorf("births = %d, want 2", got.Births)
	}
	if got.Deaths != 2 {
		t.Errorf("deaths = %d, want 2", got.Deaths)
	}
	if got.GenerationMax != 3 {
		t.Errorf("generation max = %d, want 3", got.GenerationMax)
	}
	if got.Population != 42 {
		t.Errorf("population = %d, want 42", got.Population)
	}
	if got.ElapsedTicks != 1 {
		t.Errorf("elapsed ticks = %d, want 1", got.ElapsedTicks)
	}
}

func TestGenerationMaxNeverDecreases(t *testing.T) {
	c := NewCollector(10)
	c.RecordBirth(5)
	c.RecordBirth(2)
	if got := c.Current().GenerationMax; got != 5 {
		t.Errorf("generation max = %d, want 5", got)
	}
}

func TestShouldFlush(t *testing.T) {
	c := NewCollector(10)

	if c.ShouldFlush(9) {
		t.Error("should not flush before the window closes")
	}
	if !c.ShouldFlush(10) {
		t.Error("should flush once the window closes")
	}

	c.Flush(10, 0, 0, 0, nil)
	if c.ShouldFlush(15) {
		t.Error("fresh window should not flush at tick 15")
	}
	if !c.ShouldFlush(20) {
		t.Error("second window should flush at tick 20")
	}
}

func TestFlushResetsWindowCounters(t *testing.T) {
	c := NewCollector(10)
	c.RecordBirth(1)
	c.RecordDeath()
	c.RecordCull()
	c.RecordTick(5)

	ws := c.Flush(10, 3, 1, 1, []float64{10, 20, 30})
	if ws.WindowStartTick != 0 || ws.WindowEndTick != 10 {
		t.Errorf("window = [%d, %d], want [0, 10]", ws.WindowStartTick, ws.WindowEndTick)
	}
	if ws.Births != 1 || ws.Deaths != 1 || ws.Culled != 1 {
		t.Errorf("window events = %d/%d/%d, want 1/1/1", ws.Births, ws.Deaths, ws.Culled)
	}
	if ws.Population != 5 {
		t.Errorf("population = %d, want 5", ws.Population)
	}
	if ws.Producers != 3 || ws.Consumers != 1 || ws.Decomposers != 1 {
		t.Errorf("composition = %d/%d/%d, want 3/1/1", ws.Producers, ws.Consumers, ws.Decomposers)
	}
	if ws.EnergyMean != 20 {
		t.Errorf("energy mean = %v, want 20", ws.EnergyMean)
	}

	// Window counters reset; cumulative counters survive.
	ws = c.Flush(20, 0, 0, 0, nil)
	if ws.Births != 0 || ws.Deaths != 0 || ws.Culled != 0 {
		t.Errorf("second window events = %d/%d/%d, want zeroed", ws.Births, ws.Deaths, ws.Culled)
	}
	if got := c.Current(); got.Births != 1 || got.Deaths != 1 {
		t.Errorf("cumulative = %+v, want births/deaths 1/1", got)
	}
}

func TestRestore(t *testing.T) {
	c := NewCollector(10)
	c.RecordBirth(1)

	c.Restore(SimulationStats{Population: 9, Births: 100, Deaths: 50, GenerationMax: 7, ElapsedTicks: 500})
	got := c.Current()
	if got.Births != 100 || got.Deaths != 50 || got.GenerationMax != 7 || got.ElapsedTicks != 500 {
		t.Errorf("restored stats = %+v", got)
	}
}

func TestReset(t *testing.T) {
	c := NewCollector(10)
	c.RecordBirth(1)
	c.RecordDeath()
	c.RecordTick(5)

	c.Reset()
	if got := c.Current(); got != (SimulationStats{}) {
		t.Errorf("stats after reset = %+v, want zero", got)
	}
}
