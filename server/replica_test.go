package server

import "testing"

type fakeSender struct {
	msgs []RequestMessage
}

func (f *fakeSender) SendRequest(msg RequestMessage) {
	f.msgs = append(f.msgs, msg)
}

func initEventFor(id string, health float64, maxHealth float64) EventMessage {
	alive := health > 0
	return EventMessage{
		Type:      "init",
		Entity:    id,
		Name:      "alice",
		Variant:   int(VariantScout),
		MaxHealth: maxHealth,
		Health:    &health,
		Alive:     &alive,
	}
}

func fieldEventFor(id string, health *float64, alive *bool) EventMessage {
	return EventMessage{Type: "field", Entity: id, Health: health, Alive: alive}
}

func TestMirrorAppliesInitSnapshot(t *testing.T) {
	m := NewMirror(&fakeSender{})
	m.Apply(initEventFor("e-1", 100, 100))

	e := m.Entity("e-1")
	if e == nil {
		t.Fatalf("entity missing after init")
	}
	if e.Health() != 100 || e.MaxHealth() != 100 || !e.Alive() {
		t.Fatalf("unexpected mirror state: health=%v max=%v alive=%v", e.Health(), e.MaxHealth(), e.Alive())
	}
	ident := e.IdentityRecord()
	if ident.DisplayName != "alice" || ident.Variant != VariantScout {
		t.Fatalf("unexpected identity: %+v", ident)
	}
}

func TestMirrorAppliesFieldChangesWithCallbacks(t *testing.T) {
	m := NewMirror(&fakeSender{})
	m.Apply(initEventFor("e-1", 100, 100))
	e := m.Entity("e-1")

	var prevSeen, currSeen float64
	e.Subscribe(func(prev, curr float64) { prevSeen, currSeen = prev, curr }, nil)

	h := 70.0
	m.Apply(fieldEventFor("e-1", &h, nil))

	if e.Health() != 70 {
		t.Fatalf("expected 70, got %v", e.Health())
	}
	if prevSeen != 100 || currSeen != 70 {
		t.Fatalf("callback got %v -> %v", prevSeen, currSeen)
	}
}

func TestMirrorLethalBatchKeepsInvariant(t *testing.T) {
	m := NewMirror(&fakeSender{})
	m.Apply(initEventFor("e-1", 100, 100))
	e := m.Entity("e-1")

	aliveAtCallback := true
	healthAtCallback := -1.0
	e.Subscribe(nil, func(prev, curr bool) {
		aliveAtCallback = curr
		healthAtCallback = e.Health()
	})

	h, alive := 0.0, false
	m.Apply(fieldEventFor("e-1", &h, &alive))

	if aliveAtCallback || healthAtCallback != 0 {
		t.Fatalf("alive flip observed with health=%v alive=%v", healthAtCallback, aliveAtCallback)
	}
	if e.Alive() != (e.Health() > 0) {
		t.Fatalf("invariant broken: alive=%v health=%v", e.Alive(), e.Health())
	}
}

func TestMirrorRequestHasNoLocalEffect(t *testing.T) {
	sender := &fakeSender{}
	m := NewMirror(sender)
	m.Apply(initEventFor("e-1", 100, 100))
	e := m.Entity("e-1")

	e.RequestDamage(30)
	e.RequestReset()

	if e.Health() != 100 || !e.Alive() {
		t.Fatalf("request mutated the mirror: health=%v alive=%v", e.Health(), e.Alive())
	}
	if len(sender.msgs) != 2 {
		t.Fatalf("expected 2 forwarded requests, got %d", len(sender.msgs))
	}
	if sender.msgs[0].Op != string(OpDamage) || sender.msgs[0].Amount != 30 {
		t.Fatalf("unexpected first request: %+v", sender.msgs[0])
	}
	if sender.msgs[1].Op != string(OpReset) {
		t.Fatalf("unexpected second request: %+v", sender.msgs[1])
	}
}

func TestMirrorFieldBeforeInitIsIgnored(t *testing.T) {
	m := NewMirror(&fakeSender{})
	h := 70.0
	m.Apply(fieldEventFor("e-9", &h, nil))
	if m.Entity("e-9") != nil {
		t.Fatalf("field event must not create entities")
	}
}

func TestMirrorDespawnReleasesEntity(t *testing.T) {
	sender := &fakeSender{}
	m := NewMirror(sender)
	m.Apply(initEventFor("e-1", 100, 100))
	e := m.Entity("e-1")

	calls := 0
	e.Subscribe(func(prev, curr float64) { calls++ }, nil)

	m.Apply(EventMessage{Type: "despawn", Entity: "e-1"})

	if m.Entity("e-1") != nil {
		t.Fatalf("entity still present after despawn")
	}

	// 释放后既不再通知本地订阅者，也不再向权威转发请求
	h := 10.0
	e.applyFields(&h, nil)
	if calls != 0 {
		t.Fatalf("released subscriber invoked %d times", calls)
	}
	e.RequestDamage(5)
	if len(sender.msgs) != 0 {
		t.Fatalf("request forwarded on released entity")
	}
}

func TestMirrorReissuedInitOverwrites(t *testing.T) {
	m := NewMirror(&fakeSender{})
	m.Apply(initEventFor("e-1", 100, 100))
	ev := initEventFor("e-1", 100, 100)
	ev.Name = "alice the bold"
	ev.Variant = int(VariantTank)
	m.Apply(ev)

	ident := m.Entity("e-1").IdentityRecord()
	if ident.DisplayName != "alice the bold" || ident.Variant != VariantTank {
		t.Fatalf("unexpected identity after reissue: %+v", ident)
	}
}
