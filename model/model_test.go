package model

import (
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/signalsfoundry/psim/config"
	"github.com/signalsfoundry/psim/field"
	"github.com/signalsfoundry/psim/state"
	"github.com/signalsfoundry/psim/types"
)

// producer publishes "a" and doubles it every step.
type producer struct {
	Base
	a *field.Valued[types.Real]
}

func newProducer() *producer {
	p := &producer{}
	p.a = AddsWritable(&p.Base, field.NewValued("a", types.Real(1)))
	return p
}

func (p *producer) Step() error {
	p.ResetLazies()
	p.a.Set(p.a.Get() * 2)
	return nil
}

// consumer reads "a" and exposes a lazy copy scaled by ten.
type consumer struct {
	Base
	a      field.Readable[types.Real]
	scaled *field.Lazy[types.Real]
	seen   []types.Real
}

func newConsumer() *consumer {
	c := &consumer{}
	Gets(&c.Base, "a", &c.a)
	c.scaled = AddsLazy(&c.Base, "a.scaled", func() types.Real { return c.a.Get() * 10 })
	return c
}

func (c *consumer) Step() error {
	c.ResetLazies()
	c.seen = append(c.seen, c.a.Get())
	return nil
}

func TestListOrderAndWiring(t *testing.T) {
	l := NewList()
	if err := l.Add(newProducer(), nil); err != nil {
		t.Fatalf("Add producer: %v", err)
	}
	c := newConsumer()
	if err := l.Add(c, nil); err != nil {
		t.Fatalf("Add consumer: %v", err)
	}

	s := state.New()
	if err := l.AddFields(s); err != nil {
		t.Fatalf("AddFields: %v", err)
	}
	if err := l.GetFields(s); err != nil {
		t.Fatalf("GetFields: %v", err)
	}

	if got := c.scaled.Get(); got != 10 {
		t.Fatalf("a.scaled = %v, want 10", got)
	}
	if err := l.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	// producer stepped first, so consumer observes the doubled value.
	if len(c.seen) != 1 || c.seen[0] != 2 {
		t.Fatalf("consumer saw %v, want [2]", c.seen)
	}
	if c.scaled.Evaluated() {
		t.Fatalf("consumer lazy field not reset by Step")
	}
	if got := c.scaled.Get(); got != 20 {
		t.Fatalf("a.scaled after step = %v, want 20", got)
	}
}

func TestListConsumerBeforeProducer(t *testing.T) {
	l := NewList()
	c := newConsumer()
	l.Append(c, newProducer())

	s := state.New()
	if err := l.AddFields(s); err != nil {
		t.Fatalf("AddFields: %v", err)
	}
	if err := l.GetFields(s); err != nil {
		t.Fatalf("GetFields with consumer first should still resolve: %v", err)
	}
	if err := l.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if c.seen[0] != 1 {
		t.Fatalf("consumer stepped first should see 1, saw %v", c.seen[0])
	}
}

func TestListPhaseOrderWithMocks(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := NewMockModel(ctrl)
	b := NewMockModel(ctrl)

	gomock.InOrder(
		a.EXPECT().AddFields(gomock.Any()).Return(nil),
		b.EXPECT().AddFields(gomock.Any()).Return(nil),
		a.EXPECT().GetFields(gomock.Any()).Return(nil),
		b.EXPECT().GetFields(gomock.Any()).Return(nil),
		a.EXPECT().Step().Return(nil),
		b.EXPECT().Step().Return(nil),
	)

	l := NewList()
	l.Append(a, b)
	s := state.New()
	if err := l.AddFields(s); err != nil {
		t.Fatalf("AddFields: %v", err)
	}
	if err := l.GetFields(s); err != nil {
		t.Fatalf("GetFields: %v", err)
	}
	if err := l.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
}

func TestListStopsOnFirstError(t *testing.T) {
	ctrl := gomock.NewController(t)
	a := NewMockModel(ctrl)
	b := NewMockModel(ctrl)
	boom := errors.New("boom")

	a.EXPECT().Step().Return(boom)
	b.EXPECT().Step().Times(0)

	l := NewList()
	l.Append(a, b)
	err := l.Step()
	if !errors.Is(err, boom) {
		t.Fatalf("Step err = %v, want boom", err)
	}
}

func TestListAddPropagatesConstructorError(t *testing.T) {
	l := NewList()
	boom := errors.New("bad config")
	if err := l.Add(nil, boom); !errors.Is(err, boom) {
		t.Fatalf("Add err = %v, want constructor error", err)
	}
	if err := l.Add(nil, nil); err == nil {
		t.Fatalf("Add(nil, nil) should fail")
	}
	if l.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", l.Len())
	}
}

func TestGetsMissingAndMistyped(t *testing.T) {
	s := state.New()
	if err := s.Add(field.NewValued("a", types.Integer(1))); err != nil {
		t.Fatalf("Add: %v", err)
	}

	missing := &Base{}
	var r field.Readable[types.Real]
	Gets(missing, "nope", &r)
	if err := missing.GetFields(s); !errors.Is(err, ErrWiring) || !errors.Is(err, state.ErrFieldNotFound) {
		t.Fatalf("missing dependency err = %v, want ErrWiring wrapping ErrFieldNotFound", err)
	}

	mistyped := &Base{}
	Gets(mistyped, "a", &r)
	if err := mistyped.GetFields(s); !errors.Is(err, field.ErrTypeMismatch) {
		t.Fatalf("mistyped dependency err = %v, want ErrTypeMismatch", err)
	}

	readOnly := &Base{}
	var w field.Writable[types.Integer]
	GetsWritable(readOnly, "a", &w)
	if err := readOnly.GetFields(s); !errors.Is(err, field.ErrNotWritable) {
		t.Fatalf("writable dependency on read-only field err = %v, want ErrNotWritable", err)
	}
}

func TestDuplicateAcrossModels(t *testing.T) {
	l := NewList()
	l.Append(newProducer(), newProducer())
	if err := l.AddFields(state.New()); !errors.Is(err, state.ErrDuplicateField) {
		t.Fatalf("AddFields err = %v, want ErrDuplicateField", err)
	}
}

func TestAddsFromConfig(t *testing.T) {
	cfg, err := config.FromValues(map[string]any{"m.gain": 0.5})
	if err != nil {
		t.Fatalf("FromValues: %v", err)
	}
	b := &Base{}
	gain, err := AddsFromConfig[types.Real](b, cfg, "m.gain")
	if err != nil {
		t.Fatalf("AddsFromConfig: %v", err)
	}
	if gain.Name() != "m.gain" || gain.Get() != 0.5 {
		t.Fatalf("gain = (%q, %v), want (m.gain, 0.5)", gain.Name(), gain.Get())
	}
	if _, err := AddsFromConfig[types.Real](b, cfg, "m.missing"); !errors.Is(err, config.ErrKeyNotFound) {
		t.Fatalf("missing key err = %v, want ErrKeyNotFound", err)
	}
	bias, err := AddsFromConfigOr(b, cfg, "m.bias", types.Real(0.1))
	if err != nil || bias.Get() != 0.1 {
		t.Fatalf("AddsFromConfigOr = %v, %v", bias, err)
	}

	s := state.New()
	if err := b.AddFields(s); err != nil {
		t.Fatalf("AddFields: %v", err)
	}
	if !s.HasWritable("m.gain") || !s.HasWritable("m.bias") {
		t.Fatalf("config initialised fields must be writable: %v", s.Names())
	}
}

func TestJoin(t *testing.T) {
	cases := []struct {
		prefix string
		names  []string
		want   string
	}{
		{"", []string{"t.ns"}, "t.ns"},
		{"truth", []string{"t.ns"}, "truth.t.ns"},
		{"truth", []string{"leader", "orbit.r"}, "truth.leader.orbit.r"},
		{"truth", []string{"", "x"}, "truth.x"},
	}
	for _, c := range cases {
		if got := Join(c.prefix, c.names...); got != c.want {
			t.Fatalf("Join(%q, %v) = %q, want %q", c.prefix, c.names, got, c.want)
		}
	}
}
