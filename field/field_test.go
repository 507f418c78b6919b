package field

import (
	"errors"
	"reflect"
	"testing"

	"github.com/signalsfoundry/psim/types"
)

func TestParameterDefaults(t *testing.T) {
	var p Parameter[types.Real]
	if p.Name() != "" {
		t.Fatalf("Name() = %q, want empty", p.Name())
	}
	if p.Type() != TypeParameter {
		t.Fatalf("Type() = %q, want %q", p.Type(), TypeParameter)
	}
	if p.Get() != 0 {
		t.Fatalf("Get() = %v, want 0", p.Get())
	}

	named := NewParameter("test", types.Real(0))
	if named.Name() != "test" || named.Type() != "parameter" || named.Get() != 0 {
		t.Fatalf("named parameter = (%q, %q, %v)", named.Name(), named.Type(), named.Get())
	}

	valued := NewParameter("", types.Integer(3))
	if valued.Name() != "" || valued.Get() != 3 {
		t.Fatalf("unnamed valued parameter = (%q, %v)", valued.Name(), valued.Get())
	}

	*valued.Ptr() = 9
	if valued.Get() != 9 {
		t.Fatalf("Get() after Ptr write = %v, want 9", valued.Get())
	}
	if valued.ValueType() != reflect.TypeFor[int64]() {
		t.Fatalf("ValueType() = %v, want int64", valued.ValueType())
	}
}

func TestAsParameter(t *testing.T) {
	var f Field = NewParameter("gain", types.Real(0.5))
	p, err := AsParameter[types.Real](f)
	if err != nil {
		t.Fatalf("AsParameter: %v", err)
	}
	if p.Get() != 0.5 {
		t.Fatalf("Get() = %v, want 0.5", p.Get())
	}
	if _, err := AsParameter[types.Integer](f); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("AsParameter[Integer] err = %v, want ErrTypeMismatch", err)
	}
	if _, err := AsWritable[types.Real](f); !errors.Is(err, ErrNotWritable) {
		t.Fatalf("AsWritable on parameter err = %v, want ErrNotWritable", err)
	}
}

func TestValuedAliasing(t *testing.T) {
	v := NewValued("x", types.Real(1))
	if v.Type() != TypeValued {
		t.Fatalf("Type() = %q, want %q", v.Type(), TypeValued)
	}
	*v.Ptr() = 2
	if v.Get() != 2 {
		t.Fatalf("Get() after *Ptr()=2 = %v, want 2", v.Get())
	}
	v.Set(3)
	if *v.Ptr() != 3 {
		t.Fatalf("*Ptr() after Set(3) = %v, want 3", *v.Ptr())
	}
	if err := v.SetAny(types.Real(4)); err != nil {
		t.Fatalf("SetAny: %v", err)
	}
	if v.Get() != 4 {
		t.Fatalf("Get() after SetAny = %v, want 4", v.Get())
	}
	if err := v.SetAny(types.Integer(5)); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("SetAny(Integer) err = %v, want ErrTypeMismatch", err)
	}
	if v.Get() != 4 {
		t.Fatalf("failed SetAny changed value to %v", v.Get())
	}
}

func TestLazyCachingAndReset(t *testing.T) {
	calls := 0
	source := 1.0
	l := NewLazy("y", func() types.Real {
		calls++
		return source * 2
	})
	if l.Type() != TypeLazy {
		t.Fatalf("Type() = %q, want %q", l.Type(), TypeLazy)
	}
	if l.Evaluated() {
		t.Fatalf("new lazy field reports evaluated")
	}
	if got := l.Get(); got != 2 {
		t.Fatalf("Get() = %v, want 2", got)
	}
	if got := l.Get(); got != 2 || calls != 1 {
		t.Fatalf("second Get() = %v with %d producer calls, want 2 with 1", got, calls)
	}

	source = 5
	if got := l.Get(); got != 2 {
		t.Fatalf("Get() before Reset = %v, want cached 2", got)
	}
	l.Reset()
	l.Reset()
	if l.Evaluated() {
		t.Fatalf("Evaluated() after Reset = true")
	}
	if got := l.Get(); got != 10 || calls != 2 {
		t.Fatalf("Get() after Reset = %v with %d calls, want 10 with 2", got, calls)
	}
}

func TestDynamicAccess(t *testing.T) {
	var f Field = NewValued("v", types.Vector3{1, 2, 3})

	got, err := Value[types.Vector3](f)
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if got != (types.Vector3{1, 2, 3}) {
		t.Fatalf("Value = %v, want [1 2 3]", got)
	}
	if _, err := Value[[3]float64](f); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("Value[[3]float64] err = %v, want ErrTypeMismatch", err)
	}
	w, err := AsWritable[types.Vector3](f)
	if err != nil {
		t.Fatalf("AsWritable: %v", err)
	}
	w.Ptr()[0] = 7
	if got, _ := Value[types.Vector3](f); got[0] != 7 {
		t.Fatalf("write through AsWritable not observed: %v", got)
	}

	var lazy Field = NewLazy("l", func() types.Integer { return 1 })
	if _, err := AsWritable[types.Integer](lazy); !errors.Is(err, ErrNotWritable) {
		t.Fatalf("AsWritable(lazy) err = %v, want ErrNotWritable", err)
	}
	if _, err := AsWritable[types.Real](lazy); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("AsWritable[Real](lazy) err = %v, want ErrTypeMismatch", err)
	}
	if _, err := As[types.Real](nil); !errors.Is(err, ErrTypeMismatch) {
		t.Fatalf("As(nil) err = %v, want ErrTypeMismatch", err)
	}
}
