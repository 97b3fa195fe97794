package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/event-checkout/internal/apperrors"
	"github.com/Shivanand-hulikatti/event-checkout/internal/model"
)

func identifiers(steps []Step) []string {
	ids := make([]string, len(steps))
	for i, s := range steps {
		ids[i] = s.Identifier()
	}
	return ids
}

func TestRegistry_OrdersByPriorityThenInsertion(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("A", 10, newFake("A")))
	require.NoError(t, r.Register("B", 20, newFake("B")))
	require.NoError(t, r.Register("C", 10, newFake("C")))

	assert.Equal(t, []string{"B", "A", "C"}, r.Identifiers())
	assert.Equal(t, "B", r.First().Identifier())
	assert.Equal(t, 1, r.IndexOf("A"))
	assert.Equal(t, -1, r.IndexOf("Z"))
}

func TestRegistry_Navigation(t *testing.T) {
	r := NewRegistry()
	for i, id := range []string{"one", "two", "three", "four"} {
		require.NoError(t, r.Register(id, 100-i, newFake(id)))
	}

	next, err := r.Next("two")
	require.NoError(t, err)
	assert.Equal(t, "three", next.Identifier())

	prev, err := r.Previous("two")
	require.NoError(t, err)
	assert.Equal(t, "one", prev.Identifier())

	assert.Equal(t, []string{"three", "two", "one"}, identifiers(r.AllPrevious("four")))
	assert.Empty(t, r.AllPrevious("one"))
	assert.Empty(t, r.AllPrevious("unknown"))

	assert.True(t, r.HasNext("three"))
	assert.False(t, r.HasNext("four"))
	assert.True(t, r.HasPrevious("two"))
	assert.False(t, r.HasPrevious("one"))

	_, err = r.Next("four")
	assert.ErrorIs(t, err, apperrors.ErrStepNotFound)
	_, err = r.Previous("one")
	assert.ErrorIs(t, err, apperrors.ErrStepNotFound)
	_, err = r.Get("five")
	assert.ErrorIs(t, err, apperrors.ErrStepNotFound)
}

func TestRegistry_RegisterErrors(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("A", 1, newFake("A")))

	assert.ErrorIs(t, r.Register("A", 5, newFake("A")), apperrors.ErrDuplicateStep)
	assert.ErrorIs(t, r.Register("B", 1, nil), apperrors.ErrInvalidStep)
	assert.ErrorIs(t, r.Register("B", 1, newFake("C")), apperrors.ErrInvalidStep)
	assert.Equal(t, 1, r.Len())
}

func TestFactory_Define(t *testing.T) {
	f := NewFactory()
	require.NoError(t, f.Define("default", fixed(10, newFake("a")), fixed(20, newFake("b"))))
	assert.Equal(t, []string{"default"}, f.Types())

	err := f.Define("broken", fixed(10, newFake("a")), fixed(5, newFake("a")))
	assert.ErrorIs(t, err, apperrors.ErrDuplicateStep)

	assert.ErrorIs(t, f.Define("empty"), apperrors.ErrConfiguration)
	assert.ErrorIs(t, f.Define("nil", Definition{Priority: 1}), apperrors.ErrInvalidStep)
}

func TestFactory_CreateFiltersOptionalSteps(t *testing.T) {
	f := NewFactory()
	require.NoError(t, f.Define("default",
		fixed(30, newFake("first")),
		fixed(20, &optionalStep{fakeStep: newFake("waiting_list"), required: false}),
		fixed(10, &optionalStep{fakeStep: newFake("payment"), required: true}),
	))

	reg, err := f.Create("default", &model.EventConfig{ID: "evt-1"}, &Request{})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "payment"}, reg.Identifiers())

	_, err = f.Create("unknown", &model.EventConfig{ID: "evt-1"}, &Request{})
	assert.ErrorIs(t, err, apperrors.ErrConfiguration)
}
