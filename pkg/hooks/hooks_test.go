package hooks

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestHooksFireInRegistrationOrder(t *testing.T) {
	r := New()
	var order []string
	r.Register(BeforeStep, func(ev Event) error {
		order = append(order, "first")
		return nil
	})
	r.Register(BeforeStep, func(ev Event) error {
		order = append(order, "second")
		return nil
	})

	assert.NoError(t, r.Fire(Event{Kind: BeforeStep}))
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestHookFailureAbortsAndPropagates(t *testing.T) {
	r := New()
	var ran bool
	r.Register(AfterStep, func(ev Event) error {
		return errors.New("boom")
	})
	r.Register(AfterStep, func(ev Event) error {
		ran = true
		return nil
	})

	err := r.Fire(Event{Kind: AfterStep})
	assert.Error(t, err)
	assert.False(t, ran)
}

func TestCountAndIndependentKinds(t *testing.T) {
	r := New()
	r.Register(BeforeAll, func(ev Event) error { return nil })
	r.Register(BeforeAll, func(ev Event) error { return nil })
	r.Register(AfterAll, func(ev Event) error { return nil })

	assert.Equal(t, 2, r.Count(BeforeAll))
	assert.Equal(t, 1, r.Count(AfterAll))
	assert.Equal(t, 0, r.Count(BeforeScenario))
}

func TestFireWithNoHooksRegisteredIsNoop(t *testing.T) {
	r := New()
	assert.NoError(t, r.Fire(Event{Kind: AfterScenario}))
}
