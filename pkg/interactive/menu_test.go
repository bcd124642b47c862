package interactive

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMenuChoices(t *testing.T) {
	choices, optionMap := menuChoices([]MenuOption{
		{Name: "Probe", Description: "probe a url"},
		{Name: "Run", Description: "run tasks"},
	})

	assert.Equal(t, []string{"Probe - probe a url", "Run - run tasks", "Exit"}, choices)
	assert.Len(t, optionMap, 2)
	assert.Equal(t, "Run", optionMap["Run - run tasks"].Name)
}

func TestDispatch(t *testing.T) {
	errAction := errors.New("action failed")
	called := 0

	_, optionMap := menuChoices([]MenuOption{
		{Name: "Ok", Description: "works", Action: func() error { called++; return nil }},
		{Name: "Bad", Description: "fails", Action: func() error { return errAction }},
		{Name: "Empty", Description: "no action"},
	})

	require.NoError(t, dispatch("Ok - works", optionMap))
	assert.Equal(t, 1, called)

	assert.ErrorIs(t, dispatch("Bad - fails", optionMap), errAction)
	assert.ErrorIs(t, dispatch("Empty - no action", optionMap), ErrInvalidSelection)
	assert.ErrorIs(t, dispatch("missing", optionMap), ErrInvalidSelection)
	assert.ErrorIs(t, dispatch(exitChoice, optionMap), ErrExit)
}

func TestSelectFromListEmpty(t *testing.T) {
	_, err := SelectFromList("pick", nil)
	assert.ErrorIs(t, err, ErrNoOptions)
}

func TestStringValidator(t *testing.T) {
	errEmpty := errors.New("empty")
	v := stringValidator(func(s string) error {
		if s == "" {
			return errEmpty
		}
		return nil
	})

	assert.NoError(t, v("value"))
	assert.ErrorIs(t, v(""), errEmpty)
	assert.Error(t, v(42))
}
