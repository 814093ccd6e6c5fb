package prompt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestion-smac/smacctl/internal/entity"
	"github.com/gestion-smac/smacctl/internal/reconcile"
)

func singleChoice() reconcile.Prompt {
	return reconcile.Prompt{
		Title:   "Attribution automatique",
		Message: "L'appareil sera attribué.",
		Choices: []reconcile.Choice{
			{Label: "Confirmer", Plan: reconcile.Plan{Line: entity.Line{Number: "0611111111"}}},
		},
	}
}

func twoChoices() reconcile.Prompt {
	return reconcile.Prompt{
		Title:   "Appareil déjà attribué",
		Message: "Choisissez.",
		Choices: []reconcile.Choice{
			{Label: "Garder le propriétaire", Plan: reconcile.Plan{Line: entity.Line{Number: "1"}}},
			{Label: "Ligne sans propriétaire", Plan: reconcile.Plan{Line: entity.Line{Number: "2"}}},
		},
	}
}

func TestPresent_ConfirmYes(t *testing.T) {
	var out bytes.Buffer

	p := New(strings.NewReader("o\n"), &out, true)

	plan, err := p.Present(singleChoice())
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, "0611111111", plan.Line.Number)
	assert.Contains(t, out.String(), "Attribution automatique")
}

func TestPresent_DefaultIsCancel(t *testing.T) {
	tests := []string{"\n", "n\n", "non\n", "whatever\n"}

	for _, input := range tests {
		t.Run(strings.TrimSpace(input)+"_input", func(t *testing.T) {
			p := New(strings.NewReader(input), &bytes.Buffer{}, true)

			plan, err := p.Present(singleChoice())
			require.NoError(t, err)
			assert.Nil(t, plan, "anything but an explicit yes cancels")
		})
	}
}

func TestPresent_TwoChoicesNoDefault(t *testing.T) {
	var out bytes.Buffer

	// An empty answer re-asks; only an explicit 1/2 selects.
	p := New(strings.NewReader("\n2\n"), &out, true)

	plan, err := p.Present(twoChoices())
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, "2", plan.Line.Number)
	assert.Contains(t, out.String(), "Choix invalide")
}

func TestPresent_TwoChoicesAbandon(t *testing.T) {
	p := New(strings.NewReader("a\n"), &bytes.Buffer{}, true)

	plan, err := p.Present(twoChoices())
	require.NoError(t, err)
	assert.Nil(t, plan)
}

func TestPresent_NonInteractiveRefuses(t *testing.T) {
	p := New(strings.NewReader(""), &bytes.Buffer{}, false)

	_, err := p.Present(singleChoice())
	assert.ErrorIs(t, err, ErrNotInteractive)
}

func TestPresent_AssumeYesSingleChoiceOnly(t *testing.T) {
	p := New(strings.NewReader(""), &bytes.Buffer{}, false)
	p.AssumeYes = true

	plan, err := p.Present(singleChoice())
	require.NoError(t, err)
	assert.NotNil(t, plan)

	// --yes cannot decide a two-way choice.
	_, err = p.Present(twoChoices())
	assert.ErrorIs(t, err, ErrNotInteractive)
}

func TestPresent_ChooseSelects(t *testing.T) {
	p := New(strings.NewReader(""), &bytes.Buffer{}, false)
	p.Choose = 1

	plan, err := p.Present(twoChoices())
	require.NoError(t, err)
	require.NotNil(t, plan)
	assert.Equal(t, "1", plan.Line.Number)
}

func TestPresent_ChooseOutOfRange(t *testing.T) {
	p := New(strings.NewReader(""), &bytes.Buffer{}, false)
	p.Choose = 3

	_, err := p.Present(twoChoices())
	assert.Error(t, err)
}

func TestPresent_EOFCancels(t *testing.T) {
	p := New(strings.NewReader(""), &bytes.Buffer{}, true)

	plan, err := p.Present(singleChoice())
	require.NoError(t, err)
	assert.Nil(t, plan)
}
