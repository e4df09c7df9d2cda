package questions

import (
	"testing"

	"intervox/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectBySessionType(t *testing.T) {
	bank := NewBank()

	qs, err := bank.Select(models.SessionTechnical, 3, 1)
	require.NoError(t, err)
	require.Len(t, qs, 3)
	for _, q := range qs {
		assert.NotEmpty(t, q.ID)
		assert.NotEmpty(t, q.Text)
		assert.Positive(t, q.ExpectedDurationSeconds)
	}
}

func TestSelectIsReproducibleForSeed(t *testing.T) {
	bank := NewBank()

	a, err := bank.Select(models.SessionHR, 4, 42)
	require.NoError(t, err)
	b, err := bank.Select(models.SessionHR, 4, 42)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSelectMixedDrawsFromAllGroups(t *testing.T) {
	bank := NewBank()

	qs, err := bank.Select(models.SessionMixed, 100, 7)
	require.NoError(t, err)
	assert.Greater(t, len(qs), len(NewBank().pool[models.SessionHR]),
		"mixed pool spans more than one group")

	seen := map[string]bool{}
	for _, q := range qs {
		assert.False(t, seen[q.ID], "no duplicate questions in one draw")
		seen[q.ID] = true
	}
}

func TestSelectCapsAtPoolSize(t *testing.T) {
	bank := NewBank()
	qs, err := bank.Select(models.SessionAptitude, 100, 3)
	require.NoError(t, err)
	assert.Len(t, qs, len(aptitudeQuestions))
}

func TestSelectValidation(t *testing.T) {
	bank := NewBank()

	_, err := bank.Select(models.SessionHR, 0, 1)
	require.Error(t, err)

	_, err = bank.Select(models.SessionType("pub-quiz"), 3, 1)
	require.Error(t, err)
}
