package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePatientSex(t *testing.T) {
	assert.Equal(t, SexMale, ParsePatientSex("male"))
	assert.Equal(t, SexMale, ParsePatientSex("M"))
	assert.Equal(t, SexMale, ParsePatientSex("1"))
	assert.Equal(t, SexFemale, ParsePatientSex("Female"))
	assert.Equal(t, SexFemale, ParsePatientSex("f"))
	assert.Equal(t, SexFemale, ParsePatientSex("2"))
	assert.Equal(t, SexUnspecified, ParsePatientSex(""))
	assert.Equal(t, SexUnspecified, ParsePatientSex("other"))
}

func TestGenderRestrictionAllows(t *testing.T) {
	t.Run("无限制", func(t *testing.T) {
		assert.True(t, GenderRestrictionNone.Allows(SexMale))
		assert.True(t, GenderRestrictionNone.Allows(SexFemale))
		assert.True(t, GenderRestrictionNone.Allows(SexUnspecified))
	})

	t.Run("禁止男性", func(t *testing.T) {
		assert.False(t, GenderRestrictionNoMale.Allows(SexMale))
		assert.True(t, GenderRestrictionNoMale.Allows(SexFemale))
		assert.True(t, GenderRestrictionNoMale.Allows(SexUnspecified))
	})

	t.Run("禁止女性", func(t *testing.T) {
		assert.True(t, GenderRestrictionNoFemale.Allows(SexMale))
		assert.False(t, GenderRestrictionNoFemale.Allows(SexFemale))
		assert.True(t, GenderRestrictionNoFemale.Allows(SexUnspecified))
	})

	t.Run("未知编码仅放行未申报性别", func(t *testing.T) {
		unknown := GenderRestriction(7)
		assert.False(t, unknown.Allows(SexMale))
		assert.False(t, unknown.Allows(SexFemale))
		assert.True(t, unknown.Allows(SexUnspecified))
	})
}

func TestNumericRangeContains(t *testing.T) {
	r := NumericRange{Start: 18, End: 65}
	assert.True(t, r.Contains(18))
	assert.True(t, r.Contains(65))
	assert.True(t, r.Contains(40))
	assert.False(t, r.Contains(17.999))
	assert.False(t, r.Contains(65.001))
}

func TestCandidateItemMatching(t *testing.T) {
	c := CandidateItem{
		Provider: "General Practitioner",
		Location: "Consulting Rooms",
	}

	assert.True(t, c.MatchesProvider(""))
	assert.True(t, c.MatchesProvider("general"))
	assert.True(t, c.MatchesProvider("PRACTITIONER"))
	assert.False(t, c.MatchesProvider("specialist"))

	assert.True(t, c.MatchesLocation(""))
	assert.True(t, c.MatchesLocation("consulting"))
	assert.False(t, c.MatchesLocation("hospital"))
}
