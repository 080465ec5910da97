package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTriState(t *testing.T) {
	tests := []struct {
		in   string
		want TriState
	}{
		{"", TriAll},
		{"All", TriAll},
		{"all", TriAll},
		{"true", TriYes},
		{"TRUE", TriYes},
		{"yes", TriYes},
		{"false", TriNo},
		{" no ", TriNo},
	}
	for _, tt := range tests {
		got, err := ParseTriState(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseTriState("maybe")
	assert.ErrorIs(t, err, ErrUnknownTriState)
}

func TestTriStateMatches(t *testing.T) {
	assert.True(t, TriAll.Matches(true))
	assert.True(t, TriAll.Matches(false))
	assert.True(t, TriYes.Matches(true))
	assert.False(t, TriYes.Matches(false))
	assert.True(t, TriNo.Matches(false))
	assert.False(t, TriNo.Matches(true))
	assert.Equal(t, TriYes, Of(true))
	assert.Equal(t, "All", TriAll.String())
}

func TestFilterCriteriaJSON(t *testing.T) {
	in := `{
		"date_range": {"start": "2024-01-01", "end": "2024-03-31"},
		"affiliated": true,
		"is_special": "false",
		"is_ftc": "All",
		"drug_class_in": ["Diabetes"],
		"generic_name_in": ["METFORMIN", "INSULIN GLARGINE"]
	}`
	var c FilterCriteria
	require.NoError(t, json.Unmarshal([]byte(in), &c))

	require.True(t, c.DateRange.Bounded())
	assert.Equal(t, day(2024, 1, 1), *c.DateRange.Start)
	assert.Equal(t, day(2024, 3, 31), *c.DateRange.End)
	assert.Equal(t, TriYes, c.Affiliated)
	assert.Equal(t, TriNo, c.IsSpecial)
	assert.Equal(t, TriAll, c.IsFTC)
	assert.Equal(t, []string{"Diabetes"}, c.DrugClasses)
	assert.Len(t, c.GenericNames, 2)

	out, err := json.Marshal(c)
	require.NoError(t, err)
	var back FilterCriteria
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, c, back)
}

func TestFilterCriteriaJSONProductAlias(t *testing.T) {
	var c FilterCriteria
	require.NoError(t, json.Unmarshal([]byte(`{"product_in": ["METFORMIN"]}`), &c))
	assert.Equal(t, []string{"METFORMIN"}, c.GenericNames)

	c = FilterCriteria{}
	require.NoError(t, json.Unmarshal([]byte(`{"generic_name_in": ["ALPHA"], "product_in": ["BETA"]}`), &c))
	assert.Equal(t, []string{"ALPHA", "BETA"}, c.GenericNames)

	out, err := json.Marshal(c)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "product_in")
}

func TestFilterCriteriaJSONDefaults(t *testing.T) {
	var c FilterCriteria
	require.NoError(t, json.Unmarshal([]byte(`{"date_range": {"start": "", "end": null}, "affiliated": null}`), &c))
	assert.Equal(t, FilterCriteria{}, c)

	assert.Error(t, json.Unmarshal([]byte(`{"affiliated": "sometimes"}`), &c))
	assert.Error(t, json.Unmarshal([]byte(`{"affiliated": 3}`), &c))
	assert.Error(t, json.Unmarshal([]byte(`{"date_range": {"start": "01/02/2024"}}`), &c))
}

func TestFilterCriteriaValidate(t *testing.T) {
	assert.NoError(t, FilterCriteria{}.Validate())
	assert.NoError(t, FilterCriteria{DateRange: Between(day(2024, 1, 1), day(2024, 1, 1))}.Validate())
	assert.ErrorIs(t, FilterCriteria{DateRange: Between(day(2024, 1, 2), day(2024, 1, 1))}.Validate(), ErrInvertedDateRange)
	assert.ErrorIs(t, FilterCriteria{IsFTC: TriState(7)}.Validate(), ErrUnknownTriState)
}
