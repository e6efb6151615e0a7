package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttributes_OrderPreserved(t *testing.T) {
	var a Attributes
	a.Set("type", "Reef break")
	a.Set("rating", "4")
	a.Set("season", "Winter")
	a.Set("rating", "5") // update in place, no reorder

	assert.Equal(t, []string{"type", "rating", "season"}, a.Keys())
	v, ok := a.Get("rating")
	assert.True(t, ok)
	assert.Equal(t, "5", v)
}

func TestAttributes_GetMissing(t *testing.T) {
	var a Attributes
	v, ok := a.Get("nope")
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestAttributes_CloneIsIndependent(t *testing.T) {
	a := Attributes{{Key: "type", Value: "Beach break"}}
	b := a.Clone()
	b.Set("type", "Reef break")

	v, _ := a.Get("type")
	assert.Equal(t, "Beach break", v)

	assert.Nil(t, Attributes(nil).Clone())
}

func TestBreak_Incomplete(t *testing.T) {
	assert.True(t, (&Break{Name: "", CountryRaw: "Portugal"}).Incomplete())
	assert.True(t, (&Break{Name: "  ", CountryRaw: "Portugal"}).Incomplete())
	assert.True(t, (&Break{Name: "Coxos", CountryRaw: ""}).Incomplete())
	assert.False(t, (&Break{Name: "Coxos", CountryRaw: "Portugal"}).Incomplete())
}
