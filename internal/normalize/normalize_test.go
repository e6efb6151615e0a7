package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey_Empty(t *testing.T) {
	assert.Equal(t, "", Key(""))
	assert.Equal(t, "", Key("   "))
	assert.Equal(t, "", Key("\t\n"))
}

func TestKey_Lowercase(t *testing.T) {
	assert.Equal(t, "pipeline", Key("Pipeline"))
	assert.Equal(t, "uluwatu", Key("ULUWATU"))
}

func TestKey_TrimAndCollapse(t *testing.T) {
	assert.Equal(t, "playa grande", Key("  Playa   Grande  "))
	assert.Equal(t, "playa grande", Key("Playa\tGrande"))
}

func TestKey_Diacritics(t *testing.T) {
	assert.Equal(t, "saint barthelemy", Key("Saint Barthélemy"))
	assert.Equal(t, "cote divoire", Key("Côte d'Ivoire"))
	assert.Equal(t, "jardim do mar", Key("Jardim do Mar"))
	assert.Equal(t, "el nino", Key("El Niño"))
}

func TestKey_Punctuation(t *testing.T) {
	assert.Equal(t, "oneills bay", Key("O'Neill's Bay"))
	assert.Equal(t, "the pass", Key("The Pass!"))
	assert.Equal(t, "st clair", Key("St. Clair"))
}

func TestKey_SeparatorsBecomeSpaces(t *testing.T) {
	assert.Equal(t, "ulu watu", Key("Ulu-Watu"))
	assert.Equal(t, "united states", Key("united_states"))
	assert.Equal(t, "left right", Key("Left/Right"))
}

func TestKey_DigitsPreserved(t *testing.T) {
	assert.Equal(t, "mile 14", Key("Mile 14"))
	assert.Equal(t, "k59", Key("K59"))
	assert.Equal(t, "3rd reef", Key("3rd Reef"))
}

func TestKey_Idempotent(t *testing.T) {
	inputs := []string{
		"", "   ", "Pipeline", "Saint Barthélemy", "O'Neill's Bay",
		"Mile 14", "Ulu-Watu", "ÅÄÖ üñî çôdé", "already a key",
	}
	for _, in := range inputs {
		once := Key(in)
		assert.Equal(t, once, Key(once), "Key not idempotent for %q", in)
	}
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("Ulu-Watu", "ulu watu"))
	assert.True(t, Equal("Saint Barthélemy", "saint barthelemy"))
	assert.False(t, Equal("Backdoor", "Backyards"))
}
