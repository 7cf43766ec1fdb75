package cascade

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFold(t *testing.T) {
	assert.Equal(t, "memoria", Fold("Memória"))
	assert.Equal(t, "acucar cristal", Fold("AÇÚCAR Cristal"))
	assert.Equal(t, "monitor 24", Fold("monitor 24"))
}

func TestTerms(t *testing.T) {
	assert.Equal(t,
		[]string{"papel", "sulfite", "a4"},
		Terms("Aquisição de Papel Sulfite A4"),
	)
	assert.Empty(t, Terms("de para com"))
}

func TestStripStopWords(t *testing.T) {
	assert.Equal(t,
		"Papel Sulfite A4",
		StripStopWords("Aquisição de Papel Sulfite A4"),
	)
	// Casing and order survive; only fillers go.
	assert.Equal(t, "Cadeira Escritório", StripStopWords("Cadeira tipo Escritório"))
	assert.Equal(t, "", StripStopWords("para com de"))
}

func TestStripQuotes(t *testing.T) {
	assert.Equal(t, "papel a4", stripQuotes(`"papel a4"`))
	assert.Equal(t, "papel a4", stripQuotes("“papel a4”"))
	assert.Equal(t, "dagua", stripQuotes("d'agua"))
}
