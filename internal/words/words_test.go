package words

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Gabbasoffstr/MoiAstroPsikhologBot/internal/chart"
)

func TestNames(t *testing.T) {
	assert.Equal(t, "Солнце", Body("Sun"))
	assert.Equal(t, "Chiron", Body("Chiron"))
	assert.Equal(t, "☽", Glyph("Moon"))
	assert.Equal(t, "•", Glyph("Chiron"))
	assert.Equal(t, "Весы", Sign(chart.Libra))
	assert.Equal(t, "во Льве", SignIn(chart.Leo))
	assert.Equal(t, "в Рыбах", SignIn(chart.Pisces))
	assert.Equal(t, "трин", Aspect(chart.Trine))
	assert.Equal(t, "AspectKind(9)", Aspect(chart.AspectKind(9)))
}
