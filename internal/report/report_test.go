package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Gabbasoffstr/MoiAstroPsikhologBot/internal/chart"
)

func equalCusps(start float64) []chart.HouseCusp {
	cusps := make([]chart.HouseCusp, chart.HouseCount)
	for i := range cusps {
		s := start + float64(i*30)
		if s >= 360 {
			s -= 360
		}
		cusps[i] = chart.HouseCusp{ID: i + 1, Start: s, Size: 30}
	}
	return cusps
}

func sampleChart(t *testing.T) *chart.Chart {
	t.Helper()
	c, err := chart.Build([]chart.Body{
		{Name: "Sun", Longitude: 192.4},
		{Name: "Moon", Longitude: 101},
		chart.Missing("Mars"),
	}, equalCusps(0), 6)
	require.NoError(t, err)
	return c
}

func TestPlacementLine(t *testing.T) {
	c := sampleChart(t)
	sun, _ := c.Placement("Sun")
	assert.Equal(t, "☉ Солнце в Весах 12°, 7 дом", PlacementLine(sun))

	mars, _ := c.Placement("Mars")
	assert.Equal(t, "♂ Марс: нет данных", PlacementLine(mars))

	unhoused := sun
	unhoused.House = 0
	assert.Equal(t, "☉ Солнце в Весах 12°, дом не определён", PlacementLine(unhoused))
}

func TestSummary(t *testing.T) {
	want := strings.Join([]string{
		"🔭 Ваша натальная карта",
		"",
		"☉ Солнце в Весах 12°, 7 дом",
		"☽ Луна в Раке 11°, 4 дом",
		"♂ Марс: нет данных",
		"",
		"Аспекты:",
		"Солнце квадрат Луна (91.4°)",
		"",
		"Нет данных о положении: Марс",
	}, "\n")
	if diff := cmp.Diff(want, Summary(sampleChart(t))); diff != "" {
		t.Errorf("Summary() mismatch (-want +got):\n%s", diff)
	}
}

func TestSummaryNoAspects(t *testing.T) {
	c, err := chart.Build([]chart.Body{{Name: "Sun", Longitude: 10}, {Name: "Moon", Longitude: 45}}, equalCusps(0), 3)
	require.NoError(t, err)
	assert.Contains(t, Summary(c), "Мажорных аспектов в пределах орбиса нет.")
	assert.NotContains(t, Summary(c), "Нет данных")
}

func TestBasic(t *testing.T) {
	r := Basic(sampleChart(t), Meta{Name: "Анна", Birth: "07.10.1990 14:30", Place: "Казань", HouseSystem: "porphyry"})
	assert.Equal(t, "Натальная карта", r.Title)
	assert.Equal(t, "Анна, 07.10.1990 14:30, Казань, система домов: porphyry", r.Subject)
	require.Len(t, r.Sections, 3)
	assert.Equal(t, "Положение планет", r.Sections[0].Heading)
	assert.Len(t, r.Sections[0].Body, 4)
	assert.Len(t, r.Sections[2].Body, 12)
	assert.Equal(t, "1 дом: Овен 0°", r.Sections[2].Body[0])
	assert.Equal(t, "7 дом: Весы 0°", r.Sections[2].Body[6])
}

func TestExtended(t *testing.T) {
	c := sampleChart(t)
	r := Extended(c, Meta{}, []string{"Первый абзац.\n\nВторой абзац.", "Луна.", ""})
	require.Len(t, r.Sections, 5)
	assert.Equal(t, "☉ Солнце в Весах 12°, 7 дом", r.Sections[3].Heading)
	assert.Equal(t, []string{"Первый абзац.", "Второй абзац."}, r.Sections[3].Body)
	assert.Equal(t, []string{"Луна."}, r.Sections[4].Body)
}

func TestExtendedSkipsMissingBody(t *testing.T) {
	c := sampleChart(t)
	r := Extended(c, Meta{}, []string{"Солнце.", "Луна.", "Интерпретация временно недоступна."})
	require.Len(t, r.Sections, 5)
	for _, s := range r.Sections[3:] {
		assert.NotContains(t, s.Heading, "нет данных")
	}
}

func TestTransliterate(t *testing.T) {
	assert.Equal(t, "Solntse v Vesakh 12°, 7 dom", transliterate("☉ Солнце в Весах 12°, 7 дом"))
	assert.Equal(t, "Yupiter", transliterate("Юпитер"))
	assert.Equal(t, "plain", transliterate("plain"))
}

func TestWriteCoreFont(t *testing.T) {
	r, err := NewRenderer("")
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, r.Write(&buf, Basic(sampleChart(t), Meta{Name: "Анна"})))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Contains(t, strings.TrimSpace(buf.String()), "%%EOF")
}

func TestWriteFile(t *testing.T) {
	r, err := NewRenderer("")
	require.NoError(t, err)
	dir := t.TempDir()

	path, err := r.WriteFile(dir, Basic(sampleChart(t), Meta{}))
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.Equal(t, ".pdf", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestNewRendererMissingFont(t *testing.T) {
	_, err := NewRenderer(filepath.Join(t.TempDir(), "nope.ttf"))
	assert.Error(t, err)
}

func TestNewRendererInvalidFont(t *testing.T) {
	path := filepath.Join(t.TempDir(), "DejaVuSans.ttf")
	require.NoError(t, os.WriteFile(path, []byte("<html>404 not found</html>"), 0o644))

	_, err := NewRenderer(path)
	assert.ErrorIs(t, err, ErrInvalidFont)
}
