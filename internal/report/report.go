// Package report turns a chart into the texts the bot sends: the short
// summary message and the basic and extended PDF reports.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/Gabbasoffstr/MoiAstroPsikhologBot/internal/chart"
	"github.com/Gabbasoffstr/MoiAstroPsikhologBot/internal/words"
)

// NoHouse replaces the house of a placement whose longitude matched none.
const NoHouse = "дом не определён"

// Meta describes whose chart it is.
type Meta struct {
	Name        string
	Birth       string
	Place       string
	HouseSystem string
}

func (m Meta) subject() string {
	var parts []string
	for _, p := range []string{m.Name, m.Birth, m.Place} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if m.HouseSystem != "" {
		parts = append(parts, "система домов: "+m.HouseSystem)
	}
	return strings.Join(parts, ", ")
}

type Section struct {
	Heading string
	Body    []string
}

type Report struct {
	Title    string
	Subject  string
	Sections []Section
}

func degrees(d float64) int {
	return int(math.Floor(d))
}

// PlacementLine formats one placement, e.g. "☉ Солнце в Весах 12°, 7 дом".
func PlacementLine(p chart.Placement) string {
	name := words.Glyph(p.Body.Name) + " " + words.Body(p.Body.Name)
	if !p.Body.Valid() {
		return name + ": нет данных"
	}
	house := NoHouse
	if p.House > 0 {
		house = fmt.Sprintf("%d дом", p.House)
	}
	return fmt.Sprintf("%s %s %d°, %s", name, words.SignIn(p.Sign), degrees(p.Degree), house)
}

// AspectLine formats one aspect, e.g. "Солнце квадрат Луна (90.5°)".
func AspectLine(a *chart.Aspect) string {
	return fmt.Sprintf("%s %s %s (%.1f°)",
		words.Body(a.BodyA), words.Aspect(a.Kind), words.Body(a.BodyB), a.Separation)
}

func placementLines(c *chart.Chart) []string {
	lines := make([]string, 0, len(c.Placements))
	for _, p := range c.Placements {
		lines = append(lines, PlacementLine(p))
	}
	return lines
}

func aspectLines(c *chart.Chart) []string {
	if c.Aspects == nil || len(c.Aspects.Aspects) == 0 {
		return []string{"Мажорных аспектов в пределах орбиса нет."}
	}
	lines := make([]string, 0, len(c.Aspects.Aspects))
	for _, a := range c.Aspects.Aspects {
		lines = append(lines, AspectLine(a))
	}
	return lines
}

func excludedLine(c *chart.Chart) string {
	if c.Aspects == nil || len(c.Aspects.Excluded) == 0 {
		return ""
	}
	names := make([]string, len(c.Aspects.Excluded))
	for i, n := range c.Aspects.Excluded {
		names[i] = words.Body(n)
	}
	return "Нет данных о положении: " + strings.Join(names, ", ")
}

// Summary is the chat message sent right after a chart is computed.
func Summary(c *chart.Chart) string {
	var b strings.Builder
	b.WriteString("🔭 Ваша натальная карта\n\n")
	for _, line := range placementLines(c) {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\nАспекты:\n")
	for _, line := range aspectLines(c) {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if ex := excludedLine(c); ex != "" {
		b.WriteString("\n")
		b.WriteString(ex)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func houseLines(c *chart.Chart) []string {
	cusps := c.Houses.Cusps()
	lines := make([]string, 0, len(cusps))
	for _, h := range cusps {
		sign, deg := chart.SignOf(h.Start)
		lines = append(lines, fmt.Sprintf("%d дом: %s %d°", h.ID, words.Sign(sign), degrees(deg)))
	}
	return lines
}

// Basic is the free report: placements, aspects and house cusps.
func Basic(c *chart.Chart, meta Meta) Report {
	planets := Section{Heading: "Положение планет", Body: placementLines(c)}
	if ex := excludedLine(c); ex != "" {
		planets.Body = append(planets.Body, ex)
	}
	return Report{
		Title:   "Натальная карта",
		Subject: meta.subject(),
		Sections: []Section{
			planets,
			{Heading: "Аспекты", Body: aspectLines(c)},
			{Heading: "Куспиды домов", Body: houseLines(c)},
		},
	}
}

// Extended adds one section per placed body with its interpretation.
// interpretations is aligned with c.Placements; empty texts are skipped.
func Extended(c *chart.Chart, meta Meta, interpretations []string) Report {
	r := Basic(c, meta)
	r.Title = "Натальная карта: расширенный разбор"
	for i, p := range c.Placements {
		if !p.Body.Valid() {
			continue
		}
		text := ""
		if i < len(interpretations) {
			text = interpretations[i]
		}
		if text == "" {
			continue
		}
		r.Sections = append(r.Sections, Section{
			Heading: PlacementLine(p),
			Body:    strings.Split(text, "\n\n"),
		})
	}
	return r
}
