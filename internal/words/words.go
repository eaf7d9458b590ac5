// Package words holds the Russian names the bot uses in messages and
// reports.
package words

import (
	"github.com/Gabbasoffstr/MoiAstroPsikhologBot/internal/chart"
)

var bodies = map[string]string{
	"Sun":     "Солнце",
	"Moon":    "Луна",
	"Mercury": "Меркурий",
	"Venus":   "Венера",
	"Mars":    "Марс",
	"Jupiter": "Юпитер",
	"Saturn":  "Сатурн",
	"Uranus":  "Уран",
	"Neptune": "Нептун",
}

var glyphs = map[string]string{
	"Sun":     "☉",
	"Moon":    "☽",
	"Mercury": "☿",
	"Venus":   "♀",
	"Mars":    "♂",
	"Jupiter": "♃",
	"Saturn":  "♄",
	"Uranus":  "♅",
	"Neptune": "♆",
}

var signs = [...]string{
	"Овен", "Телец", "Близнецы", "Рак", "Лев", "Дева",
	"Весы", "Скорпион", "Стрелец", "Козерог", "Водолей", "Рыбы",
}

// "в Весах", "во Льве"
var signsIn = [...]string{
	"в Овне", "в Тельце", "в Близнецах", "в Раке", "во Льве", "в Деве",
	"в Весах", "в Скорпионе", "в Стрельце", "в Козероге", "в Водолее", "в Рыбах",
}

var aspects = map[chart.AspectKind]string{
	chart.Conjunction: "соединение",
	chart.Sextile:     "секстиль",
	chart.Square:      "квадрат",
	chart.Trine:       "трин",
	chart.Opposition:  "оппозиция",
}

// Body returns the Russian name of a body, or the name itself when unknown.
func Body(name string) string {
	if ru, ok := bodies[name]; ok {
		return ru
	}
	return name
}

// Glyph returns the astrological symbol of a body, or "•".
func Glyph(name string) string {
	if g, ok := glyphs[name]; ok {
		return g
	}
	return "•"
}

func Sign(s chart.Sign) string {
	if s < chart.Aries || s > chart.Pisces {
		return s.String()
	}
	return signs[s]
}

// SignIn is the locative form used after a body name.
func SignIn(s chart.Sign) string {
	if s < chart.Aries || s > chart.Pisces {
		return "в " + s.String()
	}
	return signsIn[s]
}

func Aspect(k chart.AspectKind) string {
	if ru, ok := aspects[k]; ok {
		return ru
	}
	return k.String()
}
