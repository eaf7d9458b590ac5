package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Gabbasoffstr/MoiAstroPsikhologBot/internal/birth"
	"github.com/Gabbasoffstr/MoiAstroPsikhologBot/internal/chart"
	"github.com/Gabbasoffstr/MoiAstroPsikhologBot/internal/ephemeris"
	"github.com/Gabbasoffstr/MoiAstroPsikhologBot/internal/geo"
	"github.com/Gabbasoffstr/MoiAstroPsikhologBot/internal/interpret"
	"github.com/Gabbasoffstr/MoiAstroPsikhologBot/internal/progress"
	"github.com/Gabbasoffstr/MoiAstroPsikhologBot/internal/report"
	"github.com/Gabbasoffstr/MoiAstroPsikhologBot/internal/store"
	"github.com/Gabbasoffstr/MoiAstroPsikhologBot/internal/words"
)

const (
	msgFailed        = "❌ Что-то пошло не так. Попробуйте ещё раз позже."
	msgPlaceNotFound = "❌ Не удалось найти такой город. Проверьте написание или укажите ближайший крупный город."
	msgTimezone      = "❌ Не удалось определить часовой пояс места рождения. Попробуйте позже."
	msgPolar         = "❌ Для мест рождения у полюсов дома не рассчитываются."
	msgPartial       = "⚠️ Часть положений рассчитать не удалось, карта неполная."
	msgNotSubscribed = "🔒 Полный разбор доступен подписчикам канала %s. Подпишитесь и нажмите кнопку ещё раз."
	msgNoAccess      = "🔒 Полный разбор доступен только по подписке. Обратитесь к администратору."
	msgLimit         = "⏳ Лимит расширенных отчётов на сегодня исчерпан. Следующий будет доступен через %s."

	basicReportName    = "natal_chart.pdf"
	extendedReportName = "natal_chart_full.pdf"
)

var (
	chartStages  = []string{"geocode", "ephemeris", "render", "deliver"}
	reportStages = []string{"access", "ephemeris", "interpret", "render", "deliver"}
)

// chartErrorMessage picks the user-facing text for a failed chart step.
func chartErrorMessage(err error) string {
	switch {
	case errors.Is(err, geo.ErrPlaceNotFound):
		return msgPlaceNotFound
	case errors.Is(err, geo.ErrTimezone):
		return msgTimezone
	case errors.Is(err, ephemeris.ErrLatitude):
		return msgPolar
	default:
		return msgFailed
	}
}

// newTracker attaches a progress bar for req to the shared container.
func (app *application) newTracker(req TelegramRequest, stages []string) *progress.Tracker {
	label := fmt.Sprintf("%s %d", req.Kind, req.UserID)
	return progress.New(app.pbp, req.ID, label, stages)
}

// handleRequest dispatches a queued request by kind.
func (app *application) handleRequest(ctx context.Context, req TelegramRequest) {
	switch req.Kind {
	case requestChart:
		app.handleChart(ctx, req)
	case requestFullReport:
		app.handleFullReport(ctx, req)
	}
}

// fail logs err against the request, aborts its bar and tells the user.
func (app *application) fail(ctx context.Context, req TelegramRequest, tr *progress.Tracker, err error, text string) {
	tr.Fail(err)
	app.LogError(fmt.Sprintf("[%s] %s %s", req.ID, req.Kind, tr.Stage()), err)
	app.sendText(ctx, req.ChatID, text, nil)
}

// buildChart computes the sky for the birth instant at place and derives
// the chart from it.
func (app *application) buildChart(in birth.Input, place geo.Place) (*chart.Chart, *ephemeris.Positions, error) {
	loc, err := place.Location()
	if err != nil {
		return nil, nil, err
	}
	pos, err := ephemeris.Compute(in.In(loc), place.Lat, place.Lon, app.houseSystem, app.config.Chart.Bodies)
	if err != nil {
		return nil, nil, fmt.Errorf("ephemeris: %w", err)
	}
	c, err := chart.Build(pos.Bodies, pos.Cusps, app.config.OrbDegrees())
	if err != nil {
		return nil, nil, fmt.Errorf("build chart: %w", err)
	}
	return c, pos, nil
}

func reportMeta(in birth.Input, place geo.Place, hs ephemeris.HouseSystem) report.Meta {
	return report.Meta{
		Birth:       in.Date() + " " + in.Clock(),
		Place:       place.Name,
		HouseSystem: string(hs),
	}
}

// summaryOf maps each placed body to its sign for the log.
func summaryOf(c *chart.Chart) map[string]string {
	out := make(map[string]string, len(c.Placements))
	for _, p := range c.Placements {
		if p.Body.Valid() {
			out[p.Body.Name] = p.Sign.String()
		}
	}
	return out
}

func (app *application) logPartial(req TelegramRequest, c *chart.Chart) {
	for _, p := range c.Placements {
		if p.Err != nil {
			app.LogError(fmt.Sprintf("[%s] chart %d", req.ID, req.UserID), p.Err)
		}
	}
}

// handleChart answers birth data with the summary message, the basic PDF and
// a button for the extended report, and saves the data for later.
func (app *application) handleChart(ctx context.Context, req TelegramRequest) {
	tr := app.newTracker(req, chartStages)

	tr.Step()
	place, err := app.geo.Locate(ctx, req.Birth.City)
	if err != nil {
		app.fail(ctx, req, tr, err, chartErrorMessage(err))
		return
	}

	tr.Step()
	c, pos, err := app.buildChart(req.Birth, place)
	if err != nil {
		app.fail(ctx, req, tr, err, chartErrorMessage(err))
		return
	}
	if c.Status() == chart.StatusPartial {
		app.logPartial(req, c)
	}

	_, err = store.Update(ctx, app.store, req.UserID, func(r *store.UserRecord) error {
		r.BirthDate = req.Birth.Date()
		r.BirthTime = req.Birth.Clock()
		r.City = req.Birth.City
		r.Place = place.Name
		r.Lat, r.Lon = place.Lat, place.Lon
		r.Timezone = place.Timezone
		r.Summary = summaryOf(c)
		asc, _ := chart.SignOf(pos.Ascendant)
		r.Ascendant = words.Sign(asc)
		return nil
	})
	if err != nil {
		app.LogError(fmt.Sprintf("[%s] save record", req.ID), err)
	}

	tr.Step()
	summary := report.Summary(c)
	if c.Status() == chart.StatusPartial {
		summary += "\n\n" + msgPartial
	}
	path, err := app.renderer.WriteFile(app.config.Report.OutputDir, report.Basic(c, reportMeta(req.Birth, place, app.houseSystem)))
	if err != nil {
		app.fail(ctx, req, tr, err, msgFailed)
		return
	}
	defer os.Remove(path)

	tr.Step()
	app.sendText(ctx, req.ChatID, summary, fullReportKeyboard())
	if err := app.sendDocument(ctx, req.ChatID, path, basicReportName, "🗺 Натальная карта"); err != nil {
		app.fail(ctx, req, tr, fmt.Errorf("send document: %w", err), msgFailed)
		return
	}
	tr.Done()
	app.LogInfo(fmt.Sprintf("[%s] chart for %d sent (%s)", req.ID, req.UserID, tr.Timings()))
}

// recordInput rebuilds the birth input and place saved with a user's record.
func recordInput(rec store.UserRecord) (birth.Input, geo.Place, error) {
	in, err := birth.Parse(rec.BirthDate + " " + rec.BirthTime + " " + rec.City)
	if err != nil {
		return birth.Input{}, geo.Place{}, fmt.Errorf("stored birth data: %w", err)
	}
	place := geo.Place{Name: rec.Place, Lat: rec.Lat, Lon: rec.Lon, Timezone: rec.Timezone}
	return in, place, nil
}

func (app *application) interpretOptions() interpret.Options {
	return interpret.Options{
		Workers: app.config.LLM.MaxWorkers,
		Retries: app.config.LLM.MaxRetries,
		Timeout: time.Duration(app.config.LLM.TimeoutSeconds) * time.Second,
		Backoff: 2 * time.Second,
	}
}

// formatWait renders a wait in hours and minutes, at least one minute.
func formatWait(d time.Duration) string {
	d = d.Round(time.Minute)
	if d < time.Minute {
		d = time.Minute
	}
	h, m := int(d.Hours()), int(d.Minutes())%60
	if h == 0 {
		return fmt.Sprintf("%d мин", m)
	}
	return fmt.Sprintf("%d ч %d мин", h, m)
}

// handleFullReport sends the extended PDF with an interpretation per planet
// to subscribed users, within their daily allowance.
func (app *application) handleFullReport(ctx context.Context, req TelegramRequest) {
	tr := app.newTracker(req, reportStages)

	tr.Step()
	rec, err := app.store.Get(ctx, req.UserID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !rec.HasBirthData()) {
		tr.Fail(store.ErrNotFound)
		app.sendText(ctx, req.ChatID, msgNoBirthData, nil)
		return
	}
	if err != nil {
		app.fail(ctx, req, tr, err, msgFailed)
		return
	}

	subscribed, err := app.isSubscribed(ctx, req.UserID, rec)
	if err != nil {
		app.LogError(fmt.Sprintf("[%s] subscription check", req.ID), err)
	}
	if !subscribed {
		tr.Fail(ErrNotSubscribed)
		app.sendText(ctx, req.ChatID, app.notSubscribedMessage(), nil)
		return
	}

	ticket, wait := app.daily.Reserve(req.UserID)
	if ticket == nil {
		tr.Fail(ErrDailyLimit)
		app.sendText(ctx, req.ChatID, fmt.Sprintf(msgLimit, formatWait(wait)), nil)
		return
	}
	delivered := false
	defer func() {
		if !delivered {
			ticket.Refund()
		}
	}()

	tr.Step()
	in, place, err := recordInput(rec)
	if err != nil {
		app.fail(ctx, req, tr, err, msgFailed)
		return
	}
	c, _, err := app.buildChart(in, place)
	if err != nil {
		app.fail(ctx, req, tr, err, chartErrorMessage(err))
		return
	}

	tr.Step()
	app.sendText(ctx, req.ChatID, msgReportQueued, nil)
	texts, err := interpret.All(ctx, app.interpreter, c.Placements, app.interpretOptions())
	if ctx.Err() != nil {
		tr.Fail(ctx.Err())
		return
	}
	if err != nil {
		// Failed planets carry the fallback text; the report still goes out.
		app.LogError(fmt.Sprintf("[%s] interpret", req.ID), err)
	}

	tr.Step()
	path, err := app.renderer.WriteFile(app.config.Report.OutputDir, report.Extended(c, reportMeta(in, place, app.houseSystem), texts))
	if err != nil {
		app.fail(ctx, req, tr, err, msgFailed)
		return
	}
	defer os.Remove(path)

	tr.Step()
	if err := app.sendDocument(ctx, req.ChatID, path, extendedReportName, "📜 Расширенный разбор натальной карты"); err != nil {
		app.fail(ctx, req, tr, fmt.Errorf("send document: %w", err), msgFailed)
		return
	}
	delivered = true

	_, err = store.Update(ctx, app.store, req.UserID, func(r *store.UserRecord) error {
		r.Reports++
		r.LastReportAt = time.Now()
		return nil
	})
	if err != nil {
		app.LogError(fmt.Sprintf("[%s] save record", req.ID), err)
	}
	tr.Done()
	app.LogInfo(fmt.Sprintf("[%s] report for %d sent (%s)", req.ID, req.UserID, tr.Timings()))
}
