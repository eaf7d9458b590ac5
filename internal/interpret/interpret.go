// Package interpret asks a language model for a short reading of every
// planet placement in a chart.
package interpret

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Gabbasoffstr/MoiAstroPsikhologBot/internal/chart"
	"github.com/Gabbasoffstr/MoiAstroPsikhologBot/internal/words"
)

var ErrEmptyAnswer = errors.New("model returned an empty answer")

// Fallback is shown in place of a reading that could not be produced.
const Fallback = "Интерпретация временно недоступна. Попробуйте запросить отчёт позже."

// SystemPrompt frames every request.
const SystemPrompt = "Ты опытный астропсихолог. Пиши по-русски, тепло и конкретно, " +
	"без фатализма и медицинских советов. Объём ответа: один абзац, 80-120 слов."

type Interpreter interface {
	Interpret(ctx context.Context, prompt string) (string, error)
}

// PromptFor describes one placement for the model.
func PromptFor(p chart.Placement) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Планета: %s. Знак: %s (%.0f°).",
		words.Body(p.Body.Name), words.Sign(p.Sign), p.Degree)
	if p.House > 0 {
		fmt.Fprintf(&b, " Дом: %d.", p.House)
	}
	if len(p.Aspects) > 0 {
		b.WriteString(" Аспекты: ")
		for i, a := range p.Aspects {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s с планетой %s (%.1f°)",
				words.Aspect(a.Kind), words.Body(a.Other(p.Body.Name)), a.Separation)
		}
		b.WriteString(".")
	}
	b.WriteString(" Дай психологическую интерпретацию этого положения для натальной карты.")
	return b.String()
}

// Options tune All.
type Options struct {
	Workers int
	Retries int
	Timeout time.Duration
	// Backoff is the pause before the first retry; it doubles each time.
	Backoff time.Duration
}

// All interprets every resolved placement with at most Workers requests in
// flight. The result is aligned with placements; bodies without a position
// get an empty string, failed requests get Fallback, and the failures are
// joined into the returned error so the caller can log them and still render
// the report.
func All(ctx context.Context, in Interpreter, placements []chart.Placement, opts Options) ([]string, error) {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	out := make([]string, len(placements))
	errs := make([]error, len(placements))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, p := range placements {
		if errors.Is(p.Err, chart.ErrMissingBodyData) {
			continue
		}
		g.Go(func() error {
			text, err := withRetry(gctx, in, PromptFor(p), opts)
			if err != nil {
				out[i] = Fallback
				errs[i] = fmt.Errorf("%s: %w", p.Body.Name, err)
				return nil
			}
			out[i] = text
			return nil
		})
	}
	g.Wait()

	if err := ctx.Err(); err != nil {
		return out, err
	}
	return out, errors.Join(errs...)
}

func withRetry(ctx context.Context, in Interpreter, prompt string, opts Options) (string, error) {
	backoff := opts.Backoff
	var lastErr error
	for attempt := 0; attempt <= opts.Retries; attempt++ {
		if attempt > 0 && backoff > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		callCtx := ctx
		var cancel context.CancelFunc = func() {}
		if opts.Timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		}
		text, err := in.Interpret(callCtx, prompt)
		cancel()
		if err == nil {
			text = strings.TrimSpace(text)
			if text != "" {
				return text, nil
			}
			err = ErrEmptyAnswer
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}
	return "", lastErr
}
