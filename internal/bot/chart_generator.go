package bot

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-analyze/charts"

	"gitlab.com/yelinaung/split-bot/internal/models"
)

var errNothingToChart = errors.New("no outstanding balances to chart")

// GenerateOutstandingChart creates a pie chart of what each participant still
// owes. Returns PNG image as bytes.
func GenerateOutstandingChart(owed []models.Outstanding) ([]byte, error) {
	values, names := outstandingSeries(owed)
	if len(values) == 0 {
		return nil, errNothingToChart
	}

	p, err := charts.PieRender(
		values,
		charts.TitleOptionFunc(charts.TitleOption{
			Text: "Outstanding Balances",
		}),
		charts.LegendLabelsOptionFunc(names),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}

	return buf, nil
}

// outstandingSeries converts balances to chart values, skipping zero rows.
func outstandingSeries(owed []models.Outstanding) ([]float64, []string) {
	values := make([]float64, 0, len(owed))
	names := make([]string, 0, len(owed))
	for _, o := range owed {
		if !o.Amount.IsPositive() {
			continue
		}
		values = append(values, o.Amount.InexactFloat64())
		names = append(names, "@"+o.Username)
	}
	return values, names
}

// generateChartFilename creates filename like "owed_2026-01-31.png".
func generateChartFilename(now time.Time) string {
	return fmt.Sprintf("owed_%s.png", now.Format("2006-01-02"))
}
