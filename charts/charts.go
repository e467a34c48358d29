package charts

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"suumo-analysis/models"
)

// ChartConfig holds configuration for charts.
type ChartConfig struct {
	Title    string
	Subtitle string
	Width    string
	Height   string
	Theme    string
	Color    string
}

// DefaultChartConfig returns default chart configuration.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:  "1000px",
		Height: "600px",
		Theme:  "light",
		Color:  "#5470C6",
	}
}

func (c ChartConfig) globalOptions() []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithInitializationOpts(opts.Initialization{
			Width:  c.Width,
			Height: c.Height,
			Theme:  c.Theme,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    c.Title,
			Subtitle: c.Subtitle,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show: opts.Bool(true),
		}),
		charts.WithColorsOpts(opts.Colors{c.Color}),
	}
}

// RenderRentVsTime writes a scatter of mean total rent against transit time,
// one point per station with at least minProperties listings.
func RenderRentVsTime(summaries []models.StationSummary, minProperties int, config ChartConfig, outputPath string) error {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(append(config.globalOptions(),
		charts.WithXAxisOpts(opts.XAxis{Name: "移動時間（分）", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "平均総家賃（円）", Type: "value"}),
	)...)

	points := make([]opts.ScatterData, 0, len(summaries))
	for _, s := range summaries {
		if s.PropertyCount < minProperties {
			continue
		}
		points = append(points, opts.ScatterData{
			Name:       fmt.Sprintf("%s (%d件)", s.StationName, s.PropertyCount),
			Value:      []interface{}{s.TimeMin, s.MeanRent},
			SymbolSize: symbolSize(s.PropertyCount),
		})
	}

	scatter.AddSeries("stations", points)
	return render(scatter, outputPath)
}

// RenderBargainRanking writes a bar chart of the first topN ranked stations'
// bargain amount in man-yen.
func RenderBargainRanking(ranked []models.RankedStation, topN int, config ChartConfig, outputPath string) error {
	if topN > 0 && len(ranked) > topN {
		ranked = ranked[:topN]
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(append(config.globalOptions(),
		charts.WithYAxisOpts(opts.YAxis{Name: "割安度（万円）"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Rotate: 45}}),
	)...)

	labels := make([]string, len(ranked))
	data := make([]opts.BarData, len(ranked))
	for i, r := range ranked {
		labels[i] = r.StationName
		data[i] = opts.BarData{Value: r.BargainMan}
	}

	bar.SetXAxis(labels).
		AddSeries("bargain", data).
		SetSeriesOptions(
			charts.WithLabelOpts(opts.Label{
				Show: opts.Bool(false),
			}),
		)
	return render(bar, outputPath)
}

type renderer interface {
	Render(w io.Writer) error
}

func render(chart renderer, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create chart dir: %w", err)
	}

	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	defer f.Close()

	if err := chart.Render(f); err != nil {
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return nil
}

// symbolSize scales markers with listing count, clamped to a readable range.
func symbolSize(count int) int {
	return min(max(count/2, 6), 40)
}
