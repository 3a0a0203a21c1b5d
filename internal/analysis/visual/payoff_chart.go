// Package visual renders payoff diagrams to PNG via headless Chrome.
package visual

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"

	"legwork/internal/payoff"
)

type ImageResult struct {
	Bytes       []byte `json:"-"`
	Base64      string `json:"base64"`
	Filename    string `json:"filename"`
	Description string `json:"description"`
}

func (r *ImageResult) DataURI() string {
	if r == nil {
		return ""
	}
	if r.Base64 == "" && len(r.Bytes) > 0 {
		r.Base64 = base64.StdEncoding.EncodeToString(r.Bytes)
	}
	if r.Base64 == "" {
		return ""
	}
	return "data:image/png;base64," + r.Base64
}

// PayoffInput carries one computed payoff result to render.
type PayoffInput struct {
	Context       context.Context
	Symbol        string
	Result        payoff.Theoretical
	RenderTimeout time.Duration
}

const (
	colorBackground    = "#060c1b"
	colorTextPrimary   = "#eceff4"
	colorTextSecondary = "#9ca3af"
	colorCurve         = "#3b82f6"
	colorDistribution  = "#a78bfa"
	colorBreakeven     = "#fbbf24"

	chartWidthPx  = 1200
	chartHeightPx = 560
	distHeightPx  = 240

	defaultRenderTimeout = 20 * time.Second
)

// RenderPayoff draws the payoff curve with its breakevens and the expiry
// price distribution underneath, then screenshots the page to PNG.
func RenderPayoff(input PayoffInput) (ImageResult, error) {
	if err := EnsureHeadlessAvailable(input.Context); err != nil {
		return ImageResult{}, err
	}
	if input.Symbol == "" {
		return ImageResult{}, fmt.Errorf("symbol required for payoff render")
	}
	if len(input.Result.PayoffCurve) == 0 {
		return ImageResult{}, fmt.Errorf("payoff curve is empty for %s", input.Symbol)
	}
	html, desc, err := buildPayoffHTML(input.Symbol, input.Result)
	if err != nil {
		return ImageResult{}, err
	}
	height := chartHeightPx + distHeightPx
	png, err := renderHTMLToPNG(input.Context, html, chartWidthPx, height, input.RenderTimeout)
	if err != nil {
		return ImageResult{}, err
	}
	return ImageResult{
		Bytes:       png,
		Base64:      base64.StdEncoding.EncodeToString(png),
		Filename:    fmt.Sprintf("%s_payoff.png", strings.ToLower(input.Symbol)),
		Description: desc,
	}, nil
}

var (
	headlessOnce sync.Once
	headlessErr  error
)

func EnsureHeadlessAvailable(ctx context.Context) error {
	headlessOnce.Do(func() {
		targetCtx := ctx
		if targetCtx == nil {
			targetCtx = context.Background()
		}
		parent, cancel := chromedp.NewContext(targetCtx)
		if cancel != nil {
			defer cancel()
		}
		headlessErr = chromedp.Run(parent)
	})
	return headlessErr
}

func buildPayoffHTML(symbol string, res payoff.Theoretical) ([]byte, string, error) {
	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)

	xAxis := make([]string, len(res.PayoffCurve))
	plData := make([]opts.LineData, len(res.PayoffCurve))
	for i, pt := range res.PayoffCurve {
		xAxis[i] = fmt.Sprintf("%.2f", pt.Price)
		plData[i] = opts.LineData{Value: round(pt.PL, 2)}
	}

	subtitle := fmt.Sprintf("Max profit %.2f | Max loss %.2f | POP %.1f%% | Breakevens %s",
		res.MaxProfit, res.MaxLoss, res.POP, formatBreakevens(res.Breakevens))

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", chartHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:         fmt.Sprintf("%s P&L at Expiration", strings.ToUpper(symbol)),
			Subtitle:      subtitle,
			Left:          "left",
			Top:           "10",
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(false)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.2)}},
		}),
	)
	line.SetXAxis(xAxis)
	line.AddSeries("P&L", plData,
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorCurve, Width: 2}),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
	)
	line.AddSeries("Breakeven", breakevenMarkers(res.PayoffCurve, res.Breakevens),
		charts.WithLineStyleOpts(opts.LineStyle{Color: colorBreakeven, Width: 0}),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(true)}),
	)
	page.AddCharts(line)

	if len(res.Distribution) > 0 {
		page.AddCharts(buildDistributionChart(res.Distribution))
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return nil, "", err
	}
	desc := fmt.Sprintf("%s payoff | %s", strings.ToUpper(symbol), subtitle)
	return buf.Bytes(), desc, nil
}

// breakevenMarkers places a marker at each curve sample closest to a
// breakeven so the zero crossings stand out on the category axis.
func breakevenMarkers(curve []payoff.CurvePoint, breakevens []float64) []opts.LineData {
	data := make([]opts.LineData, len(curve))
	for i := range data {
		data[i] = opts.LineData{Value: nil}
	}
	for _, be := range breakevens {
		best, dist := -1, math.MaxFloat64
		for i, pt := range curve {
			if d := math.Abs(pt.Price - be); d < dist {
				best, dist = i, d
			}
		}
		if best >= 0 {
			data[best] = opts.LineData{Value: 0.0, Symbol: "diamond", SymbolSize: 12}
		}
	}
	return data
}

func buildDistributionChart(dist []payoff.DistributionPoint) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", distHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{Title: "Expiry Price Distribution", Left: "left", TitleStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{AxisLabel: &opts.AxisLabel{Show: opts.Bool(false)}}),
		charts.WithYAxisOpts(opts.YAxis{
			AxisLabel: &opts.AxisLabel{Show: opts.Bool(true), Color: colorTextSecondary},
			SplitLine: &opts.SplitLine{Show: opts.Bool(true), LineStyle: &opts.LineStyle{Color: colorTextSecondary, Opacity: opts.Float(0.15)}},
		}),
	)
	xAxis := make([]string, len(dist))
	bars := make([]opts.BarData, len(dist))
	for i, pt := range dist {
		xAxis[i] = fmt.Sprintf("%.2f", pt.Price)
		bars[i] = opts.BarData{
			Value:     round(pt.Density, 4),
			ItemStyle: &opts.ItemStyle{Color: colorDistribution, Opacity: opts.Float(0.6)},
		}
	}
	bar.SetXAxis(xAxis)
	bar.AddSeries("Density", bars)
	return bar
}

func formatBreakevens(breakevens []float64) string {
	if len(breakevens) == 0 {
		return "none"
	}
	parts := make([]string, len(breakevens))
	for i, be := range breakevens {
		parts[i] = fmt.Sprintf("%.2f", be)
	}
	return strings.Join(parts, ", ")
}

func round(val float64, decimals int) float64 {
	if decimals <= 0 {
		return math.Round(val)
	}
	scale := math.Pow10(decimals)
	return math.Round(val*scale) / scale
}

func renderHTMLToPNG(ctx context.Context, html []byte, width, height int, timeout time.Duration) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		timeout = defaultRenderTimeout
	}
	parent, cancel := chromedp.NewContext(ctx)
	defer cancel()

	timeoutCtx, cancelTimeout := context.WithTimeout(parent, timeout)
	defer cancelTimeout()

	dataURI := "data:text/html;base64," + base64.StdEncoding.EncodeToString(html)
	var screenshot []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate(dataURI),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(1500 * time.Millisecond),
		chromedp.FullScreenshot(&screenshot, 0),
	}
	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return nil, err
	}
	return screenshot, nil
}
