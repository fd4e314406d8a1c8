package handlers

import (
	"html/template"
	"io"
	"time"

	"bike-dashboard/internal/models"
	"bike-dashboard/internal/presenter"
)

// LogoURL is the image shown above the date pickers.
const LogoURL = "https://cdn1.iconfinder.com/data/icons/bike-hire/64/RENTAL-bicycle-cycling-transportation-1024.png"

// EmptyChartText replaces a chart that has nothing to plot.
const EmptyChartText = "No data for the selected range"

type pageData struct {
	*presenter.Dashboard
	Logo   string
	Charts []presenter.ChartConfig
}

var pageTemplate = template.Must(template.New("page").Funcs(template.FuncMap{
	"date":      func(t time.Time) string { return t.Format(models.DateLayout) },
	"emptyText": func() string { return EmptyChartText },
}).Parse(pageHTML))

func renderPage(w io.Writer, d *presenter.Dashboard) error {
	return pageTemplate.Execute(w, pageData{
		Dashboard: d,
		Logo:      LogoURL,
		Charts:    []presenter.ChartConfig{d.Daily, d.Hourly, d.Weather, d.Season, d.Holiday},
	})
}

const pageHTML = `{{define "chart"}}<figure class="chart">
  {{if and (ne .ID "daily") (ne .ID "hourly")}}<figcaption>{{.Title}}{{with .Subtitle}}<small>{{.}}</small>{{end}}</figcaption>{{end}}
  {{if .Empty}}<p class="empty">{{emptyText}}</p>{{else}}<canvas id="chart-{{.ID}}"></canvas>{{end}}
</figure>{{end}}<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
    <script src="https://cdn.jsdelivr.net/npm/chart.js@4.4.1/dist/chart.umd.min.js"></script>
    <style>
        body { margin: 0; display: flex; font-family: sans-serif; color: #31333f; }
        aside { width: 260px; padding: 24px; background: #f0f2f6; min-height: 100vh; }
        aside img { width: 100%; }
        aside label, aside input, aside button { display: block; width: 100%; margin-top: 8px; }
        main { flex: 1; padding: 24px 48px; }
        .row { display: flex; gap: 24px; align-items: flex-end; }
        .row > * { flex: 1; }
        .metric span { display: block; font-size: 14px; }
        .metric strong { font-size: 32px; }
        .chart { margin: 16px 0; }
        .chart figcaption { text-align: center; font-size: 15px; }
        .chart small { display: block; color: #808495; }
        .empty { padding: 48px; text-align: center; color: #808495; border: 1px dashed #d3d3d3; }
        footer { margin-top: 32px; font-size: 12px; color: #808495; }
    </style>
</head>
<body>
<aside>
    <img src="{{.Logo}}" alt="Bike rental logo">
    <form method="get" action="/">
        <label for="start_date">Time Range</label>
        <input type="date" id="start_date" name="start_date" min="{{date .Bounds.Start}}" max="{{date .Bounds.End}}" value="{{date .Range.Start}}">
        <input type="date" id="end_date" name="end_date" min="{{date .Bounds.Start}}" max="{{date .Bounds.End}}" value="{{date .Range.End}}">
        <input type="hidden" name="series" value="{{.Series}}">
        <button type="submit">Apply</button>
    </form>
</aside>
<main>
    <h1>{{.Title}}</h1>

    <h2>Total Rents by Date</h2>
    <div class="row">
        {{range .Metrics}}<div class="metric"><span>{{.Label}}</span><strong>{{.Display}}</strong></div>
        {{end}}
        <form method="get" action="/">
            <input type="hidden" name="start_date" value="{{date .Range.Start}}">
            <input type="hidden" name="end_date" value="{{date .Range.End}}">
            <label for="series">View Rents by:</label>
            <select id="series" name="series" onchange="this.form.submit()">
                {{range .Choices}}<option value="{{.Value}}" {{if .Selected}}selected{{end}}>{{.Label}}</option>
                {{end}}
            </select>
        </form>
    </div>
    {{template "chart" .Daily}}

    <h2>Average Daily Rents by Hour</h2>
    {{template "chart" .Hourly}}

    <h2>Average Rents by Weathers and Seasons</h2>
    <div class="row">
        {{template "chart" .Weather}}
        {{template "chart" .Season}}
    </div>

    <h2>Average Rents by Work/Holiday</h2>
    <div class="row">
        {{template "chart" .Holiday}}
        <div></div>
    </div>

    <footer>{{.Caption}}</footer>
</main>
<script>
    const charts = {{.Charts}};
    for (const c of charts) {
        const el = document.getElementById("chart-" + c.id);
        if (c.empty || !el) {
            continue;
        }
        new Chart(el, {
            type: c.chartType,
            data: {
                labels: c.series[0].data.map(p => p.label),
                datasets: c.series.map(s => ({
                    label: s.name,
                    data: s.data.map(p => p.value),
                    borderColor: s.color,
                    backgroundColor: s.colors || s.color,
                    borderWidth: 1.5,
                    spanGaps: false
                }))
            },
            options: {
                plugins: { legend: { display: false } },
                scales: { x: { title: { display: !!c.xAxis, text: c.xAxis } } }
            }
        });
    }
</script>
</body>
</html>`
