package chart

import (
	"html/template"
	"io"
	"time"
)

const highchartsURL = "https://code.highcharts.com/11.4.8/highcharts.js"

var pageTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
    <style>
        body { margin: 0; font-family: system-ui, sans-serif; }
        main { display: flex; justify-content: center; width: 100%; min-height: 100vh; padding: 6rem 0; box-sizing: border-box; }
        .panel { display: flex; flex-direction: column; align-items: center; width: 90%; }
        #chart { width: 100%; min-height: 480px; }
        .error { color: #b00020; }
    </style>
</head>
<body>
<main>
    <div class="panel">
    {{- if .Error}}
        <h1>Something went wrong</h1>
        <p class="error">{{.Error}}</p>
    {{- else}}
        <div id="chart"></div>
        <p>{{.Caption}}</p>
        {{- if not .GeneratedAt.IsZero}}
        <p><small>Data as of {{.GeneratedAt.Format "02/01/2006, 15:04:05 MST"}}</small></p>
        {{- end}}
    {{- end}}
    </div>
</main>
{{- if not .Error}}
<script src="{{.ScriptURL}}"></script>
<script>
    const options = {{.Options}};
    const anomalies = new Set({{.Anomalies}});
    options.tooltip.formatter = function (tooltip) {
        const text = tooltip.defaultFormatter.call(this, tooltip);
        if (typeof this.x === "string" && anomalies.has(this.x)) {
            return [].concat(text, "<br/><b>ANOMALY</b>");
        }
        return text;
    };
    Highcharts.chart("chart", options);
</script>
{{- end}}
</body>
</html>
`))

type page struct {
	Title       string
	Caption     string
	ScriptURL   string
	Options     Options
	Anomalies   []string
	GeneratedAt time.Time
	Error       string
}

// Render writes the dashboard page for opts. generatedAt is shown under the chart when non-zero.
func Render(w io.Writer, opts Options, generatedAt time.Time) error {
	anomalies := opts.Anomalies
	if anomalies == nil {
		anomalies = []string{}
	}
	return pageTemplate.Execute(w, page{
		Title:       Title,
		Caption:     Caption,
		ScriptURL:   highchartsURL,
		Options:     opts,
		Anomalies:   anomalies,
		GeneratedAt: generatedAt,
	})
}

// RenderError writes the dashboard page with message in place of the chart
func RenderError(w io.Writer, message string) error {
	return pageTemplate.Execute(w, page{
		Title: Title,
		Error: message,
	})
}
