package dashboard

import (
	"errors"
	"html/template"
	"math"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"predmaint/internal/features"
	"predmaint/internal/health"
	"predmaint/internal/infer"
	"predmaint/internal/model"
)

// formValues carries the form state back into the re-rendered page.
type formValues struct {
	MachineModel       string
	AvgTemperature     string
	VibrationLevel     string
	RotatingSpeed      string
	VoltageFluctuation string
	TorqueNm           string
	OilViscosity       string
	AmbientHumidity    string
	OperatorExperience string
	LastServiceDays    string
	WorkingHoursTotal  string
	FaultCode          string
}

// defaultFormValues mirrors the original UI's pre-filled widget defaults.
func defaultFormValues() formValues {
	return formValues{
		MachineModel:       "Model_A",
		AvgTemperature:     "50",
		VibrationLevel:     "2.0",
		RotatingSpeed:      "1500",
		VoltageFluctuation: "5.0",
		TorqueNm:           "100.0",
		OilViscosity:       "10.0",
		AmbientHumidity:    "40.0",
		OperatorExperience: "Junior",
		LastServiceDays:    "30",
		WorkingHoursTotal:  "1000",
		FaultCode:          "None",
	}
}

func formValuesFrom(in features.RawInput) formValues {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return formValues{
		MachineModel:       in.MachineModel,
		AvgTemperature:     f(in.AvgTemperature),
		VibrationLevel:     f(in.VibrationLevel),
		RotatingSpeed:      f(in.RotatingSpeed),
		VoltageFluctuation: f(in.VoltageFluctuation),
		TorqueNm:           f(in.TorqueNm),
		OilViscosity:       f(in.OilViscosity),
		AmbientHumidity:    f(in.AmbientHumidity),
		OperatorExperience: in.OperatorExperience,
		LastServiceDays:    strconv.Itoa(in.LastServiceDays),
		WorkingHoursTotal:  strconv.Itoa(in.WorkingHoursTotal),
		FaultCode:          in.FaultCode,
	}
}

type contributionBar struct {
	Feature  string
	Value    float64
	WidthPct float64
	Positive bool
}

type explanationView struct {
	BaseValue float64
	Margin    float64
	Bars      []contributionBar
}

type resultView struct {
	ID              string
	ProbabilityPct  float64
	Verdict         string
	VerdictSeverity string
	VerdictAdvisory string
	RUL             float64
	RULTier         string
	RULSeverity     string
	RULAdvisory     string
	Explanation     *explanationView
	ExplanationNote string
	LatencyMs       float64
}

type pageData struct {
	Form             formValues
	MachineModels    []string
	ExperienceLevels []string
	FaultCodes       []string
	Error            string
	Result           *resultView
	Artifacts        map[string]model.Info
	InputColumns     []string
}

func (s *Server) newPageData() pageData {
	return pageData{
		Form:             defaultFormValues(),
		MachineModels:    features.MachineModels,
		ExperienceLevels: features.ExperienceLevels,
		FaultCodes:       features.FaultCodes,
		Artifacts:        s.set.Infos,
		InputColumns:     s.set.Preprocessor.InputColumns(),
	}
}

func (s *Server) buildResultView(p *infer.Prediction) *resultView {
	verdict := health.VerdictForClass(p.HealthClass)
	tier := health.TierForRUL(p.RUL)
	rv := &resultView{
		ID:              p.ID,
		ProbabilityPct:  p.FailureProbability * 100,
		Verdict:         verdict.String(),
		VerdictSeverity: verdict.Severity(),
		VerdictAdvisory: verdict.Advisory(),
		RUL:             p.RUL,
		RULTier:         tier.String(),
		RULSeverity:     tier.Severity(),
		RULAdvisory:     tier.Advisory(),
		LatencyMs:       float64(p.Elapsed.Microseconds()) / 1000.0,
	}

	exp, err := s.engine.Explain(p)
	if err != nil {
		if errors.Is(err, model.ErrUnsupportedModel) {
			rv.ExplanationNote = ExplanationFallback
		} else {
			rv.ExplanationNote = err.Error()
		}
		return rv
	}

	top := exp.Top(s.topN)
	maxAbs := 0.0
	for _, c := range top {
		if a := math.Abs(c.Value); a > maxAbs {
			maxAbs = a
		}
	}
	ev := &explanationView{BaseValue: exp.BaseValue, Margin: exp.Margin}
	for _, c := range top {
		width := 0.0
		if maxAbs > 0 {
			width = math.Abs(c.Value) / maxAbs * 100
		}
		ev.Bars = append(ev.Bars, contributionBar{
			Feature:  c.Feature,
			Value:    c.Value,
			WidthPct: width,
			Positive: c.Value >= 0,
		})
	}
	rv.Explanation = ev
	return rv
}

func (s *Server) renderPage(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pageTmpl.Execute(w, data); err != nil {
		log.Error().Err(err).Msg("render page failed")
	}
}

var pageTmpl = template.Must(template.New("page").Parse(pageTemplate))

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
    <title>Predictive Maintenance System</title>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <style>
        body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 20px; background-color: #f5f5f5; }
        .container { max-width: 1100px; margin: 0 auto; }
        .header { background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); color: white; padding: 20px; border-radius: 10px; margin-bottom: 20px; }
        .header h1 { margin: 0; font-size: 2em; text-align: center; }
        .layout { display: grid; grid-template-columns: 320px 1fr; gap: 20px; }
        .card { background: white; border-radius: 10px; padding: 20px; box-shadow: 0 4px 6px rgba(0,0,0,0.1); margin-bottom: 20px; }
        .card h3 { margin-top: 0; color: #333; border-bottom: 2px solid #eee; padding-bottom: 10px; }
        label { display: block; font-weight: 500; color: #666; margin-top: 10px; }
        input, select { width: 100%; padding: 6px; margin-top: 4px; border: 1px solid #ccc; border-radius: 4px; box-sizing: border-box; }
        button { margin-top: 16px; width: 100%; padding: 10px; background: #667eea; color: white; border: none; border-radius: 6px; font-size: 1em; cursor: pointer; }
        button:hover { background: #5a6fd6; }
        .banner { padding: 12px; border-radius: 6px; margin-bottom: 16px; font-weight: 500; }
        .banner-ok { background: #d4edda; color: #155724; }
        .banner-info { background: #d1ecf1; color: #0c5460; }
        .banner-warning { background: #fff3cd; color: #856404; }
        .banner-error { background: #f8d7da; color: #721c24; }
        .large-metric { font-size: 1.8em; text-align: center; margin: 10px 0; font-weight: bold; color: #333; }
        .bar-row { display: flex; align-items: center; margin: 4px 0; }
        .bar-label { width: 260px; font-size: 0.85em; color: #555; text-align: right; padding-right: 8px; }
        .bar-track { flex: 1; }
        .bar { height: 14px; border-radius: 3px; }
        .bar-pos { background-color: #dc3545; }
        .bar-neg { background-color: #28a745; }
        .bar-value { width: 70px; font-size: 0.8em; color: #333; padding-left: 6px; }
        .muted { color: #888; font-size: 0.85em; }
        ul.summary { color: #555; line-height: 1.6; }
        .footer { text-align: center; color: #888; margin-top: 20px; font-size: 0.9em; }
    </style>
</head>
<body>
<div class="container">
    <div class="header"><h1>Predictive Maintenance System</h1></div>

    {{if .Error}}<div class="banner banner-error">{{.Error}}</div>{{end}}

    <div class="layout">
        <div>
            <form class="card" method="POST" action="/predict">
                <h3>Machine Parameters</h3>
                <label>Machine Model
                    <select name="machine_model">
                        {{range .MachineModels}}<option value="{{.}}" {{if eq . $.Form.MachineModel}}selected{{end}}>{{.}}</option>{{end}}
                    </select>
                </label>
                <label>Average Temperature (&deg;C)
                    <input type="number" name="avg_temperature" min="0" max="150" step="any" value="{{.Form.AvgTemperature}}" required>
                </label>
                <label>Vibration Level
                    <input type="number" name="vibration_level" min="0" max="20" step="any" value="{{.Form.VibrationLevel}}" required>
                </label>
                <label>Rotating Speed (RPM)
                    <input type="number" name="rotating_speed" min="0" max="6000" step="any" value="{{.Form.RotatingSpeed}}" required>
                </label>
                <label>Voltage Fluctuation
                    <input type="number" name="voltage_fluctuation" min="0" max="300" step="any" value="{{.Form.VoltageFluctuation}}" required>
                </label>
                <label>Torque (Nm)
                    <input type="number" name="torque_nm" min="0" max="200" step="any" value="{{.Form.TorqueNm}}" required>
                </label>
                <label>Oil Viscosity
                    <input type="number" name="oil_viscosity" min="0" max="100" step="any" value="{{.Form.OilViscosity}}" required>
                </label>
                <label>Ambient Humidity (%)
                    <input type="number" name="ambient_humidity" min="0" max="100" step="any" value="{{.Form.AmbientHumidity}}" required>
                </label>
                <label>Operator Experience
                    <select name="operator_experience">
                        {{range .ExperienceLevels}}<option value="{{.}}" {{if eq . $.Form.OperatorExperience}}selected{{end}}>{{.}}</option>{{end}}
                    </select>
                </label>
                <label>Days Since Last Service
                    <input type="number" name="last_service_days" min="0" max="1000" step="1" value="{{.Form.LastServiceDays}}" required>
                </label>
                <label>Fault Code
                    <select name="fault_code">
                        {{range .FaultCodes}}<option value="{{.}}" {{if eq . $.Form.FaultCode}}selected{{end}}>{{.}}</option>{{end}}
                    </select>
                </label>
                <label>Total Working Hours
                    <input type="number" name="working_hours_total" min="0" max="50000" step="1" value="{{.Form.WorkingHoursTotal}}" required>
                </label>
                <button type="submit">Predict</button>
            </form>
        </div>

        <div>
            <div class="card">
                <h3>Prediction</h3>
                {{if .Result}}
                    <div class="banner banner-{{.Result.VerdictSeverity}}">{{.Result.Verdict}} &mdash; {{.Result.VerdictAdvisory}}</div>
                    <div class="large-metric">{{printf "%.1f" .Result.ProbabilityPct}}% failure probability</div>
                    <div class="banner banner-{{.Result.RULSeverity}}">{{.Result.RULAdvisory}}</div>
                    <div class="large-metric">{{printf "%.0f" .Result.RUL}} hours remaining</div>
                    <div class="muted">prediction {{.Result.ID}} &middot; {{printf "%.2f" .Result.LatencyMs}} ms</div>
                {{else}}
                    <p class="muted">Enter machine parameters and press Predict.</p>
                {{end}}
            </div>

            <div class="card">
                <h3>Explainability</h3>
                {{if .Result}}
                    {{if .Result.Explanation}}
                        <p class="muted">Per-feature contribution to the classifier margin (log-odds). Base value {{printf "%.4f" .Result.Explanation.BaseValue}}, margin {{printf "%.4f" .Result.Explanation.Margin}}.</p>
                        {{range .Result.Explanation.Bars}}
                        <div class="bar-row">
                            <div class="bar-label">{{.Feature}}</div>
                            <div class="bar-track"><div class="bar {{if .Positive}}bar-pos{{else}}bar-neg{{end}}" style="width: {{printf "%.1f" .WidthPct}}%"></div></div>
                            <div class="bar-value">{{printf "%+.4f" .Value}}</div>
                        </div>
                        {{end}}
                    {{else}}
                        <p class="muted">{{.Result.ExplanationNote}}</p>
                    {{end}}
                {{else}}
                    <p class="muted">Run a prediction to see which features drove it.</p>
                {{end}}
            </div>

            <div class="card">
                <h3>Model Info</h3>
                <ul class="summary">
                    <li>Classification model predicts failure within 24 hours.</li>
                    <li>Regression model estimates remaining useful life in operating hours.</li>
                    <li>Derived stress index combines torque and vibration level.</li>
                    <li>Health status follows the classifier's failure class.</li>
                    <li>Local explanations decompose a single prediction along tree paths.</li>
                </ul>
                <table>
                    {{range $name, $info := .Artifacts}}
                    <tr><td class="muted">{{$name}}</td><td>{{$info.Kind}}{{if $info.Task}} ({{$info.Task}}){{end}}, {{$info.NumFeatures}} features</td></tr>
                    {{end}}
                </table>
            </div>
        </div>
    </div>

    <div class="footer">Industrial predictive maintenance powered by machine learning.</div>
</div>
</body>
</html>
`
