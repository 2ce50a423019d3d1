// Package dashboard serves the operator-facing surface: the HTML input form
// with the three result regions, a JSON API mirror, model metadata, health
// and Prometheus endpoints. Each request runs one synchronous prediction
// cycle; the server itself holds no mutable state.
package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"predmaint/internal/artifact"
	"predmaint/internal/explain"
	"predmaint/internal/features"
	"predmaint/internal/health"
	"predmaint/internal/infer"
	"predmaint/internal/metrics"
	"predmaint/internal/model"
)

// ExplanationFallback is shown in place of the attribution chart when the
// classifier kind does not support path attribution.
const ExplanationFallback = "Explainability is not available for this model type."

// Server wires the inference engine to the HTTP surface.
type Server struct {
	engine  *infer.Engine
	set     *artifact.Set
	metrics *metrics.Metrics
	topN    int
	router  *mux.Router
}

// New builds the server. metrics may be nil in tests.
func New(engine *infer.Engine, set *artifact.Set, m *metrics.Metrics, topN int) *Server {
	s := &Server{
		engine:  engine,
		set:     set,
		metrics: m,
		topN:    topN,
		router:  mux.NewRouter(),
	}

	s.router.Use(s.countRequests)
	s.router.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	s.router.HandleFunc("/predict", s.handlePredictForm).Methods(http.MethodPost)
	s.router.HandleFunc("/api/predict", s.handleAPIPredict).Methods(http.MethodPost)
	s.router.HandleFunc("/api/model", s.handleModelInfo).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return s
}

// Router returns the handler to mount on an http.Server.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, http.StatusOK, s.newPageData())
}

func (s *Server) handlePredictForm(w http.ResponseWriter, r *http.Request) {
	data := s.newPageData()

	in, err := parseForm(r)
	if err != nil {
		data.Error = err.Error()
		s.renderPage(w, http.StatusBadRequest, data)
		return
	}
	data.Form = formValuesFrom(in)

	p, err := s.engine.Predict(in)
	if err != nil {
		data.Error = err.Error()
		s.renderPage(w, statusFor(err), data)
		return
	}

	data.Result = s.buildResultView(p)
	s.renderPage(w, http.StatusOK, data)
}

// apiPrediction is the JSON mirror of the three display regions.
type apiPrediction struct {
	ID                 string               `json:"id"`
	FailureProbability float64              `json:"failure_probability"`
	HealthClass        int                  `json:"health_class"`
	Status             string               `json:"status"`
	StatusAdvisory     string               `json:"status_advisory"`
	RULEstimate        float64              `json:"rul_estimate"`
	RULTier            string               `json:"rul_tier"`
	RULAdvisory        string               `json:"rul_advisory"`
	Explanation        *explain.Explanation `json:"explanation,omitempty"`
	ExplanationError   string               `json:"explanation_error,omitempty"`
	LatencyMs          float64              `json:"latency_ms"`
}

func (s *Server) handleAPIPredict(w http.ResponseWriter, r *http.Request) {
	var in features.RawInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("decode request: %v", err))
		return
	}

	p, err := s.engine.Predict(in)
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}

	verdict := health.VerdictForClass(p.HealthClass)
	tier := health.TierForRUL(p.RUL)
	resp := apiPrediction{
		ID:                 p.ID,
		FailureProbability: p.FailureProbability,
		HealthClass:        p.HealthClass,
		Status:             verdict.String(),
		StatusAdvisory:     verdict.Advisory(),
		RULEstimate:        p.RUL,
		RULTier:            tier.String(),
		RULAdvisory:        tier.Advisory(),
		LatencyMs:          float64(p.Elapsed.Microseconds()) / 1000.0,
	}

	exp, err := s.engine.Explain(p)
	switch {
	case err == nil:
		trimmed := *exp
		trimmed.Contributions = exp.Top(s.topN)
		resp.Explanation = &trimmed
	case errors.Is(err, model.ErrUnsupportedModel):
		resp.ExplanationError = ExplanationFallback
	default:
		resp.ExplanationError = err.Error()
	}

	writeJSON(w, http.StatusOK, resp)
}

type modelInfoResponse struct {
	Artifacts    map[string]model.Info `json:"artifacts"`
	InputColumns []string              `json:"input_columns"`
	FeatureCount int                   `json:"feature_count"`
	LoadedAt     time.Time             `json:"loaded_at"`
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, modelInfoResponse{
		Artifacts:    s.set.Infos,
		InputColumns: s.set.Preprocessor.InputColumns(),
		FeatureCount: len(s.set.Preprocessor.FeatureNames()),
		LoadedAt:     s.set.LoadedAt,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"artifacts": len(s.set.Infos),
		"loaded_at": s.set.LoadedAt,
	})
}

// parseForm reads the 12 operator fields from an HTML form submission.
func parseForm(r *http.Request) (features.RawInput, error) {
	if err := r.ParseForm(); err != nil {
		return features.RawInput{}, fmt.Errorf("parse form: %w", err)
	}

	in := features.RawInput{
		MachineModel:       r.PostFormValue("machine_model"),
		OperatorExperience: r.PostFormValue("operator_experience"),
		FaultCode:          r.PostFormValue("fault_code"),
	}

	floats := []struct {
		field string
		dst   *float64
	}{
		{"avg_temperature", &in.AvgTemperature},
		{"vibration_level", &in.VibrationLevel},
		{"rotating_speed", &in.RotatingSpeed},
		{"voltage_fluctuation", &in.VoltageFluctuation},
		{"torque_nm", &in.TorqueNm},
		{"oil_viscosity", &in.OilViscosity},
		{"ambient_humidity", &in.AmbientHumidity},
	}
	for _, f := range floats {
		v, err := strconv.ParseFloat(r.PostFormValue(f.field), 64)
		if err != nil {
			return features.RawInput{}, fmt.Errorf("field %s: %w", f.field, err)
		}
		*f.dst = v
	}

	ints := []struct {
		field string
		dst   *int
	}{
		{"last_service_days", &in.LastServiceDays},
		{"working_hours_total", &in.WorkingHoursTotal},
	}
	for _, f := range ints {
		v, err := strconv.Atoi(r.PostFormValue(f.field))
		if err != nil {
			return features.RawInput{}, fmt.Errorf("field %s: %w", f.field, err)
		}
		*f.dst = v
	}

	return in, nil
}

// statusFor maps a prediction error to the HTTP status: bad operator input
// is the client's problem, anything past that point is ours.
func statusFor(err error) int {
	if errors.Is(err, features.ErrInvalidInput) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("encode response failed")
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusRecorder captures the response code for the request counter.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if s.metrics != nil {
			s.metrics.HTTPRequestInc(r.URL.Path, fmt.Sprintf("%dxx", rec.status/100))
		}
	})
}
