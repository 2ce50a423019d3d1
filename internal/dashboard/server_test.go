package dashboard

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"predmaint/internal/artifact"
	"predmaint/internal/infer"
	"predmaint/internal/model"
	"predmaint/internal/model/modeltest"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	set := &artifact.Set{
		Preprocessor:       modeltest.Pipeline(),
		Classifier:         modeltest.Classifier(),
		Regressor:          modeltest.Regressor(),
		ClassifierArtifact: modeltest.Classifier(),
		Infos: map[string]model.Info{
			artifact.PreprocessorName: modeltest.Pipeline().Info(),
			artifact.ClassifierName:   modeltest.Classifier().Info(),
			artifact.RULModelName:     modeltest.Regressor().Info(),
		},
	}
	return New(infer.New(set), set, nil, 10)
}

func linearServer(t *testing.T) *Server {
	t.Helper()
	set := &artifact.Set{
		Preprocessor:       modeltest.Pipeline(),
		Classifier:         modeltest.LinearClassifier(),
		Regressor:          modeltest.Regressor(),
		ClassifierArtifact: modeltest.LinearClassifier(),
		Infos: map[string]model.Info{
			artifact.ClassifierName: modeltest.LinearClassifier().Info(),
		},
	}
	return New(infer.New(set), set, nil, 10)
}

func apiRequest(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/predict", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

const validBody = `{
	"machine_model": "Model_A",
	"avg_temperature": 50,
	"vibration_level": 2,
	"rotating_speed": 1500,
	"voltage_fluctuation": 5,
	"torque_nm": 100,
	"oil_viscosity": 10,
	"ambient_humidity": 40,
	"operator_experience": "Senior",
	"last_service_days": 30,
	"fault_code": "None",
	"working_hours_total": 1000
}`

func TestIndexPage(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{
		"Predictive Maintenance System",
		`name="machine_model"`,
		`value="1500"`, // rotating-speed default
		"Industrial predictive maintenance powered by machine learning.",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("index page missing %q", want)
		}
	}
}

func TestAPIPredict(t *testing.T) {
	s := testServer(t)
	w := apiRequest(t, s, validBody)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp apiPrediction
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID == "" {
		t.Error("missing prediction id")
	}
	if resp.FailureProbability < 0 || resp.FailureProbability > 1 {
		t.Errorf("probability %v outside [0,1]", resp.FailureProbability)
	}
	if resp.Status != "Healthy" && resp.Status != "High Risk" {
		t.Errorf("unexpected status %q", resp.Status)
	}
	if resp.RULEstimate < 0 {
		t.Errorf("negative RUL %v", resp.RULEstimate)
	}
	if resp.Explanation == nil {
		t.Fatal("expected an explanation for the tree classifier")
	}
	if resp.ExplanationError != "" {
		t.Errorf("unexpected explanation error %q", resp.ExplanationError)
	}
	if len(resp.Explanation.Contributions) > 10 {
		t.Errorf("explanation not trimmed to top-N: %d", len(resp.Explanation.Contributions))
	}
}

func TestAPIPredictInvalidInput(t *testing.T) {
	s := testServer(t)
	body := strings.Replace(validBody, `"avg_temperature": 50`, `"avg_temperature": 999`, 1)
	w := apiRequest(t, s, body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", w.Code, w.Body.String())
	}
}

func TestAPIPredictMalformedJSON(t *testing.T) {
	s := testServer(t)
	w := apiRequest(t, s, "{not json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestAPIPredictSchemaMismatchIs500(t *testing.T) {
	s := testServer(t)
	// A preprocessor fitted on a different column set than the engineer
	// produces: drop one fitted column and add a foreign one.
	p := modeltest.Pipeline()
	p.Columns[0].Name = "Pressure_Bar"
	s.set.Preprocessor = p

	w := apiRequest(t, s, validBody)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500: %s", w.Code, w.Body.String())
	}
}

func TestAPIPredictExplanationFallback(t *testing.T) {
	s := linearServer(t)
	w := apiRequest(t, s, validBody)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp apiPrediction
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Explanation != nil {
		t.Error("expected no explanation for the linear classifier")
	}
	if resp.ExplanationError != ExplanationFallback {
		t.Errorf("fallback text = %q, want %q", resp.ExplanationError, ExplanationFallback)
	}
	// The prediction results themselves still render.
	if resp.Status == "" || resp.RULTier == "" {
		t.Error("prediction results missing alongside explanation fallback")
	}
}

func TestFormPredict(t *testing.T) {
	s := testServer(t)
	form := url.Values{
		"machine_model":       {"Model_A"},
		"avg_temperature":     {"50"},
		"vibration_level":     {"2"},
		"rotating_speed":      {"1500"},
		"voltage_fluctuation": {"5"},
		"torque_nm":           {"100"},
		"oil_viscosity":       {"10"},
		"ambient_humidity":    {"40"},
		"operator_experience": {"Senior"},
		"last_service_days":   {"30"},
		"fault_code":          {"None"},
		"working_hours_total": {"1000"},
	}
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "failure probability") {
		t.Error("result page missing probability region")
	}
	if !strings.Contains(body, "hours remaining") {
		t.Error("result page missing RUL region")
	}
	if !strings.Contains(body, "classifier margin") {
		t.Error("result page missing explanation region")
	}
}

func TestFormPredictBadNumber(t *testing.T) {
	s := testServer(t)
	form := url.Values{"machine_model": {"Model_A"}, "avg_temperature": {"hot"}}
	req := httptest.NewRequest(http.MethodPost, "/predict", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "banner-error") {
		t.Error("expected an error banner on the re-rendered form")
	}
}

func TestModelInfo(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/model", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp modelInfoResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.InputColumns) != 16 {
		t.Errorf("%d input columns, want 16", len(resp.InputColumns))
	}
	if resp.FeatureCount != len(modeltest.Pipeline().FeatureNames()) {
		t.Errorf("feature count = %d, want %d", resp.FeatureCount, len(modeltest.Pipeline().FeatureNames()))
	}
	if len(resp.Artifacts) != 3 {
		t.Errorf("%d artifacts, want 3", len(resp.Artifacts))
	}
}

func TestHealthz(t *testing.T) {
	s := testServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected healthz body: %s", w.Body.String())
	}
}
