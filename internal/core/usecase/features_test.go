package usecase

import (
	"testing"

	"github.com/kirillkom/medical-report-analyzer/internal/core/catalog"
	"github.com/kirillkom/medical-report-analyzer/internal/core/domain"
)

func TestBuildFeatureVectorLengths(t *testing.T) {
	cases := map[domain.DiseaseID]int{
		domain.DiseaseDiabetes:     8,
		domain.DiseaseHeart:        13,
		domain.DiseaseHypertension: 7,
		domain.DiseaseCKD:          23,
		domain.DiseaseLiver:        10,
		domain.DiseaseThyroid:      28,
		domain.DiseaseCancer:       17,
	}
	for id, want := range cases {
		vector, err := BuildFeatureVector(domain.StructuredRecord{}, id)
		if err != nil {
			t.Fatalf("%s: BuildFeatureVector() error = %v", id, err)
		}
		if len(vector) != want {
			t.Fatalf("%s: expected %d features, got %d", id, want, len(vector))
		}
	}
}

func TestBuildFeatureVectorEmptyRecordUsesDefaults(t *testing.T) {
	for _, spec := range catalog.All() {
		vector, err := BuildFeatureVector(nil, spec.ID)
		if err != nil {
			t.Fatalf("%s: BuildFeatureVector() error = %v", spec.ID, err)
		}
		for i, feat := range spec.Layout {
			if vector[i] != feat.Encoding.Default {
				t.Fatalf("%s: feature %s expected default %v, got %v", spec.ID, feat.Field, feat.Encoding.Default, vector[i])
			}
		}
	}
}

func TestBuildFeatureVectorDiabetesOrder(t *testing.T) {
	record := domain.StructuredRecord{
		"disease":                    "diabetes",
		"pregnancies":                1.0,
		"glucose":                    "120",
		"blood_pressure":             70,
		"skin_thickness":             30.0,
		"insulin":                    150.0,
		"bmi":                        25.5,
		"diabetes_pedigree_function": 0.5,
		"age":                        30.0,
		"gender":                     "female",
	}
	vector, err := BuildFeatureVector(record, domain.DiseaseDiabetes)
	if err != nil {
		t.Fatalf("BuildFeatureVector() error = %v", err)
	}
	want := []float64{1, 120, 70, 30, 150, 25.5, 0.5, 30}
	for i := range want {
		if vector[i] != want[i] {
			t.Fatalf("feature %d: expected %v, got %v (vector %v)", i, want[i], vector[i], vector)
		}
	}
}

func TestBuildFeatureVectorUnparseableNumberFallsBack(t *testing.T) {
	vector, err := BuildFeatureVector(domain.StructuredRecord{"glucose": "high", "TSH": "n/a"}, domain.DiseaseThyroid)
	if err != nil {
		t.Fatalf("BuildFeatureVector() error = %v", err)
	}
	spec, _ := catalog.Lookup(domain.DiseaseThyroid)
	for i, name := range spec.FeatureNames() {
		if name == "TSH" && vector[i] != -1 {
			t.Fatalf("expected unparseable TSH to default to -1, got %v", vector[i])
		}
	}
}

func TestBuildFeatureVectorCancerEncoding(t *testing.T) {
	record := domain.StructuredRecord{
		"age":                 46.0,
		"gender":              "Female",
		"smokingstatus":       "Current Smoker",
		"alcoholconsumption":  "HEAVY",
		"biopsyresult":        "Malignant",
		"familyhistorycancer": "1",
		"symptoms_fatigue":    "0",
	}
	vector, err := BuildFeatureVector(record, domain.DiseaseCancer)
	if err != nil {
		t.Fatalf("BuildFeatureVector() error = %v", err)
	}
	got := featureMap(t, domain.DiseaseCancer, vector)
	checks := map[string]float64{
		"gender":              1,
		"smokingstatus":       2,
		"alcoholconsumption":  2,
		"biopsyresult":        1,
		"familyhistorycancer": 1,
		"symptoms_fatigue":    0,
		"age":                 46,
	}
	for name, want := range checks {
		if got[name] != want {
			t.Fatalf("%s: expected %v, got %v", name, want, got[name])
		}
	}
}

func TestBuildFeatureVectorCancerUnknownCategoryDefaults(t *testing.T) {
	vector, err := BuildFeatureVector(domain.StructuredRecord{
		"gender":        "nonbinary",
		"smokingstatus": "occasionally",
		"biopsyresult":  "pending",
	}, domain.DiseaseCancer)
	if err != nil {
		t.Fatalf("BuildFeatureVector() error = %v", err)
	}
	got := featureMap(t, domain.DiseaseCancer, vector)
	for _, name := range []string{"gender", "smokingstatus", "biopsyresult"} {
		if got[name] != 0 {
			t.Fatalf("%s: expected benign default 0, got %v", name, got[name])
		}
	}
}

func TestBuildFeatureVectorCKDFlagsAreCaseInsensitive(t *testing.T) {
	vector, err := BuildFeatureVector(domain.StructuredRecord{
		"pus_cell":        "Abnormal",
		"pus_cell_clumps": "notpresent",
		"appetite":        " POOR ",
		"anemia":          "no",
		"hypertension":    true,
	}, domain.DiseaseCKD)
	if err != nil {
		t.Fatalf("BuildFeatureVector() error = %v", err)
	}
	got := featureMap(t, domain.DiseaseCKD, vector)
	checks := map[string]float64{
		"pus_cell":        1,
		"pus_cell_clumps": 0,
		"appetite":        1,
		"anemia":          0,
		"hypertension":    0,
		"bacteria":        0,
	}
	for name, want := range checks {
		if got[name] != want {
			t.Fatalf("%s: expected %v, got %v", name, want, got[name])
		}
	}
}

func TestBuildFeatureVectorUnknownDisease(t *testing.T) {
	vector, err := BuildFeatureVector(domain.StructuredRecord{"age": 40.0}, "flu")
	if vector != nil {
		t.Fatalf("expected nil vector, got %v", vector)
	}
	if !domain.IsKind(err, domain.ErrUnknownDisease) || !domain.IsKind(err, domain.ErrFeatureBuild) {
		t.Fatalf("expected unknown disease feature error, got %v", err)
	}
}

func TestBuildFeatureVectorStrictReportsMissingFields(t *testing.T) {
	_, err := BuildFeatureVectorStrict(domain.StructuredRecord{"Age_yrs": 50.0, "BMI": nil}, domain.DiseaseHypertension)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if got := err.Error(); !containsAll(got, "BMI", "Gender", "Smoking_Habits") {
		t.Fatalf("expected missing field names in error, got %q", got)
	}
}

func featureMap(t *testing.T, id domain.DiseaseID, vector domain.FeatureVector) map[string]float64 {
	t.Helper()
	spec, ok := catalog.Lookup(id)
	if !ok {
		t.Fatalf("unknown disease %s", id)
	}
	out := make(map[string]float64, len(vector))
	for i, name := range spec.FeatureNames() {
		out[name] = vector[i]
	}
	return out
}
