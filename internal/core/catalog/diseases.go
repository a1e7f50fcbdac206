package catalog

import "github.com/kirillkom/medical-report-analyzer/internal/core/domain"

var (
	verdictLow = domain.RiskVerdict{
		RiskLevel: domain.RiskLow,
		Reason:    "Based on the analysis, the likelihood of this condition is currently low. Continue to maintain a healthy lifestyle and regular check-ups.",
	}
	verdictMedium = domain.RiskVerdict{
		RiskLevel: domain.RiskMedium,
		Reason:    "Based on the analysis, there is a moderate likelihood of this condition. It is recommended to consult a healthcare professional for further evaluation and personalized advice.",
	}
	verdictHigh = domain.RiskVerdict{
		RiskLevel: domain.RiskHigh,
		Reason:    "Based on the analysis, there is a significant predicted likelihood of this condition. It is strongly recommended to consult a healthcare professional immediately for a comprehensive assessment and advice.",
	}
	verdictUnexpected = domain.RiskVerdict{
		RiskLevel: domain.RiskCannotDetermine,
		Reason:    "The model returned an unexpected prediction value. Further evaluation is needed.",
	}
)

// UndeterminedVerdict is returned when no policy applies to an outcome.
var UndeterminedVerdict = domain.RiskVerdict{
	RiskLevel: domain.RiskCannotDetermine,
	Reason:    "The model returned an unexpected prediction outcome or the mapping is incomplete.",
}

func probabilityPolicy() RiskPolicy {
	return RiskPolicy{
		Kind:        RiskThresholds,
		LowBelow:    0.35,
		MediumBelow: 0.65,
		Low:         verdictLow,
		Medium:      verdictMedium,
		High:        verdictHigh,
		Unexpected:  verdictUnexpected,
	}
}

func thyroidPolicy() RiskPolicy {
	return RiskPolicy{
		Kind: RiskClassTable,
		Classes: map[int]domain.RiskVerdict{
			0: {
				RiskLevel: domain.RiskLow,
				Reason:    "Based on the report analysis, no thyroid disease is currently detected. Continue to maintain a healthy lifestyle and regular check-ups.",
			},
			1: {
				RiskLevel: domain.RiskHigh,
				Reason:    "Based on the report analysis, there is a predicted risk of Hypothyroid. It is strongly recommended to consult a healthcare professional immediately for a comprehensive assessment and advice.",
			},
			2: {
				RiskLevel: domain.RiskHigh,
				Reason:    "Based on the report analysis, there is a predicted risk of Hyperthyroid. It is strongly recommended to consult a healthcare professional immediately for a comprehensive assessment and advice.",
			},
		},
		Otherwise: domain.RiskVerdict{
			RiskLevel: domain.RiskMedium,
			Reason:    "Based on the report analysis, an indeterminate thyroid condition was detected. Further medical evaluation is advised.",
		},
	}
}

func num(name string, enum ...any) Field {
	return Field{Name: name, Type: Number, Enum: enum}
}

func str(name string, enum ...any) Field {
	return Field{Name: name, Type: String, Enum: enum}
}

func numeric(field string, def float64) Feature {
	return Feature{Field: field, Encoding: Encoding{Kind: EncodeNumeric, Default: def}}
}

func flag(field, positive string) Feature {
	return Feature{Field: field, Encoding: Encoding{Kind: EncodeFlag, Positive: positive}}
}

func lookup(field string, table map[string]float64) Feature {
	return Feature{Field: field, Encoding: Encoding{Kind: EncodeLookup, Table: table}}
}

// numericFeatures builds zero-default numeric features for fields.
func numericFeatures(fields ...string) []Feature {
	out := make([]Feature, 0, len(fields))
	for _, f := range fields {
		out = append(out, numeric(f, 0))
	}
	return out
}

var binary = []any{0, 1}

func builtinSpecs() []Spec {
	return []Spec{
		diabetesSpec(),
		heartSpec(),
		hypertensionSpec(),
		ckdSpec(),
		liverSpec(),
		thyroidSpec(),
		cancerSpec(),
	}
}

func diabetesSpec() Spec {
	return Spec{
		ID:        domain.DiseaseDiabetes,
		Title:     "Diabetes",
		ModelFile: "diabetes",
		Fields: []Field{
			num("age"),
			str("gender", "male", "female", "other", "unknown"),
			num("pregnancies"),
			num("glucose"),
			num("blood_pressure"),
			num("skin_thickness"),
			num("insulin"),
			num("bmi"),
			num("diabetes_pedigree_function"),
		},
		Layout: numericFeatures(
			"pregnancies", "glucose", "blood_pressure", "skin_thickness",
			"insulin", "bmi", "diabetes_pedigree_function", "age",
		),
		Output: Probabilistic,
		Risk:   probabilityPolicy(),
	}
}

func heartSpec() Spec {
	return Spec{
		ID:        domain.DiseaseHeart,
		Title:     "Heart disease",
		ModelFile: "heart_disease",
		Fields: []Field{
			num("age"),
			num("sex", binary...),
			num("chest_pain_type", 0, 1, 2, 3),
			num("trestbps"),
			num("cholesterol"),
			num("fbs", binary...),
			num("restecg", 0, 1, 2),
			num("thalach"),
			num("exang", binary...),
			num("oldpeak"),
			num("slope", 0, 1, 2),
			num("ca", 0, 1, 2, 3),
			num("thal", 1, 2, 3),
		},
		Layout: numericFeatures(
			"age", "sex", "chest_pain_type", "trestbps", "cholesterol", "fbs",
			"restecg", "thalach", "exang", "oldpeak", "slope", "ca", "thal",
		),
		Output: Probabilistic,
		Risk:   probabilityPolicy(),
	}
}

func hypertensionSpec() Spec {
	return Spec{
		ID:        domain.DiseaseHypertension,
		Title:     "Hypertension",
		ModelFile: "hypertension",
		Fields: []Field{
			num("Age_yrs"),
			num("Gender", binary...),
			num("Education_Level", 0, 1, 2, 3),
			num("Occupation", 0, 1, 2, 3, 4),
			num("Physical_Activity", 0, 1, 2),
			num("Smoking_Habits", 0, 1, 2),
			num("BMI"),
		},
		Layout: numericFeatures(
			"Age_yrs", "Gender", "Education_Level", "Occupation",
			"Physical_Activity", "Smoking_Habits", "BMI",
		),
		Output: Probabilistic,
		Risk:   probabilityPolicy(),
	}
}

func ckdSpec() Spec {
	layout := numericFeatures(
		"age", "blood_pressure", "specific_gravity", "albumin", "sugar",
		"blood_glucose_random", "blood_urea", "serum_creatinine", "sodium",
		"potassium", "hemoglobin", "packed_cell_volume",
		"white_blood_cell_count", "red_blood_cell_count",
	)
	layout = append(layout,
		flag("pus_cell", "abnormal"),
		flag("pus_cell_clumps", "present"),
		flag("bacteria", "present"),
		flag("hypertension", "yes"),
		flag("diabetes_mellitus", "yes"),
		flag("coronary_artery_disease", "yes"),
		flag("appetite", "poor"),
		flag("pedal_edema", "yes"),
		flag("anemia", "yes"),
	)
	return Spec{
		ID:        domain.DiseaseCKD,
		Title:     "Chronic kidney disease",
		ModelFile: "ckd",
		Fields: []Field{
			num("age"),
			num("blood_pressure"),
			num("specific_gravity"),
			num("albumin", 0, 1, 2, 3, 4, 5),
			num("sugar", 0, 1, 2, 3, 4, 5),
			num("blood_glucose_random"),
			num("blood_urea"),
			num("serum_creatinine"),
			num("sodium"),
			num("potassium"),
			num("hemoglobin"),
			num("packed_cell_volume"),
			num("white_blood_cell_count"),
			num("red_blood_cell_count"),
			str("pus_cell", "normal", "abnormal"),
			str("pus_cell_clumps", "notpresent", "present"),
			str("bacteria", "notpresent", "present"),
			str("hypertension", "yes", "no"),
			str("diabetes_mellitus", "yes", "no"),
			str("coronary_artery_disease", "yes", "no"),
			str("appetite", "good", "poor"),
			str("pedal_edema", "yes", "no"),
			str("anemia", "yes", "no"),
		},
		Layout: layout,
		Output: Probabilistic,
		Risk:   probabilityPolicy(),
	}
}

func liverSpec() Spec {
	return Spec{
		ID:        domain.DiseaseLiver,
		Title:     "Liver disease",
		ModelFile: "liver_disease",
		Fields: []Field{
			num("Age"),
			num("Gender", binary...),
			num("Total_Bilirubin"),
			num("Direct_Bilirubin"),
			num("Alkaline_Phosphotase"),
			num("Alamine_Aminotransferase"),
			num("Aspartate_Aminotransferase"),
			num("Total_Protiens"),
			num("Albumin"),
			num("Albumin_and_Globulin_Ratio"),
		},
		Layout: numericFeatures(
			"Age", "Gender", "Total_Bilirubin", "Direct_Bilirubin",
			"Alkaline_Phosphotase", "Alamine_Aminotransferase",
			"Aspartate_Aminotransferase", "Total_Protiens", "Albumin",
			"Albumin_and_Globulin_Ratio",
		),
		Output: Probabilistic,
		Risk:   probabilityPolicy(),
	}
}

var thyroidFlags = []string{
	"on_thyroxine", "query_on_thyroxine", "on_antithyroid_meds", "sick",
	"pregnant", "thyroid_surgery", "I131_treatment", "query_hypothyroid",
	"query_hyperthyroid", "lithium", "goitre", "tumor", "hypopituitary", "psych",
}

var thyroidLabs = []string{"TSH", "T3", "TT4", "T4U", "FTI", "TBG"}

func thyroidSpec() Spec {
	fields := []Field{num("age"), num("sex", binary...)}
	layout := numericFeatures("age", "sex")
	for _, name := range thyroidFlags {
		fields = append(fields, num(name, binary...))
		layout = append(layout, numeric(name, 0))
	}
	// Lab values default to -1, the "not measured" marker the model was
	// trained with.
	for _, lab := range thyroidLabs {
		measured := lab + "_measured"
		fields = append(fields, num(measured, binary...), num(lab))
		layout = append(layout, numeric(measured, 0), numeric(lab, -1))
	}
	return Spec{
		ID:        domain.DiseaseThyroid,
		Title:     "Thyroid disease",
		ModelFile: "thyroid_disease",
		Fields:    fields,
		Layout:    layout,
		Output:    Discrete,
		Risk:      thyroidPolicy(),
	}
}

var (
	genderCodes  = map[string]float64{"male": 0, "female": 1}
	smokingCodes = map[string]float64{
		"never": 0, "never smoked": 0,
		"former": 1, "former smoker": 1,
		"current": 2, "current smoker": 2,
	}
	alcoholCodes = map[string]float64{"none": 0, "moderate": 1, "heavy": 2}
	biopsyCodes  = map[string]float64{"benign": 0, "malignant": 1, "not performed": 2, "atypical": 3}
)

func cancerSpec() Spec {
	binaryStrings := []any{"0", "1"}
	return Spec{
		ID:        domain.DiseaseCancer,
		Title:     "Cancer",
		ModelFile: "cancer",
		Fields: []Field{
			num("age"),
			str("gender", "Male", "Female"),
			str("smokingstatus", "Never Smoked", "Former Smoker", "Current Smoker"),
			str("alcoholconsumption", "None", "Moderate", "Heavy"),
			num("bmi"),
			num("physicalactivity_hoursperweek"),
			str("familyhistorycancer", binaryStrings...),
			str("chronicdisease_hypertension", binaryStrings...),
			str("chronicdisease_diabetes", binaryStrings...),
			num("genomicmarker_1"),
			num("genomicmarker_2"),
			num("tumorsize_mm"),
			{Name: "tumormarkerlevel", Type: Number, Nullable: true},
			str("biopsyresult", "Benign", "Malignant", "Not Performed", "Atypical"),
			num("bloodtest_markera"),
			num("bloodtest_markerb"),
			str("symptoms_fatigue", binaryStrings...),
			str("symptoms_unexplainedweightloss", binaryStrings...),
		},
		// Column order of the trained model; tumormarkerlevel is not an input.
		Layout: []Feature{
			numeric("age", 0),
			lookup("gender", genderCodes),
			numeric("familyhistorycancer", 0),
			lookup("smokingstatus", smokingCodes),
			lookup("alcoholconsumption", alcoholCodes),
			numeric("bmi", 0),
			numeric("physicalactivity_hoursperweek", 0),
			numeric("chronicdisease_hypertension", 0),
			numeric("chronicdisease_diabetes", 0),
			numeric("genomicmarker_1", 0),
			numeric("genomicmarker_2", 0),
			numeric("tumorsize_mm", 0),
			lookup("biopsyresult", biopsyCodes),
			numeric("bloodtest_markera", 0),
			numeric("bloodtest_markerb", 0),
			numeric("symptoms_fatigue", 0),
			numeric("symptoms_unexplainedweightloss", 0),
		},
		Output: Probabilistic,
		Risk:   probabilityPolicy(),
	}
}
