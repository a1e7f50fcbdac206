package domain

import "strings"

// DiseaseID names one of the supported tabular risk models.
type DiseaseID string

const (
	DiseaseDiabetes     DiseaseID = "diabetes"
	DiseaseHeart        DiseaseID = "heartDisease"
	DiseaseHypertension DiseaseID = "hypertension"
	DiseaseCKD          DiseaseID = "ckd"
	DiseaseLiver        DiseaseID = "liverDisease"
	DiseaseThyroid      DiseaseID = "thyroidDisease"
	DiseaseCancer       DiseaseID = "cancerDisease"
)

func ParseDiseaseID(raw string) DiseaseID {
	return DiseaseID(strings.TrimSpace(raw))
}

func (id DiseaseID) String() string {
	return string(id)
}
