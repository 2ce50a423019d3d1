// Package modeltest provides small deterministic artifacts for tests: a
// fitted pipeline over the canonical 16 input columns, a two-tree failure
// classifier, a two-tree RUL regressor and a linear classifier for the
// attribution-unsupported case.
package modeltest

import (
	"encoding/json"
	"fmt"

	"predmaint/internal/model"
)

// Pipeline returns a preprocessor fitted on the canonical column set: 13
// standardized numeric columns and 3 one-hot categorical columns, 22 output
// slots in total.
func Pipeline() *model.ColumnPipeline {
	return &model.ColumnPipeline{
		Schema: model.SchemaVersion,
		Kind:   model.KindColumnPipeline,
		Columns: []model.ColumnSpec{
			{Name: "Machine_Model", Type: model.ColumnCategorical, Categories: []string{"Model_A", "Model_B", "Model_C"}},
			{Name: "Avg_Temperature", Type: model.ColumnNumeric, Mean: 75, Scale: 25},
			{Name: "Vibration_Level", Type: model.ColumnNumeric, Mean: 5, Scale: 3},
			{Name: "Rotating_Speed", Type: model.ColumnNumeric, Mean: 3000, Scale: 1000},
			{Name: "Voltage_Fluctuation", Type: model.ColumnNumeric, Mean: 50, Scale: 30},
			{Name: "Torque_Nm", Type: model.ColumnNumeric, Mean: 100, Scale: 40},
			{Name: "Oil_Viscosity", Type: model.ColumnNumeric, Mean: 50, Scale: 20},
			{Name: "Ambient_Humidity", Type: model.ColumnNumeric, Mean: 50, Scale: 15},
			{Name: "Operator_Experience", Type: model.ColumnCategorical, Categories: []string{"Junior", "Mid", "Senior"}},
			{Name: "Last_Service_Days", Type: model.ColumnNumeric, Mean: 200, Scale: 150},
			{Name: "Fault_Code", Type: model.ColumnCategorical, Categories: []string{"None", "E101", "E202"}},
			{Name: "Working_Hours_Total", Type: model.ColumnNumeric, Mean: 25000, Scale: 12000},
			{Name: "Rolling_Avg_Temp", Type: model.ColumnNumeric, Mean: 75, Scale: 25},
			{Name: "Stress_Index", Type: model.ColumnNumeric, Mean: 500, Scale: 400},
			{Name: "Machine_Age", Type: model.ColumnNumeric, Mean: 25000, Scale: 12000},
			{Name: "Operator_Experience_Level", Type: model.ColumnNumeric, Mean: 2, Scale: 1},
		},
	}
}

// Post-transform feature indexes used by the fixture trees. The pipeline
// expands Machine_Model to slots 0-2 and Operator_Experience to 10-12.
const (
	featVibration  = 4
	featLastServ   = 13
	featRollingAvg = 18
	featStress     = 19
	featMachineAge = 20
)

// Classifier returns a two-tree binary failure classifier over the fixture
// pipeline's 22 output features.
func Classifier() *model.TreeEnsemble {
	return &model.TreeEnsemble{
		Schema:    model.SchemaVersion,
		Kind:      model.KindTreeEnsemble,
		Task:      model.TaskClassification,
		BaseScore: -1.0,
		Features:  Pipeline().FeatureNames(),
		Trees: []model.Tree{
			{Nodes: []model.TreeNode{
				{Feature: featStress, Threshold: 0, Left: 1, Right: 2, Value: -0.1},
				{Leaf: true, Value: -0.8},
				{Leaf: true, Value: 0.6},
			}},
			{Nodes: []model.TreeNode{
				{Feature: featRollingAvg, Threshold: 0.5, Left: 1, Right: 2, Value: 0.0},
				{Leaf: true, Value: -0.4},
				{Feature: featVibration, Threshold: 1.0, Left: 3, Right: 4, Value: 0.3},
				{Leaf: true, Value: 0.2},
				{Leaf: true, Value: 0.9},
			}},
		},
	}
}

// Regressor returns a two-tree RUL regressor whose output stays positive on
// every possible path.
func Regressor() *model.TreeEnsemble {
	return &model.TreeEnsemble{
		Schema:    model.SchemaVersion,
		Kind:      model.KindTreeEnsemble,
		Task:      model.TaskRegression,
		BaseScore: 1200,
		Features:  Pipeline().FeatureNames(),
		Trees: []model.Tree{
			{Nodes: []model.TreeNode{
				{Feature: featMachineAge, Threshold: 0, Left: 1, Right: 2, Value: 50},
				{Leaf: true, Value: 400},
				{Leaf: true, Value: -300},
			}},
			{Nodes: []model.TreeNode{
				{Feature: featLastServ, Threshold: 0, Left: 1, Right: 2, Value: -25},
				{Leaf: true, Value: 100},
				{Leaf: true, Value: -150},
			}},
		},
	}
}

// LinearClassifier returns a non-tree classifier: scoring works, path
// attribution does not.
func LinearClassifier() *model.LinearModel {
	features := Pipeline().FeatureNames()
	weights := make([]float64, len(features))
	for i := range weights {
		weights[i] = 0.05 * float64(i%5)
	}
	return &model.LinearModel{
		Schema:    model.SchemaVersion,
		Kind:      model.KindLinear,
		Task:      model.TaskClassification,
		Intercept: -0.5,
		Weights:   weights,
		Features:  features,
	}
}

// Bytes serializes a fixture the way artifacts are stored on disk.
func Bytes(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("modeltest: marshal fixture: %v", err))
	}
	return data
}
