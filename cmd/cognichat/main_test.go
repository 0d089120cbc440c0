package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestAskSummaryWithTrace(t *testing.T) {
	t.Setenv("DATASET_SIZE", "40")

	out, err := runCLI(t, "ask", "--rows", "3", "--code", "give", "me", "a", "summary")
	require.NoError(t, err)

	assert.Contains(t, out, "**Dataset Overview:**")
	assert.Contains(t, out, "customer_type")
	assert.Contains(t, out, "$ dataset.Describe(); dataset.Head(3)")
}

func TestAskWithoutCodeFlagOmitsTrace(t *testing.T) {
	t.Setenv("DATASET_SIZE", "40")

	out, err := runCLI(t, "ask", "How does each region compare?")
	require.NoError(t, err)

	assert.Contains(t, out, "[bar chart] Revenue by Region")
	assert.NotContains(t, out, "$ ")
}

func TestAskHelpForUnknownQuestion(t *testing.T) {
	t.Setenv("DATASET_SIZE", "40")

	out, err := runCLI(t, "ask", "hello")
	require.NoError(t, err)
	assert.Contains(t, out, "What would you like to explore?")
}

func TestAskReadsCSVDataset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.csv")
	csv := "Date,Category,Revenue,Units_Sold,Customer_Type,Region,Rating\n" +
		"2024-01-05,Books,100,2,New,North,4\n" +
		"2024-01-09,Toys,250,5,Returning,South,5\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o600))

	out, err := runCLI(t, "ask", "--dataset", path, "Which product category generates the most revenue?")
	require.NoError(t, err)
	assert.Contains(t, out, "Top performer: **Toys** ($250.00)")
}

func TestAskRequiresQuestion(t *testing.T) {
	_, err := runCLI(t, "ask")
	require.Error(t, err)
}

func TestAskMissingDatasetFails(t *testing.T) {
	_, err := runCLI(t, "ask", "--dataset", filepath.Join(t.TempDir(), "nope.csv"), "summary")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load dataset")
}
