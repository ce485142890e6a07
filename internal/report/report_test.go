package report

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var featureSchema = Schema{
	OperationHeader: "Feature Detector",
	Columns:         []Column{ColSource, ColOperation, ColPoints, ColParameters, ColOutput},
}

func TestSchemaHeader(t *testing.T) {
	assert.Equal(t,
		[]string{"Image Source", "Feature Detector", "Detected Points Count", "Parameters", "Output Filename"},
		featureSchema.Header())

	geometry := Schema{
		OperationHeader: "Transform Type",
		Columns:         []Column{ColSource, ColOperation, ColParameters, ColShape, ColOutput},
	}
	assert.Equal(t,
		[]string{"Image Source", "Transform Type", "Parameters", "Matrix Shape", "Output Filename"},
		geometry.Header())
}

func TestTableWriteCSV(t *testing.T) {
	table := NewTable(featureSchema)
	table.Append(
		Record{Source: "coins", Operation: "SIFT", Points: 42, Parameters: "default SIFT parameters, rich keypoints", Output: "coins_sift_features.png"},
		Record{Source: "coins", Operation: "FAST thresh_10", Points: 0, Parameters: "threshold = 10", Output: "coins_fast_thresh_10.png"},
		Record{Source: "astronaut", Operation: "SIFT", Points: 7, Parameters: "default SIFT parameters, rich keypoints", Output: "astronaut_sift_features.png"},
	)

	path := filepath.Join(t.TempDir(), "nested", "feature_statistics.csv")
	require.NoError(t, table.WriteCSV(path))

	header, rows, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Equal(t, featureSchema.Header(), header)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"coins", "SIFT", "42", "default SIFT parameters, rich keypoints", "coins_sift_features.png"}, rows[0])
	assert.Equal(t, "0", rows[1][2])

	assert.Equal(t, []string{"coins", "astronaut"}, table.Sources())
	assert.Equal(t, 3, table.Len())
}

func TestTableWriteCSV_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, NewTable(featureSchema).WriteCSV(path))

	header, rows, err := ReadCSV(path)
	require.NoError(t, err)
	assert.Len(t, header, 5)
	assert.Empty(t, rows)
}

func TestRecordsIsCopy(t *testing.T) {
	table := NewTable(featureSchema)
	table.Append(Record{Source: "a"})

	recs := table.Records()
	recs[0].Source = "b"
	assert.Equal(t, "a", table.Records()[0].Source)
}
