package poll

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordUnmarshal_LenientNumbers(t *testing.T) {
	var recs []Record
	require.NoError(t, json.Unmarshal([]byte(`[
	  {"id":"p1","subject":"Biden","sample_size":1500,"answers":[{"choice":"Approve","pct":41.5}]},
	  {"id":42,"subject":"Trump","sample_size":1500.0},
	  {"id":"p3","sample_size":"800"},
	  {"id":"p4","sample_size":null},
	  {"id":"p5","sample_size":12.5},
	  {"id":"p6","sample_size":"n/a"},
	  {"id":null}
	]`), &recs))
	require.Len(t, recs, 7)

	assert.Equal(t, "p1", recs[0].ID)
	assert.Equal(t, "Biden", recs[0].Subject)
	require.NotNil(t, recs[0].SampleSize)
	assert.Equal(t, 1500, *recs[0].SampleSize)
	assert.Equal(t, []Answer{{Choice: "Approve", Pct: 41.5}}, recs[0].Answers)

	assert.Equal(t, "42", recs[1].ID)
	require.NotNil(t, recs[1].SampleSize)
	assert.Equal(t, 1500, *recs[1].SampleSize)

	require.NotNil(t, recs[2].SampleSize)
	assert.Equal(t, 800, *recs[2].SampleSize)

	assert.Nil(t, recs[3].SampleSize)
	assert.Nil(t, recs[4].SampleSize)
	assert.Nil(t, recs[5].SampleSize)
	assert.Empty(t, recs[6].ID)
}

func TestRecordUnmarshal_RejectsBadID(t *testing.T) {
	var r Record
	require.Error(t, json.Unmarshal([]byte(`{"id":{"x":1}}`), &r))
}

func TestRecordMarshal_RoundTripsSampleSize(t *testing.T) {
	n := 900
	b, err := json.Marshal(Record{ID: "p", SampleSize: &n})
	require.NoError(t, err)

	var back Record
	require.NoError(t, json.Unmarshal(b, &back))
	require.NotNil(t, back.SampleSize)
	assert.Equal(t, 900, *back.SampleSize)
}
