package transcript

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	rows := []Row{
		{0, 0.5, "hello"},
		{0.6, 2, `she said "hi", then left`},
	}
	require.NoError(t, WriteCSV(&buf, rows))

	want := "\xEF\xBB\xBF" +
		"start_time,end_time,text\n" +
		"0,0.5,hello\n" +
		"0.6,2,\"she said \"\"hi\"\", then left\"\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, "\xEF\xBB\xBFstart_time,end_time,text\n", buf.String())
}

func TestCSVFileName(t *testing.T) {
	ts := time.Date(2025, 3, 7, 9, 4, 5, 0, time.UTC)
	assert.Equal(t, "transcription_2025-03-07_09-04-05.csv", CSVFileName(ts))
}

func TestResultDuration(t *testing.T) {
	assert.Zero(t, Result{}.Duration())
	assert.Equal(t, 2.0, helloWorld().Duration())
}
