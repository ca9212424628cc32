package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(helloWorld()))
	require.NoError(t, Validate(Result{}))

	bad := Result{Segments: []Segment{{
		Start: 5, End: 4, Text: "inverted",
		Words: []Word{{Start: 3, End: 2, Text: "x"}},
	}}}
	err := Validate(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "segment 0: end 4.000 before start 5.000")
	assert.Contains(t, err.Error(), "segment 0 word 0: end 2.000 before start 3.000")
	assert.Contains(t, err.Error(), "outside segment")
}

func TestValidateDoesNotAffectFormat(t *testing.T) {
	bad := Result{Segments: []Segment{{Start: 5, End: 4, Text: "inverted"}}}
	require.Error(t, Validate(bad))
	assert.Equal(t, []Row{{5, 4, "inverted"}}, Format(bad, FormatOptions{}))
}
