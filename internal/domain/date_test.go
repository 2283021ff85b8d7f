package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateJSONRoundTrip(t *testing.T) {
	d := NewDate(2024, time.March, 5)
	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-05"`, string(b))

	var back Date
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, d, back)
}

func TestDateUnmarshalRejectsOtherLayouts(t *testing.T) {
	var d Date
	assert.Error(t, json.Unmarshal([]byte(`"05/03/2024"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`"2024-03-05T10:00:00Z"`), &d))
}

func TestDateScan(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan(time.Date(2024, time.March, 5, 13, 45, 0, 0, time.UTC)))
	assert.Equal(t, "2024-03-05", d.String())

	// DATE columns can come back as text with a time component attached
	require.NoError(t, d.Scan("2024-04-01 00:00:00"))
	assert.Equal(t, "2024-04-01", d.String())

	require.NoError(t, d.Scan([]byte("2024-05-09")))
	assert.Equal(t, "2024-05-09", d.String())

	assert.Error(t, d.Scan(42))
}

func TestDateOfTruncates(t *testing.T) {
	d := DateOf(time.Date(2024, time.March, 5, 23, 59, 59, 0, time.UTC))
	assert.Equal(t, "2024-03-05", d.String())
}
