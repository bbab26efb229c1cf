package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_AbsentVersusEmpty(t *testing.T) {
	r := NewRecord()
	r.SetString("invoice_number", "12345")
	r.SetString("billed_to", "")
	r.SetAbsent("date_issued")

	v, ok := r.Value("invoice_number")
	assert.True(t, ok)
	assert.Equal(t, "12345", v)

	v, ok = r.Value("billed_to")
	assert.True(t, ok, "empty string is present")
	assert.Equal(t, "", v)

	_, ok = r.Value("date_issued")
	assert.False(t, ok)

	raw, exists := r.Get("date_issued")
	assert.True(t, exists)
	assert.Nil(t, raw)

	_, exists = r.Get("nope")
	assert.False(t, exists)

	assert.Equal(t, 3, r.Len(), "absent fields are counted")
}

func TestRecord_JSONKeepsOrderAndNulls(t *testing.T) {
	r := NewRecord()
	r.SetString("invoice_number", "12345")
	r.SetAbsent("date_issued")
	r.SetString("billed_to", "Acme")

	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"invoice_number":"12345","date_issued":null,"billed_to":"Acme"}`, string(b))

	var back Record
	require.NoError(t, json.Unmarshal(b, &back))
	assert.True(t, r.Equal(&back))
	assert.Equal(t, []string{"invoice_number", "date_issued", "billed_to"}, back.Keys())
}

func TestRecord_MarshalJSONKeepsHTMLCharacters(t *testing.T) {
	r := NewRecord()
	r.SetString("billed_to", "Smith & Co <ap@smith.example>")

	b, err := r.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"billed_to":"Smith & Co <ap@smith.example>"}`, string(b))
}

func TestRecord_UnmarshalRejectsNonStrings(t *testing.T) {
	var r Record
	assert.Error(t, json.Unmarshal([]byte(`{"total": 10}`), &r))
	assert.Error(t, json.Unmarshal([]byte(`["x"]`), &r))
}

func TestRecord_SetKeepsPosition(t *testing.T) {
	r := NewRecord()
	r.SetString("a", "1")
	r.SetString("b", "2")
	r.SetString("a", "3")

	assert.Equal(t, []string{"a", "b"}, r.Keys())
	v, _ := r.Value("a")
	assert.Equal(t, "3", v)
}

func TestRecord_CloneIsIndependent(t *testing.T) {
	r := NewRecord()
	r.SetString("a", "1")
	c := r.Clone()
	c.SetString("a", "2")

	v, _ := r.Value("a")
	assert.Equal(t, "1", v)
	assert.False(t, r.Equal(c))
}
