package sys

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResult_States(t *testing.T) {
	tests := []struct {
		name   string
		result Result[string]
		ok     bool
		found  bool
		absent bool
	}{
		{
			name:   "found",
			result: Ok("success"),
			ok:     true,
			found:  true,
		},
		{
			name:   "found empty value",
			result: Ok(""),
			ok:     true,
			found:  true,
		},
		{
			name:   "absent",
			result: Absent[string](),
			ok:     true,
			absent: true,
		},
		{
			name:   "failed",
			result: Err[string](errors.New("boom")),
		},
		{
			name:   "failed with found flag set",
			result: Result[string]{Ok: "x", Found: true, Err: errors.New("boom")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.result.IsOk())
			assert.Equal(t, tt.found, tt.result.IsFound())
			assert.Equal(t, tt.absent, tt.result.IsAbsent())
			assert.Equal(t, !tt.ok, tt.result.IsErr())
		})
	}
}

func TestOk(t *testing.T) {
	result := Ok(42)
	assert.True(t, result.IsOk())
	assert.Equal(t, 42, result.Ok)
	assert.Nil(t, result.Err)
	v, found := result.Get()
	assert.True(t, found)
	assert.Equal(t, 42, v)
}

func TestAbsent(t *testing.T) {
	result := Absent[int]()
	v, found := result.Get()
	assert.False(t, found)
	assert.Equal(t, 0, v)
	assert.Equal(t, 7, result.OrElse(7))
}

func TestErr(t *testing.T) {
	err := errors.New("test error")
	result := Err[string](err)
	assert.True(t, result.IsErr())
	assert.Equal(t, "", result.Ok)
	assert.Equal(t, err, result.Err)
	assert.Equal(t, "fallback", result.OrElse("fallback"))
}

func TestErrMultiple(t *testing.T) {
	err := errors.New("test error")
	err2 := errors.New("test error2")
	result := Err[string](err)
	assert.True(t, result.IsErr(err2, err))
	result2 := Err[string](err2)
	assert.True(t, result2.IsErr(err, err2))
	assert.False(t, Ok("x").IsErr(err))
}

func TestErrMatch(t *testing.T) {
	err := errors.New("test error")
	result := Err[string](err)
	assert.True(t, result.IsErrMatches("test"))
	assert.True(t, result.IsErrMatches("foo", "error"))
	assert.False(t, result.IsErrMatches("foo"))
	assert.False(t, Absent[string]().IsErrMatches())
}

func TestResult_WithDifferentTypes(t *testing.T) {
	type Person struct {
		Name string
		Age  int
	}

	person := Person{Name: "John", Age: 30}
	result := Ok(person)
	assert.True(t, result.IsFound())
	assert.Equal(t, person, result.Ok)

	m := map[string]any{"a": 1}
	mapResult := Ok(m)
	assert.True(t, mapResult.IsFound())
	assert.Equal(t, m, mapResult.Ok)
}
