package types

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agoawk/goawk/parser"
)

func TestInferScalarJoinsToFloat(t *testing.T) {
	prog, err := parser.ParseProgram([]byte(`BEGIN { x = 1; x = 2.5; print x }`), nil)
	assert.NoError(t, err)

	inf, err := Infer(prog)
	assert.NoError(t, err)

	idx := prog.Scalars["x"]
	assert.Equal(t, Float, inf.Globals[idx].Type.Kind)
}

func TestInferArrayStaysStrMap(t *testing.T) {
	prog, err := parser.ParseProgram([]byte(`{a[$1]++} END{for(k in a)print k,a[k]}`), nil)
	assert.NoError(t, err)

	inf, err := Infer(prog)
	assert.NoError(t, err)

	idx := prog.Arrays["a"]
	assert.Equal(t, StrMap, inf.Arrays[idx].Type.Kind)
}

func TestJoinRejectsMixedMapKeyKinds(t *testing.T) {
	_, err := Join(Type{Kind: IntMap, Value: Int}, Type{Kind: StrMap, Value: Int}, true)
	assert.Error(t, err)
}

func TestInferIsIdempotent(t *testing.T) {
	prog, err := parser.ParseProgram([]byte(`BEGIN { x = 1; y = x "" }`), nil)
	assert.NoError(t, err)

	inf1, err := Infer(prog)
	assert.NoError(t, err)
	inf2, err := Infer(prog)
	assert.NoError(t, err)

	for idx, cell := range inf1.Globals {
		assert.Equal(t, cell.Type, inf2.Globals[idx].Type)
	}
}
