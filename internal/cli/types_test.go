package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypes_TextGolden(t *testing.T) {
	out, _, err := execute(NewTypesCommand(&RootOptions{Format: "text"}))
	require.NoError(t, err)

	newGoldie(t).Assert(t, "types", []byte(out))
}

func TestTypes_JSON(t *testing.T) {
	out, _, err := execute(NewTypesCommand(&RootOptions{Format: "json"}))
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   []TypeInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 8)

	assert.Equal(t, TypeInfo{Key: "bool", Type: "bool", Format: "", Conversions: []string{}}, resp.Data[0])
	assert.Equal(t, TypeInfo{
		Key:         "mesh",
		Type:        "mesh",
		Format:      "",
		Module:      "mesh",
		Conversions: []string{"mesh[full]", "mesh[segmented]"},
	}, resp.Data[3])
}

func TestTypes_RejectsArgs(t *testing.T) {
	_, _, err := execute(NewTypesCommand(&RootOptions{Format: "text"}), "mesh")
	require.Error(t, err)
}

func TestAlgorithms_TextGolden(t *testing.T) {
	out, _, err := execute(NewAlgorithmsCommand(&RootOptions{Format: "text"}))
	require.NoError(t, err)

	newGoldie(t).Assert(t, "algorithms", []byte(out))
}

func TestAlgorithms_One(t *testing.T) {
	out, _, err := execute(NewAlgorithmsCommand(&RootOptions{Format: "json"}), "mesh_stats")
	require.NoError(t, err)

	var resp struct {
		Data []AlgorithmInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data, 1)

	a := resp.Data[0]
	assert.Equal(t, "mesh_stats", a.Name)
	assert.Equal(t, "mesher", a.Module)
	assert.Equal(t, []SlotInfo{{Name: "mesh", Type: "mesh[*]", Required: true}}, a.Inputs)
	assert.Len(t, a.Outputs, 3)
}

func TestAlgorithms_Unknown(t *testing.T) {
	out, _, err := execute(NewAlgorithmsCommand(&RootOptions{Format: "text"}), "delaunay")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [ALGORITHM_NOT_REGISTERED]")
}

func TestFormatSlot(t *testing.T) {
	tests := []struct {
		slot SlotInfo
		want string
	}{
		{SlotInfo{Name: "mesh", Type: "mesh[*]", Required: true}, "mesh: mesh[*] (required)"},
		{SlotInfo{Name: "nx", Type: "int", Default: 1}, "nx: int = 1"},
		{SlotInfo{Name: "segmented", Type: "bool", Default: false}, "segmented: bool = false"},
		{SlotInfo{Name: "data", Type: "any", Description: "anything"}, "data: any  # anything"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatSlot(tt.slot))
	}
}
