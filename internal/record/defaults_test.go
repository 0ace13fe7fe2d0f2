package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFillDefaults_EmptyRecord(t *testing.T) {
	rec := Record{KeyLotID: "Lot1"}
	warnings := FillDefaults(rec)

	// four sections plus five project_info fields
	assert.Len(t, warnings, 9)
	assert.Contains(t, warnings, "Missing hvac section, using defaults")
	assert.Contains(t, warnings, "Missing project_info.zip, using default")

	info := rec.Section(KeyProjectInfo)
	require.NotNil(t, info)
	assert.Equal(t, "Default_name", info["name"])
	assert.Equal(t, "Default_city", info["city"])

	building := rec.Section(KeyBuildingData)
	assert.InDelta(t, DefaultFloorArea, building["conditioned_floor_area"], 1e-9)
	assert.Equal(t, map[string]any{"ach50": 7.0}, building["infiltration"])

	system := rec.Section(KeyHVAC)["system1"].(map[string]any)
	assert.InDelta(t, 2.5, system["tonnage"], 1e-9)
	assert.InDelta(t, 14.0, system["seer2"], 1e-9)
	assert.Equal(t, "Interior", rec.Section(KeyDuct)["location"])
}

func TestFillDefaults_CompleteRecordUntouched(t *testing.T) {
	rec := Sample()
	before, err := rec.Content()
	require.NoError(t, err)

	assert.Empty(t, FillDefaults(rec))

	after, err := rec.Content()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestFillDefaults_MissingFloorAreaOnly(t *testing.T) {
	rec := Sample()
	delete(rec.Section(KeyBuildingData), "conditioned_floor_area")

	warnings := FillDefaults(rec)
	assert.Equal(t, []string{"Missing conditioned_floor_area, using default 2000 sqft"}, warnings)
	assert.InDelta(t, DefaultFloorArea, rec.Section(KeyBuildingData)["conditioned_floor_area"], 1e-9)
}

func TestFillDefaults_KeepsFalsyExplicitValues(t *testing.T) {
	rec := Sample()
	rec.Section(KeyBuildingData)["conditioned_floor_area"] = 0.0

	assert.Empty(t, FillDefaults(rec))
	assert.InDelta(t, 0.0, rec.Section(KeyBuildingData)["conditioned_floor_area"], 1e-9)
}

func TestFillDefaults_FreshValuesPerCall(t *testing.T) {
	a := Record{KeyLotID: "A"}
	b := Record{KeyLotID: "B"}
	FillDefaults(a)
	FillDefaults(b)

	a.Section(KeyDuct)["location"] = "Attic"
	assert.Equal(t, "Interior", b.Section(KeyDuct)["location"])
}
