package results

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"osemosys_toolkit/internal/model"
)

func TestDiscountFactor(t *testing.T) {
	regions := []model.Label{simplicity}
	years := []model.Label{yr(2014), yr(2015), yr(2016)}

	tests := []struct {
		name     string
		fraction float64
		want     []float64
	}{
		{"start of year", 0, []float64{1, 1.05, 1.1025}},
		{"mid year", 0.5, []float64{1.024695076, 1.075929830, 1.129726321}},
		{"end of year", 1, []float64{1.05, 1.1025, 1.157625}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			df, err := DiscountFactor(regions, years, discountRate(0.05), tt.fraction)
			require.NoError(t, err)
			assert.Equal(t, []string{"REGION", "YEAR"}, df.Dims)
			require.Equal(t, len(years), df.Len())
			for i, y := range years {
				assert.InDelta(t, tt.want[i], value(t, df, simplicity, y), 1e-8, "year %s", y)
			}
		})
	}
}

func TestDiscountFactor_ModelPeriod(t *testing.T) {
	df, err := DiscountFactor([]model.Label{simplicity}, yearSet().Members(), discountRate(0.05), 0)
	require.NoError(t, err)
	require.Equal(t, 7, df.Len())

	assert.InDelta(t, 1.0, value(t, df, simplicity, yr(2014)), 1e-8)
	assert.InDelta(t, 1.21550625, value(t, df, simplicity, yr(2018)), 1e-8)
	assert.InDelta(t, 1.34009564, value(t, df, simplicity, yr(2020)), 1e-8)
}

func TestDiscountFactor_UnorderedYears(t *testing.T) {
	years := []model.Label{yr(2016), yr(2014)}
	df, err := DiscountFactor([]model.Label{simplicity}, years, discountRate(0.1), 0)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, value(t, df, simplicity, yr(2014)), 1e-9)
	assert.InDelta(t, 1.21, value(t, df, simplicity, yr(2016)), 1e-9)
}

func TestDiscountFactor_Empty(t *testing.T) {
	df, err := DiscountFactor(nil, []model.Label{yr(2014)}, discountRate(0.05), 0)
	require.NoError(t, err)
	assert.True(t, df.Empty())

	df, err = DiscountFactor([]model.Label{simplicity}, nil, discountRate(0.05), 0)
	require.NoError(t, err)
	assert.True(t, df.Empty())
}

func TestDiscountFactor_Errors(t *testing.T) {
	tests := []struct {
		name    string
		regions []model.Label
		years   []model.Label
		rate    *model.Table
		wantErr string
	}{
		{
			name:    "missing region rate",
			regions: []model.Label{simplicity, model.S("UTOPIA")},
			years:   []model.Label{yr(2014)},
			rate:    discountRate(0.05),
			wantErr: "no discount rate for region UTOPIA",
		},
		{
			name:    "string year",
			regions: []model.Label{simplicity},
			years:   []model.Label{model.S("first")},
			rate:    discountRate(0.05),
			wantErr: "not an integer",
		},
		{
			name:    "rate not indexed by region",
			regions: []model.Label{simplicity},
			years:   []model.Label{yr(2014)},
			rate:    model.NewTable("DiscountRate", "TECHNOLOGY"),
			wantErr: "must be indexed by REGION",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DiscountFactor(tt.regions, tt.years, tt.rate, 0)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestPvAnnuityAndCapitalRecoveryFactor(t *testing.T) {
	regions := []model.Label{simplicity}
	techs := []model.Label{gas, dummy}

	pva, err := PvAnnuity(regions, techs, discountRate(0.05), operationalLife(2, 3))
	require.NoError(t, err)
	assert.Equal(t, []string{"REGION", "TECHNOLOGY"}, pva.Dims)
	assert.InDelta(t, 1.859410431, value(t, pva, simplicity, gas), 1e-8)
	assert.InDelta(t, 2.723248029, value(t, pva, simplicity, dummy), 1e-8)

	crf, err := CapitalRecoveryFactor(regions, techs, discountRate(0.05), operationalLife(2, 3))
	require.NoError(t, err)
	assert.InDelta(t, 0.537804878, value(t, crf, simplicity, gas), 1e-8)
	assert.InDelta(t, 0.367208565, value(t, crf, simplicity, dummy), 1e-8)

	// An annuity of one per year repays the investment exactly.
	for _, tech := range techs {
		assert.InDelta(t, 1.0, value(t, pva, simplicity, tech)*value(t, crf, simplicity, tech), 1e-9)
	}
}

func TestPvAnnuityAndCapitalRecoveryFactor_ZeroRate(t *testing.T) {
	regions := []model.Label{simplicity}
	techs := []model.Label{gas, dummy}

	pva, err := PvAnnuity(regions, techs, discountRate(0), operationalLife(2, 4))
	require.NoError(t, err)
	assert.Equal(t, 2.0, value(t, pva, simplicity, gas))
	assert.Equal(t, 4.0, value(t, pva, simplicity, dummy))

	crf, err := CapitalRecoveryFactor(regions, techs, discountRate(0), operationalLife(2, 4))
	require.NoError(t, err)
	assert.Equal(t, 0.5, value(t, crf, simplicity, gas))
	assert.Equal(t, 0.25, value(t, crf, simplicity, dummy))
}

func TestCapitalRecoveryFactor_TechnologyRate(t *testing.T) {
	rate := model.NewTable("DiscountRateIdv", "TECHNOLOGY", "REGION")
	rate.Put(0.1, gas, simplicity)
	rate.Put(0.05, dummy, simplicity)

	crf, err := CapitalRecoveryFactor([]model.Label{simplicity}, []model.Label{gas, dummy}, rate, operationalLife(2, 3))
	require.NoError(t, err)
	assert.InDelta(t, 0.576190476, value(t, crf, simplicity, gas), 1e-8)
	assert.InDelta(t, 0.367208565, value(t, crf, simplicity, dummy), 1e-8)
}

func TestPerTechnology_Empty(t *testing.T) {
	crf, err := CapitalRecoveryFactor(nil, []model.Label{gas}, discountRate(0.05), operationalLife(2, 3))
	require.NoError(t, err)
	assert.True(t, crf.Empty())

	pva, err := PvAnnuity([]model.Label{simplicity}, nil, discountRate(0.05), operationalLife(2, 3))
	require.NoError(t, err)
	assert.True(t, pva.Empty())
}

func TestPerTechnology_Errors(t *testing.T) {
	emptyRate := model.NewTable("DiscountRate", "REGION")
	gasOnly := model.NewTable("OperationalLife", "REGION", "TECHNOLOGY")
	gasOnly.Put(2, simplicity, gas)

	tests := []struct {
		name    string
		rate    *model.Table
		life    *model.Table
		wantErr string
	}{
		{"missing rate", emptyRate, operationalLife(2, 3), "no discount rate"},
		{"missing life", discountRate(0.05), gasOnly, "no operational life"},
		{"zero life", discountRate(0.05), operationalLife(0, 3), "must be positive"},
		{"negative life", discountRate(0.05), operationalLife(2, -1), "must be positive"},
		{"rate over three dims", model.NewTable("DiscountRate", "REGION", "TECHNOLOGY", "YEAR"), operationalLife(2, 3), "must be indexed by REGION or REGION,TECHNOLOGY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CapitalRecoveryFactor([]model.Label{simplicity}, []model.Label{gas, dummy}, tt.rate, tt.life)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)

			_, err = PvAnnuity([]model.Label{simplicity}, []model.Label{gas, dummy}, tt.rate, tt.life)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
