package results

import (
	"errors"
	"fmt"

	"osemosys_toolkit/internal/model"
)

var builtinFormulas = map[string]Formula{
	"AccumulatedNewCapacity":               accumulatedNewCapacity,
	"AnnualEmissions":                      annualEmissions,
	"AnnualFixedOperatingCost":             annualFixedOperatingCost,
	"AnnualTechnologyEmission":             annualTechnologyEmission,
	"AnnualTechnologyEmissionByMode":       annualTechnologyEmissionByMode,
	"AnnualVariableOperatingCost":          annualVariableOperatingCost,
	"CapitalInvestment":                    capitalInvestment,
	"CapitalRecoveryFactor":                capitalRecoveryFactor,
	"Demand":                               demand,
	"DiscountedCapitalInvestment":          discountedCapitalInvestment,
	"DiscountedOperationalCost":            discountedOperationalCost,
	"DiscountedTechnologyEmissionsPenalty": discountedTechnologyEmissionsPenalty,
	"ProductionByTechnology":               productionByTechnology,
	"ProductionByTechnologyAnnual":         productionByTechnologyAnnual,
	"PvAnnuity":                            pvAnnuity,
	"RateOfProductionByTechnology":         rateOfProductionByTechnology,
	"RateOfProductionByTechnologyByMode":   rateOfProductionByTechnologyByMode,
	"RateOfUseByTechnology":                rateOfUseByTechnology,
	"RateOfUseByTechnologyByMode":          rateOfUseByTechnologyByMode,
	"TotalAnnualTechnologyActivityByMode":  totalAnnualTechnologyActivityByMode,
	"TotalCapacityAnnual":                  totalCapacityAnnual,
	"TotalDiscountedCost":                  totalDiscountedCost,
	"TotalTechnologyAnnualActivity":        totalTechnologyAnnualActivity,
	"TotalTechnologyModelPeriodActivity":   totalTechnologyModelPeriodActivity,
	"UseByTechnology":                      useByTechnology,
}

// finish sums t into dims, drops zero rows and names the table.
// Exact zeros are indistinguishable from absent rows in the sparse output.
func finish(name string, t *model.Table, dims ...string) (*model.Table, error) {
	grouped, err := model.GroupSum(t, dims...)
	if err != nil {
		return nil, fmt.Errorf("calculating %s: %w", name, err)
	}
	out := model.DropZeros(grouped)
	out.Name = name
	return out, nil
}

// AccumulatedNewCapacity[r,t,y] sums NewCapacity[r,t,yy] over the vintages
// yy still operating in y, that is 0 <= y-yy < OperationalLife[r,t].
func accumulatedNewCapacity(p *Package) (*model.Table, error) {
	const name = "AccumulatedNewCapacity"
	in, err := p.need(name, "NewCapacity", "OperationalLife", "YEAR")
	if err != nil {
		return nil, err
	}
	newCapacity, err := model.Reorder(in[0], "REGION", "TECHNOLOGY", "YEAR")
	if err != nil {
		return nil, fmt.Errorf("calculating %s: %w", name, err)
	}
	life, err := model.Reorder(in[1], "REGION", "TECHNOLOGY")
	if err != nil {
		return nil, fmt.Errorf("calculating %s: %w", name, err)
	}
	years := in[2].Members()

	type techKey struct{ region, tech model.Label }
	type vintage struct {
		year  int
		value float64
	}
	vintages := make(map[techKey][]vintage)
	for _, row := range newCapacity.Rows() {
		y, ok := row.Key[2].Int()
		if !ok {
			return nil, fmt.Errorf("calculating %s: NewCapacity year %q is not an integer", name, row.Key[2])
		}
		k := techKey{row.Key[0], row.Key[1]}
		vintages[k] = append(vintages[k], vintage{y, row.Value})
	}

	out := model.NewTable(name, "REGION", "TECHNOLOGY", "YEAR")
	for k, vs := range vintages {
		operationalLife, ok := life.Get(k.region, k.tech)
		if !ok {
			continue
		}
		for _, yl := range years {
			y, ok := yl.Int()
			if !ok {
				return nil, fmt.Errorf("calculating %s: YEAR member %q is not an integer", name, yl)
			}
			sum := 0.0
			for _, v := range vs {
				if age := y - v.year; age >= 0 && float64(age) < operationalLife {
					sum += v.value
				}
			}
			out.Put(sum, k.region, k.tech, yl)
		}
	}
	return finish(name, out, "REGION", "TECHNOLOGY", "YEAR")
}

func totalCapacityAnnual(p *Package) (*model.Table, error) {
	const name = "TotalCapacityAnnual"
	in, err := p.need(name, "AccumulatedNewCapacity", "ResidualCapacity")
	if err != nil {
		return nil, err
	}
	return finish(name, model.AddFill(in[1], in[0], 0), "REGION", "TECHNOLOGY", "YEAR")
}

func annualFixedOperatingCost(p *Package) (*model.Table, error) {
	const name = "AnnualFixedOperatingCost"
	in, err := p.need(name, "TotalCapacityAnnual", "FixedCost")
	if err != nil {
		return nil, err
	}
	return finish(name, model.MulFill(in[0], in[1], 0), "REGION", "TECHNOLOGY", "YEAR")
}

func annualVariableOperatingCost(p *Package) (*model.Table, error) {
	const name = "AnnualVariableOperatingCost"
	in, err := p.need(name, "RateOfActivity", "YearSplit", "VariableCost")
	if err != nil {
		return nil, err
	}
	activity := model.MulFill(in[0], in[1], 0)
	return finish(name, model.MulFill(activity, in[2], 0), "REGION", "TECHNOLOGY", "YEAR")
}

func capitalInvestment(p *Package) (*model.Table, error) {
	const name = "CapitalInvestment"
	in, err := p.need(name, "CapitalCost", "NewCapacity")
	if err != nil {
		return nil, err
	}
	return finish(name, model.MulFill(in[0], in[1], 0), "REGION", "TECHNOLOGY", "YEAR")
}

// emissionActivity is EmissionActivityRatio * YearSplit * RateOfActivity,
// indexed by every dimension of its operands.
func emissionActivity(p *Package, name string) (*model.Table, error) {
	in, err := p.need(name, "EmissionActivityRatio", "YearSplit", "RateOfActivity")
	if err != nil {
		return nil, err
	}
	return model.MulFill(model.Mul(in[0], in[1]), in[2], 0), nil
}

func annualEmissions(p *Package) (*model.Table, error) {
	const name = "AnnualEmissions"
	t, err := emissionActivity(p, name)
	if err != nil {
		return nil, err
	}
	return finish(name, t, "REGION", "EMISSION", "YEAR")
}

func annualTechnologyEmission(p *Package) (*model.Table, error) {
	const name = "AnnualTechnologyEmission"
	t, err := emissionActivity(p, name)
	if err != nil {
		return nil, err
	}
	return finish(name, t, "REGION", "TECHNOLOGY", "EMISSION", "YEAR")
}

func annualTechnologyEmissionByMode(p *Package) (*model.Table, error) {
	const name = "AnnualTechnologyEmissionByMode"
	t, err := emissionActivity(p, name)
	if err != nil {
		return nil, err
	}
	return finish(name, t, "REGION", "TECHNOLOGY", "EMISSION", "MODE_OF_OPERATION", "YEAR")
}

func productionByTechnology(p *Package) (*model.Table, error) {
	const name = "ProductionByTechnology"
	in, err := p.need(name, "RateOfActivity", "OutputActivityRatio", "YearSplit")
	if err != nil {
		return nil, err
	}
	activity := model.MulFill(in[0], in[2], 0)
	return finish(name, model.MulFill(activity, in[1], 0), "REGION", "TIMESLICE", "TECHNOLOGY", "FUEL", "YEAR")
}

func productionByTechnologyAnnual(p *Package) (*model.Table, error) {
	const name = "ProductionByTechnologyAnnual"
	in, err := p.need(name, "ProductionByTechnology")
	if err != nil {
		return nil, err
	}
	return finish(name, in[0], "REGION", "TECHNOLOGY", "FUEL", "YEAR")
}

func rateOfProductionByTechnologyByMode(p *Package) (*model.Table, error) {
	const name = "RateOfProductionByTechnologyByMode"
	in, err := p.need(name, "RateOfActivity", "OutputActivityRatio")
	if err != nil {
		return nil, err
	}
	return finish(name, model.MulFill(in[0], in[1], 0),
		"REGION", "TIMESLICE", "TECHNOLOGY", "MODE_OF_OPERATION", "FUEL", "YEAR")
}

func rateOfProductionByTechnology(p *Package) (*model.Table, error) {
	const name = "RateOfProductionByTechnology"
	in, err := p.need(name, "RateOfProductionByTechnologyByMode")
	if err != nil {
		return nil, err
	}
	return finish(name, in[0], "REGION", "TIMESLICE", "TECHNOLOGY", "FUEL", "YEAR")
}

func rateOfUseByTechnologyByMode(p *Package) (*model.Table, error) {
	const name = "RateOfUseByTechnologyByMode"
	in, err := p.need(name, "RateOfActivity", "InputActivityRatio")
	if err != nil {
		return nil, err
	}
	return finish(name, model.MulFill(in[0], in[1], 0),
		"REGION", "TIMESLICE", "TECHNOLOGY", "MODE_OF_OPERATION", "FUEL", "YEAR")
}

func rateOfUseByTechnology(p *Package) (*model.Table, error) {
	const name = "RateOfUseByTechnology"
	in, err := p.need(name, "RateOfUseByTechnologyByMode")
	if err != nil {
		return nil, err
	}
	return finish(name, in[0], "REGION", "TIMESLICE", "TECHNOLOGY", "FUEL", "YEAR")
}

func useByTechnology(p *Package) (*model.Table, error) {
	const name = "UseByTechnology"
	in, err := p.need(name, "RateOfUseByTechnologyByMode", "YearSplit")
	if err != nil {
		return nil, err
	}
	return finish(name, model.MulFill(in[0], in[1], 0), "REGION", "TIMESLICE", "TECHNOLOGY", "FUEL", "YEAR")
}

func demand(p *Package) (*model.Table, error) {
	const name = "Demand"
	in, err := p.need(name, "SpecifiedAnnualDemand", "SpecifiedDemandProfile")
	if err != nil {
		return nil, err
	}
	return finish(name, model.MulFill(in[0], in[1], 0), "REGION", "TIMESLICE", "FUEL", "YEAR")
}

func totalAnnualTechnologyActivityByMode(p *Package) (*model.Table, error) {
	const name = "TotalAnnualTechnologyActivityByMode"
	in, err := p.need(name, "RateOfActivity", "YearSplit")
	if err != nil {
		return nil, err
	}
	return finish(name, model.MulFill(in[0], in[1], 0), "REGION", "TECHNOLOGY", "MODE_OF_OPERATION", "YEAR")
}

func totalTechnologyAnnualActivity(p *Package) (*model.Table, error) {
	const name = "TotalTechnologyAnnualActivity"
	in, err := p.need(name, "TotalAnnualTechnologyActivityByMode")
	if err != nil {
		return nil, err
	}
	return finish(name, in[0], "REGION", "TECHNOLOGY", "YEAR")
}

func totalTechnologyModelPeriodActivity(p *Package) (*model.Table, error) {
	const name = "TotalTechnologyModelPeriodActivity"
	in, err := p.need(name, "TotalTechnologyAnnualActivity")
	if err != nil {
		return nil, err
	}
	return finish(name, in[0], "REGION", "TECHNOLOGY")
}

// technologyRates builds a REGION,TECHNOLOGY rate table from
// DiscountRateIdv, falling back to the regional DiscountRate for pairs it
// does not cover.
func technologyRates(p *Package, name string, regions, techs []model.Label) (*model.Table, error) {
	idv, err := p.optional("DiscountRateIdv")
	if err != nil {
		return nil, fmt.Errorf("calculating %s: %w", name, err)
	}
	in, err := p.need(name, "DiscountRate")
	if err != nil {
		if idv != nil && errors.Is(err, ErrMissingData) {
			return idv, nil
		}
		return nil, err
	}
	if idv == nil {
		return in[0], nil
	}

	idvRates, err := rateLookup(idv)
	if err != nil {
		return nil, fmt.Errorf("calculating %s: %w", name, err)
	}
	regional, err := rateLookup(in[0])
	if err != nil {
		return nil, fmt.Errorf("calculating %s: %w", name, err)
	}

	out := model.NewTable("DiscountRateIdv", "REGION", "TECHNOLOGY")
	for _, r := range regions {
		for _, t := range techs {
			if v, ok := idvRates(r, t); ok {
				out.Put(v, r, t)
			} else if v, ok := regional(r, t); ok {
				out.Put(v, r, t)
			}
		}
	}
	return out, nil
}

func capitalRecoveryFactor(p *Package) (*model.Table, error) {
	const name = "CapitalRecoveryFactor"
	in, err := p.need(name, "REGION", "TECHNOLOGY", "OperationalLife")
	if err != nil {
		return nil, err
	}
	regions, techs := in[0].Members(), in[1].Members()
	rate, err := technologyRates(p, name, regions, techs)
	if err != nil {
		return nil, err
	}
	crf, err := CapitalRecoveryFactor(regions, techs, rate, in[2])
	if err != nil {
		return nil, fmt.Errorf("calculating %s: %w", name, err)
	}
	crf.Name = name
	return crf, nil
}

func pvAnnuity(p *Package) (*model.Table, error) {
	const name = "PvAnnuity"
	in, err := p.need(name, "REGION", "TECHNOLOGY", "OperationalLife", "DiscountRate")
	if err != nil {
		return nil, err
	}
	pva, err := PvAnnuity(in[0].Members(), in[1].Members(), in[3], in[2])
	if err != nil {
		return nil, fmt.Errorf("calculating %s: %w", name, err)
	}
	pva.Name = name
	return pva, nil
}

// discountFactor evaluates the discount factor of every model region and
// year at the given point of the year.
func discountFactor(p *Package, name string, fraction float64) (*model.Table, error) {
	in, err := p.need(name, "REGION", "YEAR", "DiscountRate")
	if err != nil {
		return nil, err
	}
	df, err := DiscountFactor(in[0].Members(), in[1].Members(), in[2], fraction)
	if err != nil {
		return nil, fmt.Errorf("calculating %s: %w", name, err)
	}
	return df, nil
}

func discountedCapitalInvestment(p *Package) (*model.Table, error) {
	const name = "DiscountedCapitalInvestment"
	in, err := p.need(name, "CapitalInvestment")
	if err != nil {
		return nil, err
	}
	df, err := discountFactor(p, name, 0)
	if err != nil {
		return nil, err
	}
	return finish(name, model.Div(in[0], df), "REGION", "TECHNOLOGY", "YEAR")
}

func discountedOperationalCost(p *Package) (*model.Table, error) {
	const name = "DiscountedOperationalCost"
	in, err := p.need(name, "AnnualFixedOperatingCost", "AnnualVariableOperatingCost")
	if err != nil {
		return nil, err
	}
	df, err := discountFactor(p, name, 0.5)
	if err != nil {
		return nil, err
	}
	undiscounted := model.AddFill(in[0], in[1], 0)
	return finish(name, model.Div(undiscounted, df), "REGION", "TECHNOLOGY", "YEAR")
}

func discountedTechnologyEmissionsPenalty(p *Package) (*model.Table, error) {
	const name = "DiscountedTechnologyEmissionsPenalty"
	in, err := p.need(name, "AnnualTechnologyEmissionByMode", "EmissionsPenalty")
	if err != nil {
		return nil, err
	}
	df, err := discountFactor(p, name, 0.5)
	if err != nil {
		return nil, err
	}
	penalty := model.MulFill(in[0], in[1], 0)
	return finish(name, model.Div(penalty, df), "REGION", "TECHNOLOGY", "YEAR")
}

// TotalDiscountedCost[r,y] sums the discounted operating, capital and
// emission penalty costs of every technology, less its salvage value.
func totalDiscountedCost(p *Package) (*model.Table, error) {
	const name = "TotalDiscountedCost"
	in, err := p.need(name,
		"DiscountedOperationalCost",
		"DiscountedCapitalInvestment",
		"DiscountedTechnologyEmissionsPenalty",
		"DiscountedSalvageValue",
	)
	if err != nil {
		return nil, err
	}
	total := model.AddFill(in[0], in[1], 0)
	total = model.AddFill(total, in[2], 0)
	total = model.SubFill(total, in[3], 0)
	return finish(name, total, "REGION", "YEAR")
}
