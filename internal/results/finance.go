package results

import (
	"fmt"
	"math"

	"osemosys_toolkit/internal/model"
)

// DiscountFactor returns (1+r)^(y - first year + fraction) for every region
// and year. A fraction of 0.5 discounts to mid-year, 1.0 to the end of the
// year. rate is indexed by REGION.
func DiscountFactor(regions, years []model.Label, rate *model.Table, fraction float64) (*model.Table, error) {
	out := model.NewTable("DiscountFactor", "REGION", "YEAR")
	if len(regions) == 0 || len(years) == 0 {
		return out, nil
	}

	first := math.MaxInt
	for _, y := range years {
		n, ok := y.Int()
		if !ok {
			return nil, fmt.Errorf("discount factor: year %q is not an integer", y)
		}
		first = min(first, n)
	}

	lookup, err := rateLookup(rate)
	if err != nil {
		return nil, err
	}

	for _, r := range regions {
		dr, ok := lookup(r, model.Label{})
		if !ok {
			return nil, fmt.Errorf("discount factor: no discount rate for region %s", r)
		}
		for _, y := range years {
			n, _ := y.Int()
			out.Put(math.Pow(1+dr, float64(n-first)+fraction), r, y)
		}
	}
	return out, nil
}

// PvAnnuity returns the present value of an annuity of one paid over the
// operational life n of each technology: (1-(1+r)^-n)/r, or n when r is 0.
// rate is indexed by REGION or by REGION and TECHNOLOGY.
func PvAnnuity(regions, techs []model.Label, rate, life *model.Table) (*model.Table, error) {
	return perTechnology("PvAnnuity", regions, techs, rate, life, func(r, n float64) float64 {
		if r == 0 {
			return n
		}
		return (1 - math.Pow(1+r, -n)) / r
	})
}

// CapitalRecoveryFactor returns the share of an investment repaid each year
// over the operational life n: r/(1-(1+r)^-n), or 1/n when r is 0.
// rate is indexed by REGION or by REGION and TECHNOLOGY.
func CapitalRecoveryFactor(regions, techs []model.Label, rate, life *model.Table) (*model.Table, error) {
	return perTechnology("CapitalRecoveryFactor", regions, techs, rate, life, func(r, n float64) float64 {
		if r == 0 {
			return 1 / n
		}
		return r / (1 - math.Pow(1+r, -n))
	})
}

func perTechnology(name string, regions, techs []model.Label, rate, life *model.Table, f func(r, n float64) float64) (*model.Table, error) {
	out := model.NewTable(name, "REGION", "TECHNOLOGY")
	if len(regions) == 0 || len(techs) == 0 {
		return out, nil
	}

	lookup, err := rateLookup(rate)
	if err != nil {
		return nil, err
	}
	lt, err := model.Reorder(life, "REGION", "TECHNOLOGY")
	if err != nil {
		return nil, fmt.Errorf("%s: operational life: %w", name, err)
	}

	for _, r := range regions {
		for _, t := range techs {
			dr, ok := lookup(r, t)
			if !ok {
				return nil, fmt.Errorf("%s: no discount rate for region %s, technology %s", name, r, t)
			}
			n, ok := lt.Get(r, t)
			if !ok {
				return nil, fmt.Errorf("%s: no operational life for region %s, technology %s", name, r, t)
			}
			if n <= 0 {
				return nil, fmt.Errorf("%s: operational life of %s in %s must be positive, got %v", name, t, r, n)
			}
			out.Put(f(dr, n), r, t)
		}
	}
	return out, nil
}

type rateFunc func(region, tech model.Label) (float64, bool)

// rateLookup reads rates indexed by REGION, or by REGION and TECHNOLOGY.
func rateLookup(rate *model.Table) (rateFunc, error) {
	switch len(rate.Dims) {
	case 1:
		if rate.Dims[0] != "REGION" {
			return nil, fmt.Errorf("discount rate %s must be indexed by REGION, got %v", rate.Name, rate.Dims)
		}
		return func(r, _ model.Label) (float64, bool) { return rate.Get(r) }, nil
	case 2:
		rt, err := model.Reorder(rate, "REGION", "TECHNOLOGY")
		if err != nil {
			return nil, fmt.Errorf("discount rate %s: %w", rate.Name, err)
		}
		return func(r, t model.Label) (float64, bool) { return rt.Get(r, t) }, nil
	default:
		return nil, fmt.Errorf("discount rate %s must be indexed by REGION or REGION,TECHNOLOGY, got %v", rate.Name, rate.Dims)
	}
}
