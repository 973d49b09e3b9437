package types

import "sort"

// IndustryMap maps a symbol to its industry.
type IndustryMap map[string]string

// FromIndustrySymbols inverts an industry -> members listing.
func FromIndustrySymbols(bySector map[string][]string) IndustryMap {
	m := make(IndustryMap)
	for industry, symbols := range bySector {
		for _, s := range symbols {
			m[s] = industry
		}
	}
	return m
}

// Members groups the given universe by industry. Symbols without an industry are left out.
// Industries and their members come back sorted.
func (m IndustryMap) Members(universe []string) (industries []string, members map[string][]string) {
	members = make(map[string][]string)
	for _, s := range universe {
		ind, ok := m[s]
		if !ok {
			continue
		}
		members[ind] = append(members[ind], s)
	}
	for ind := range members {
		sort.Strings(members[ind])
		industries = append(industries, ind)
	}
	sort.Strings(industries)
	return industries, members
}
