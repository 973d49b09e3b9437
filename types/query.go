package types

// PriceQuery selects a continuous-contract price panel.
type PriceQuery struct {
	Contract string // main or active_near
	Field    string // close, settlement or open
	RollDays int    // days over which the roll is spread
}
