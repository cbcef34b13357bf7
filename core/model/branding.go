package model

// BrandingObligation is the per-trainset view of an active advertiser
// contract assignment.
type BrandingObligation struct {
	ContractID     string  `json:"contract_id"`
	TrainsetID     string  `json:"trainset_id"`
	RequiredHours  float64 `json:"required_hours"`
	DeliveredHours float64 `json:"delivered_hours"`
}

// Shortfall returns the exposure hours still owed under the contract.
func (o BrandingObligation) Shortfall() float64 {
	if d := o.RequiredHours - o.DeliveredHours; d > 0 {
		return d
	}
	return 0
}
