package stock

import "time"

// Stock is the PHC supply inventory for one worker. One row per worker,
// created on first read with zero counts.
type Stock struct {
	ID       string `json:"id" db:"id"`
	WorkerID string `json:"asha_id" db:"asha_id"`

	IronTablets    int `json:"iron_tablets" db:"iron_tablets"`
	TTVaccine      int `json:"tt_vaccine" db:"tt_vaccine"`
	FolicAcid      int `json:"folic_acid" db:"folic_acid"`
	CalciumTablets int `json:"calcium_tablets" db:"calcium_tablets"`

	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Update carries partial stock changes. Nil fields are left untouched.
type Update struct {
	IronTablets    *int `json:"iron_tablets"`
	TTVaccine      *int `json:"tt_vaccine"`
	FolicAcid      *int `json:"folic_acid"`
	CalciumTablets *int `json:"calcium_tablets"`
}
