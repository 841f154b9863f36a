package model

import "time"

type Family struct {
	Code      string    `json:"familyCode"`
	Name      string    `json:"familyName"`
	CreatedBy string    `json:"createdBy"`
	Members   []string  `json:"members"`
	Balances  Balances  `json:"balances"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (f *Family) HasMember(name string) bool {
	for _, m := range f.Members {
		if m == name {
			return true
		}
	}
	return false
}
