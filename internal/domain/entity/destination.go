package entity

import "strings"

// Destination is a candidate stop produced by research
type Destination struct {
	Name          string   `bson:"name" json:"name"`
	Country       string   `bson:"country" json:"country"`
	Region        string   `bson:"region,omitempty" json:"region,omitempty"`
	KeySites      []string `bson:"keySites" json:"key_sites"`
	Rationale     string   `bson:"rationale" json:"rationale"`
	EstimatedDays int      `bson:"estimatedDays" json:"estimated_days"`
	Logistics     string   `bson:"logistics,omitempty" json:"logistics,omitempty"`
}

// SameName compares destination names case-insensitively
func (d Destination) SameName(name string) bool {
	return strings.EqualFold(strings.TrimSpace(d.Name), strings.TrimSpace(name))
}
