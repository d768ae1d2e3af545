package models

import "time"

// CycleReport summarizes one pass of the scheduler over all locations.
type CycleReport struct {
	StartedAt       time.Time     `json:"started_at"`
	Duration        time.Duration `json:"duration_ns"`
	Attempted       int           `json:"attempted"`
	Succeeded       int           `json:"succeeded"`
	Failed          int           `json:"failed"`
	FetchFailures   int           `json:"fetch_failures"`
	PublishFailures int           `json:"publish_failures"`
}

// CollectorStatus is what the health endpoint reports.
type CollectorStatus struct {
	State     string       `json:"state"`
	LastCycle *CycleReport `json:"last_cycle,omitempty"`
}
