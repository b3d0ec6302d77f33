package models

type CapacitySnapshot struct {
	TourID        int64 `json:"tour_id"`
	TotalCapacity int   `json:"total_capacity"`
	Booked        int   `json:"booked"`
	Remaining     int   `json:"remaining"`
	Available     bool  `json:"available"`
}

type AdmissionReason string

const (
	ReasonOK                   AdmissionReason = "ok"
	ReasonTourNotFound         AdmissionReason = "tour_not_found"
	ReasonFullyBooked          AdmissionReason = "fully_booked"
	ReasonInsufficientCapacity AdmissionReason = "insufficient_capacity"
)

type AdmissionResult struct {
	Admissible bool            `json:"admissible"`
	Reason     AdmissionReason `json:"reason"`
	Remaining  int             `json:"remaining"`
}
