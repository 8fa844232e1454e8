package entity

import "time"

type EventStatistics struct {
	Total               int                       `json:"total"`
	ByStatus            map[EventStatus]int       `json:"by_status"`
	ByCertificateStatus map[CertificateStatus]int `json:"by_certificate_status"`
	Recent              int                       `json:"recent"`
}

type CertificateStatistics struct {
	Requests map[CertificateRequestStatus]int `json:"requests"`
	Recent   int                              `json:"recent"`
}

type Statistics struct {
	Events       EventStatistics       `json:"events"`
	Certificates CertificateStatistics `json:"certificates"`
	Since        time.Time             `json:"since"`
}
