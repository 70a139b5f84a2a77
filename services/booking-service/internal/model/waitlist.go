package model

import "time"

type WaitlistEntry struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	CreatedAt   time.Time `json:"createdAt"`
	ServiceID   string    `json:"serviceId"`
	ServiceName string    `json:"serviceName"`
	Email       string    `json:"email"`
	Phone       string    `json:"phone"`
	Note        string    `json:"note"`
}
