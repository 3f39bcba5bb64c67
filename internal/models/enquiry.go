package models

import "time"

// Enquiry is a buyer's contact request routed to the listing agent.
type Enquiry struct {
	ID         string    `json:"id"`
	PropertyID int64     `json:"propertyId"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"createdAt"`
}

type NewEnquiry struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Phone   string `json:"phone"`
	Message string `json:"message" validate:"required,max=2000"`
}

// EnquiryReceipt reports which channels delivered the enquiry.
type EnquiryReceipt struct {
	Enquiry  Enquiry  `json:"enquiry"`
	Channels []string `json:"channels"`
}
