package notifyagent

import "property-search/internal/models"

type Input struct {
	PropertyID int64             `json:"propertyId"`
	Enquiry    models.NewEnquiry `json:"enquiry"`
}

type Output struct {
	EnquiryID string   `json:"enquiryId"`
	Channels  []string `json:"channels"`
}
