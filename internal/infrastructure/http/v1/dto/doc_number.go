package dto

// NextDocNumberRequest optionally overrides the stored counter format.
type NextDocNumberRequest struct {
	Prefix  string `json:"prefix,omitempty" binding:"omitempty,max=20"`
	Padding *int   `json:"padding,omitempty" binding:"omitempty,min=0,max=12"`
}

// DocNumberResponse is an issued document number.
type DocNumberResponse struct {
	DocumentType string `json:"documentType"`
	Number       string `json:"number"`
}
