package dto

type ContactRequest struct {
	FirstName string `json:"firstName" binding:"required,notblank,max=100"`
	LastName  string `json:"lastName" binding:"required,notblank,max=100"`
	Email     string `json:"email" binding:"required,email,max=255"`
	Subject   string `json:"subject" binding:"required,notblank,max=200"`
	Message   string `json:"message" binding:"required,notblank,max=5000"`
}
