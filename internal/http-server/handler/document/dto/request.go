package dto

type SignedURLRequest struct {
	Name          string `validate:"required,max=255"`
	ExpiryMinutes int    `validate:"gte=0,lte=10080"`
}

type ListConversionsRequest struct {
	Limit  int `validate:"gte=1,lte=500"`
	Offset int `validate:"gte=0"`
}
