package domain

type HotelCriteria struct {
	CityCode string `json:"city_code"`
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
	Rooms    int    `json:"rooms"`
	Adults   int    `json:"adults"`
	Children int    `json:"children"`
}

type HotelOffer struct {
	OfferID         string `json:"offer_id"`
	HotelName       string `json:"hotel_name"`
	CityCode        string `json:"city_code"`
	StarRating      int    `json:"star_rating"`
	RoomType        string `json:"room_type"`
	MealPlan        string `json:"meal_plan"`
	BookingCode     string `json:"booking_code"`
	TotalPriceCents int64  `json:"total_price_cents"`
	Currency        string `json:"currency"`
	Refundable      bool   `json:"refundable"`
	Synthetic       bool   `json:"synthetic,omitempty"`
}

type HotelSession struct {
	SessionBase
	Offer    HotelOffer    `json:"offer"`
	Criteria HotelCriteria `json:"criteria"`
}

type Guest struct {
	Title     string `json:"title"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}
