package zipcode

// SearchResponse is the zipcloud search API envelope.
// The API reports its own status in the body; HTTP status is 200 even for bad input.
type SearchResponse struct {
	Status  int       `json:"status"`
	Message *string   `json:"message"`
	Results []Address `json:"results"`
}

// Address is one match for a postal code.
type Address struct {
	Zipcode  string `json:"zipcode"`
	Prefcode string `json:"prefcode"`
	Address1 string `json:"address1"` // prefecture
	Address2 string `json:"address2"` // city
	Address3 string `json:"address3"` // town
	Kana1    string `json:"kana1"`
	Kana2    string `json:"kana2"`
	Kana3    string `json:"kana3"`
}

// Full returns the address lines joined without separators, as written on mail.
func (a Address) Full() string {
	return a.Address1 + a.Address2 + a.Address3
}
