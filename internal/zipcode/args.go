package zipcode

// SearchArgs contains parameters for the address tool
type SearchArgs struct {
	Zipcode string `json:"zipcode" jsonschema:"7-digit Japanese postal code without hyphen, e.g. 1000001"`
}
